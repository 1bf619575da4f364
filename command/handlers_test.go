package command

import (
	"context"
	stderrors "errors"
	"testing"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-layerexport/export"
)

type stubExporter struct {
	runAll    func(ctx context.Context, modes []export.Mode) (export.Summary, error)
	exportOne func(ctx context.Context, templatePath string, mode export.Mode, outputPath string) export.ModeResult
	calls     int
}

func (s *stubExporter) RunAll(ctx context.Context, modes []export.Mode) (export.Summary, error) {
	s.calls++
	if s.runAll != nil {
		return s.runAll(ctx, modes)
	}
	return export.Summary{}, nil
}

func (s *stubExporter) ExportOne(ctx context.Context, templatePath string, mode export.Mode, outputPath string) export.ModeResult {
	s.calls++
	if s.exportOne != nil {
		return s.exportOne(ctx, templatePath, mode, outputPath)
	}
	return export.ModeResult{}
}

func TestExportLayersHandler_StoresResults(t *testing.T) {
	want := export.Summary{RunID: "run-1", Total: 2, Succeeded: 2}
	var gotModes []export.Mode
	exporter := &stubExporter{
		runAll: func(ctx context.Context, modes []export.Mode) (export.Summary, error) {
			_ = ctx
			gotModes = modes
			return want, nil
		},
	}

	handler := NewExportLayersHandler(exporter)
	var got export.Summary
	result := gcmd.NewResult[export.Summary]()
	ctx := gcmd.ContextWithResult(context.Background(), result)

	err := handler.Execute(ctx, ExportLayers{
		Modes:  []export.Mode{"layer1", "knob"},
		Result: &got,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(gotModes) != 2 || gotModes[1] != "knob" {
		t.Fatalf("expected modes to be forwarded, got %v", gotModes)
	}
	if got.RunID != want.RunID {
		t.Fatalf("expected result pointer %q, got %q", want.RunID, got.RunID)
	}

	stored, ok := result.Load()
	if !ok {
		t.Fatalf("expected context result")
	}
	if stored.Succeeded != 2 {
		t.Fatalf("expected context result, got %+v", stored)
	}
}

func TestExportLayersHandler_PropagatesFatalError(t *testing.T) {
	exporter := &stubExporter{
		runAll: func(ctx context.Context, modes []export.Mode) (export.Summary, error) {
			return export.Summary{}, export.NewError(export.KindMissingInput, "template board.scad not found", nil)
		},
	}

	err := NewExportLayersHandler(exporter).Execute(context.Background(), ExportLayers{})
	if export.KindFromError(err) != export.KindMissingInput {
		t.Fatalf("expected missing_input, got %v", err)
	}
}

func TestExportLayersHandler_ValidatesModes(t *testing.T) {
	exporter := &stubExporter{}
	handler := NewExportLayersHandler(exporter)

	cases := []struct {
		modes []export.Mode
		code  string
	}{
		{modes: []export.Mode{"layer1", "layer1"}, code: "MODE_DUPLICATE"},
		{modes: []export.Mode{`bad"mode`}, code: "MODE_INVALID"},
	}
	for _, tc := range cases {
		err := handler.Execute(context.Background(), ExportLayers{Modes: tc.modes})
		var goErr *errors.Error
		if !stderrors.As(err, &goErr) {
			t.Fatalf("expected go-errors error, got %v", err)
		}
		if goErr.TextCode != tc.code {
			t.Fatalf("expected %s, got %s", tc.code, goErr.TextCode)
		}
	}
	if exporter.calls != 0 {
		t.Fatalf("expected exporter not to be called")
	}
}

func TestExportLayersHandler_RequiresExporter(t *testing.T) {
	err := (&ExportLayersHandler{}).Execute(context.Background(), ExportLayers{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestExportLayerHandler_StoresModeResult(t *testing.T) {
	exporter := &stubExporter{
		exportOne: func(ctx context.Context, templatePath string, mode export.Mode, outputPath string) export.ModeResult {
			return export.ModeResult{Mode: mode, Outcome: export.OutcomeSucceeded, OutputPath: outputPath}
		},
	}

	result := gcmd.NewResult[export.ModeResult]()
	ctx := gcmd.ContextWithResult(context.Background(), result)
	err := NewExportLayerHandler(exporter).Execute(ctx, ExportLayer{
		TemplatePath: "board.scad",
		Mode:         "slider",
		OutputPath:   "out/board_slider.svg",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	stored, ok := result.Load()
	if !ok || stored.Mode != "slider" || !stored.Succeeded() {
		t.Fatalf("unexpected stored result %+v", stored)
	}
}

func TestExportLayer_Validate(t *testing.T) {
	if err := (ExportLayer{Mode: "slider", OutputPath: "x.svg"}).Validate(); err == nil {
		t.Fatalf("expected template error")
	}
	if err := (ExportLayer{TemplatePath: "a.scad", Mode: "slider"}).Validate(); err == nil {
		t.Fatalf("expected output error")
	}
	if err := (ExportLayer{TemplatePath: "a.scad", Mode: "slider", OutputPath: "x.svg"}).Validate(); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
}
