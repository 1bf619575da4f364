package command

import (
	"context"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-layerexport/export"
)

// Exporter is the driver surface the handlers need; *export.Runner
// implements it.
type Exporter interface {
	RunAll(ctx context.Context, modes []export.Mode) (export.Summary, error)
	ExportOne(ctx context.Context, templatePath string, mode export.Mode, outputPath string) export.ModeResult
}

var _ Exporter = (*export.Runner)(nil)

// ExportLayersHandler runs a full layer export.
type ExportLayersHandler struct {
	Exporter Exporter
}

func NewExportLayersHandler(exporter Exporter) *ExportLayersHandler {
	return &ExportLayersHandler{Exporter: exporter}
}

func (h *ExportLayersHandler) Execute(ctx context.Context, msg ExportLayers) error {
	if h == nil || h.Exporter == nil {
		return errors.New("layer exporter is required", errors.CategoryInternal).
			WithTextCode("EXPORTER_REQUIRED")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	summary, err := h.Exporter.RunAll(ctx, msg.Modes)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = summary
	}
	if res := gcmd.ResultFromContext[export.Summary](ctx); res != nil {
		res.Store(summary)
	}
	return nil
}

// ExportLayerHandler exports one mode.
type ExportLayerHandler struct {
	Exporter Exporter
}

func NewExportLayerHandler(exporter Exporter) *ExportLayerHandler {
	return &ExportLayerHandler{Exporter: exporter}
}

func (h *ExportLayerHandler) Execute(ctx context.Context, msg ExportLayer) error {
	if h == nil || h.Exporter == nil {
		return errors.New("layer exporter is required", errors.CategoryInternal).
			WithTextCode("EXPORTER_REQUIRED")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	result := h.Exporter.ExportOne(ctx, msg.TemplatePath, msg.Mode, msg.OutputPath)
	if msg.Result != nil {
		*msg.Result = result
	}
	if res := gcmd.ResultFromContext[export.ModeResult](ctx); res != nil {
		res.Store(result)
	}
	return nil
}
