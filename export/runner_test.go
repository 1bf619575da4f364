package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeRenderer records invocations and writes a placeholder output file.
type fakeRenderer struct {
	mu       sync.Mutex
	calls    []RenderRequest
	inputs   map[Mode]string
	fail     map[Mode]error
	block    map[Mode]bool
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		inputs: make(map[Mode]string),
		fail:   make(map[Mode]error),
		block:  make(map[Mode]bool),
	}
}

func (f *fakeRenderer) Render(ctx context.Context, req RenderRequest) error {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if current <= seen || f.maxSeen.CompareAndSwap(seen, current) {
			break
		}
	}

	content, readErr := os.ReadFile(req.InputPath)

	f.mu.Lock()
	f.calls = append(f.calls, req)
	if readErr == nil {
		f.inputs[req.Mode] = string(content)
	}
	failErr := f.fail[req.Mode]
	blocked := f.block[req.Mode]
	f.mu.Unlock()

	if readErr != nil {
		return fmt.Errorf("scratch file missing during render: %w", readErr)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	if failErr != nil {
		return failErr
	}
	return os.WriteFile(req.OutputPath, []byte("<svg/>"), 0o644)
}

func (f *fakeRenderer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (e *recordingEmitter) Emit(ctx context.Context, evt ChangeEvent) error {
	_ = ctx
	e.mu.Lock()
	e.events = append(e.events, evt)
	e.mu.Unlock()
	return nil
}

func (e *recordingEmitter) names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.events))
	for _, evt := range e.events {
		names = append(names, evt.Name)
	}
	return names
}

func writeTemplate(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "reminder_board.scad")
	if err := os.WriteFile(path, []byte(boardTemplate), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

func assertNoScratchFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "temp_*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected scratch files to be removed, found %v", matches)
	}
}

func newTestRunner(t *testing.T, renderer Renderer) (*Runner, string) {
	t.Helper()
	dir := t.TempDir()
	template := writeTemplate(t, dir)
	runner := NewRunner(Config{
		TemplatePath: template,
		OutputDir:    filepath.Join(dir, "laser_cuts"),
	}, renderer)
	runner.IDGenerator = func() string { return "run-1" }
	return runner, dir
}

func TestRunner_RunAllSucceeds(t *testing.T) {
	renderer := newFakeRenderer()
	runner, dir := newTestRunner(t, renderer)
	emitter := &recordingEmitter{}
	runner.Emitter = emitter

	summary, err := runner.RunAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if summary.Total != 5 || summary.Succeeded != 5 {
		t.Fatalf("expected 5/5, got %d/%d", summary.Succeeded, summary.Total)
	}
	if !summary.AllSucceeded() {
		t.Fatalf("expected all succeeded")
	}

	seen := make(map[string]struct{})
	for i, res := range summary.Results {
		if res.Mode != DefaultModes[i] {
			t.Fatalf("expected results in configured order, got %s at %d", res.Mode, i)
		}
		want := filepath.Join(dir, "laser_cuts", "reminder_board_"+string(res.Mode)+".svg")
		if res.OutputPath != want {
			t.Fatalf("expected output %q, got %q", want, res.OutputPath)
		}
		if _, err := os.Stat(res.OutputPath); err != nil {
			t.Fatalf("expected output file for %s: %v", res.Mode, err)
		}
		seen[res.OutputPath] = struct{}{}

		input := renderer.inputs[res.Mode]
		if !strings.Contains(input, `export_mode = "`+string(res.Mode)+`";`) {
			t.Fatalf("expected patched scratch for %s, got:\n%s", res.Mode, input)
		}
		if strings.Contains(input, `"preview"`) {
			t.Fatalf("expected original value to be replaced for %s", res.Mode)
		}
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 distinct output paths, got %d", len(seen))
	}

	for _, call := range renderer.calls {
		if call.Format != FormatSVG {
			t.Fatalf("expected svg format, got %q", call.Format)
		}
		if call.Timeout != DefaultTimeout {
			t.Fatalf("expected default timeout, got %s", call.Timeout)
		}
		if filepath.Dir(call.InputPath) != dir {
			t.Fatalf("expected scratch next to template, got %s", call.InputPath)
		}
	}
	assertNoScratchFiles(t, dir)

	names := emitter.names()
	if names[0] != EventRunStarted || names[len(names)-1] != EventRunCompleted {
		t.Fatalf("unexpected event order: %v", names)
	}
}

func TestRunner_RunAllReportsSingleFailure(t *testing.T) {
	renderer := newFakeRenderer()
	renderer.fail["slider"] = NewExitError(1, "ERROR: Parser error in file temp_slider.scad, line 3", nil)
	runner, dir := newTestRunner(t, renderer)

	summary, err := runner.RunAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if summary.Total != 5 || summary.Succeeded != 4 {
		t.Fatalf("expected 4/5, got %d/%d", summary.Succeeded, summary.Total)
	}

	res, ok := summary.Result("slider")
	if !ok {
		t.Fatalf("expected slider result")
	}
	if res.Outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome, got %q", res.Outcome)
	}
	if res.Message != "ERROR: Parser error in file temp_slider.scad, line 3" {
		t.Fatalf("expected renderer diagnostic, got %q", res.Message)
	}
	if res.ErrorKind != KindToolExit {
		t.Fatalf("expected tool_exit, got %q", res.ErrorKind)
	}
	if renderer.callCount() != 5 {
		t.Fatalf("expected every mode attempted, got %d calls", renderer.callCount())
	}
	assertNoScratchFiles(t, dir)
}

func TestRunner_RunAllMissingTemplateAborts(t *testing.T) {
	renderer := newFakeRenderer()
	dir := t.TempDir()
	outputDir := filepath.Join(dir, "laser_cuts")
	runner := NewRunner(Config{
		TemplatePath: filepath.Join(dir, "missing.scad"),
		OutputDir:    outputDir,
	}, renderer)

	_, err := runner.RunAll(context.Background(), nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if KindFromError(err) != KindMissingInput {
		t.Fatalf("expected missing_input, got %q", KindFromError(err))
	}
	if renderer.callCount() != 0 {
		t.Fatalf("expected renderer not to be invoked")
	}
	if _, statErr := os.Stat(outputDir); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected output directory to be absent, got %v", statErr)
	}
}

func TestRunner_RunAllRequireAssignment(t *testing.T) {
	renderer := newFakeRenderer()
	dir := t.TempDir()
	template := filepath.Join(dir, "plain.scad")
	if err := os.WriteFile(template, []byte("cube(10);\n"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	runner := NewRunner(Config{
		TemplatePath:      template,
		OutputDir:         filepath.Join(dir, "out"),
		RequireAssignment: true,
	}, renderer)

	_, err := runner.RunAll(context.Background(), nil)
	if KindFromError(err) != KindPatternNotFound {
		t.Fatalf("expected pattern_not_found, got %v", err)
	}
	if renderer.callCount() != 0 {
		t.Fatalf("expected renderer not to be invoked")
	}

	runner.Config.RequireAssignment = false
	summary, err := runner.RunAll(context.Background(), []Mode{"layer1"})
	if err != nil {
		t.Fatalf("lenient run: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("expected lenient run to render unchanged document")
	}
	if renderer.inputs["layer1"] != "cube(10);\n" {
		t.Fatalf("expected unchanged scratch document, got %q", renderer.inputs["layer1"])
	}
}

func TestRunner_ToolMissingShortCircuits(t *testing.T) {
	renderer := newFakeRenderer()
	missing := NewError(KindToolMissing, "openscad executable not found: openscad", nil)
	for _, mode := range DefaultModes {
		renderer.fail[mode] = missing
	}
	runner, dir := newTestRunner(t, renderer)
	runner.Config.StopOnToolMissing = true
	emitter := &recordingEmitter{}
	runner.Emitter = emitter

	summary, err := runner.RunAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if renderer.callCount() != 1 {
		t.Fatalf("expected a single renderer attempt, got %d", renderer.callCount())
	}
	if summary.Succeeded != 0 || summary.Total != 5 {
		t.Fatalf("expected 0/5, got %d/%d", summary.Succeeded, summary.Total)
	}
	for i, res := range summary.Results {
		if res.Outcome != OutcomeToolMissing {
			t.Fatalf("expected tool_missing for %s, got %q", res.Mode, res.Outcome)
		}
		if (i > 0) != res.Skipped {
			t.Fatalf("expected only modes after the first to be skipped")
		}
	}
	if summary.Results[0].Message != "openscad executable not found: openscad" {
		t.Fatalf("unexpected message %q", summary.Results[0].Message)
	}
	assertNoScratchFiles(t, dir)

	skipped := 0
	for _, name := range emitter.names() {
		if name == EventModeSkipped {
			skipped++
		}
	}
	if skipped != 4 {
		t.Fatalf("expected 4 skipped events, got %d", skipped)
	}
}

func TestRunner_ToolMissingKeepGoing(t *testing.T) {
	renderer := newFakeRenderer()
	for _, mode := range DefaultModes {
		renderer.fail[mode] = NewError(KindToolMissing, "not found", nil)
	}
	runner, _ := newTestRunner(t, renderer)

	summary, err := runner.RunAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if renderer.callCount() != 5 {
		t.Fatalf("expected every mode attempted, got %d", renderer.callCount())
	}
	for _, res := range summary.Results {
		if res.Skipped {
			t.Fatalf("expected no skipped results")
		}
	}
}

func TestRunner_TimeoutRemovesScratch(t *testing.T) {
	renderer := newFakeRenderer()
	renderer.block["layer2"] = true
	runner, dir := newTestRunner(t, renderer)
	runner.Config.Timeout = 50 * time.Millisecond
	emitter := &recordingEmitter{}
	runner.Emitter = emitter

	summary, err := runner.RunAll(context.Background(), []Mode{"layer1", "layer2", "layer3"})
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if summary.Succeeded != 2 {
		t.Fatalf("expected 2/3, got %d/%d", summary.Succeeded, summary.Total)
	}
	res, _ := summary.Result("layer2")
	if res.ErrorKind != KindTimeout || res.Outcome != OutcomeFailed {
		t.Fatalf("expected timeout failure, got %+v", res)
	}
	if !strings.Contains(res.Message, "timed out") {
		t.Fatalf("expected timeout message, got %q", res.Message)
	}
	assertNoScratchFiles(t, dir)

	found := false
	for _, name := range emitter.names() {
		if name == EventModeTimeout {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected timeout event")
	}
}

func TestRunner_CanceledContextSkipsRender(t *testing.T) {
	renderer := newFakeRenderer()
	runner, dir := newTestRunner(t, renderer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := runner.RunAll(ctx, nil)
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if renderer.callCount() != 0 {
		t.Fatalf("expected no renderer calls after cancel")
	}
	for _, res := range summary.Results {
		if res.ErrorKind != KindCanceled {
			t.Fatalf("expected canceled result, got %+v", res)
		}
	}
	assertNoScratchFiles(t, dir)
}

func TestRunner_ParallelKeepsOrder(t *testing.T) {
	renderer := newFakeRenderer()
	renderer.delay = 20 * time.Millisecond
	renderer.fail["layer3"] = NewExitError(2, "boom", nil)
	runner, dir := newTestRunner(t, renderer)
	runner.Config.Concurrency = 3

	summary, err := runner.RunAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if summary.Succeeded != 4 || summary.Total != 5 {
		t.Fatalf("expected 4/5, got %d/%d", summary.Succeeded, summary.Total)
	}
	for i, res := range summary.Results {
		if res.Mode != DefaultModes[i] {
			t.Fatalf("expected configured order, got %s at %d", res.Mode, i)
		}
	}
	if peak := renderer.maxSeen.Load(); peak < 2 || peak > 3 {
		t.Fatalf("expected bounded parallelism between 2 and 3, got %d", peak)
	}
	assertNoScratchFiles(t, dir)
}

func TestRunner_RejectsCollidingFilenames(t *testing.T) {
	renderer := newFakeRenderer()
	runner, _ := newTestRunner(t, renderer)
	runner.Config.FilenamePattern = "{{ prefix }}"

	_, err := runner.RunAll(context.Background(), nil)
	if KindFromError(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if renderer.callCount() != 0 {
		t.Fatalf("expected renderer not to be invoked")
	}
}

func TestRunner_TracksAttempts(t *testing.T) {
	renderer := newFakeRenderer()
	renderer.fail["knob"] = NewExitError(1, "bad knob", nil)
	runner, _ := newTestRunner(t, renderer)
	tracker := NewMemoryTracker()
	runner.Tracker = tracker

	if _, err := runner.RunAll(context.Background(), nil); err != nil {
		t.Fatalf("run all: %v", err)
	}

	records, err := tracker.List(context.Background(), AttemptFilter{RunID: "run-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}

	failed, err := tracker.List(context.Background(), AttemptFilter{Outcome: OutcomeFailed})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Mode != "knob" || failed[0].Message != "bad knob" {
		t.Fatalf("unexpected failed records: %+v", failed)
	}
}

func TestRunner_ExportOne(t *testing.T) {
	renderer := newFakeRenderer()
	runner, dir := newTestRunner(t, renderer)
	output := filepath.Join(dir, "single.svg")

	res := runner.ExportOne(context.Background(), runner.Config.TemplatePath, "slider", output)
	if !res.Succeeded() {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.OutputPath != output {
		t.Fatalf("unexpected output path %q", res.OutputPath)
	}
	assertNoScratchFiles(t, dir)

	renderer.fail["knob"] = errors.New("write failed")
	res = runner.ExportOne(context.Background(), runner.Config.TemplatePath, "knob", output)
	if res.Outcome != OutcomeFailed || res.ErrorKind != KindInternal {
		t.Fatalf("expected internal failure, got %+v", res)
	}
	assertNoScratchFiles(t, dir)

	res = runner.ExportOne(context.Background(), filepath.Join(dir, "nope.scad"), "knob", output)
	if res.ErrorKind != KindMissingInput {
		t.Fatalf("expected missing input, got %+v", res)
	}
}

func TestRunner_ScratchWriteFailure(t *testing.T) {
	renderer := newFakeRenderer()
	runner, dir := newTestRunner(t, renderer)
	runner.Config.ScratchDir = filepath.Join(dir, "does-not-exist")

	summary, err := runner.RunAll(context.Background(), []Mode{"layer1"})
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	res := summary.Results[0]
	if res.ErrorKind != KindIO || res.Outcome != OutcomeFailed {
		t.Fatalf("expected io failure, got %+v", res)
	}
	if renderer.callCount() != 0 {
		t.Fatalf("expected renderer not to be invoked")
	}
}

func TestRunner_ReportsScratchLeftBehind(t *testing.T) {
	renderer := RendererFunc(func(ctx context.Context, req RenderRequest) error {
		// A non-empty directory in place of the scratch file cannot be removed.
		if err := os.Remove(req.InputPath); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Join(req.InputPath, "locked"), 0o755); err != nil {
			return err
		}
		return os.WriteFile(req.OutputPath, []byte("<svg/>"), 0o644)
	})
	runner, dir := newTestRunner(t, renderer)
	runner.Config.Modes = []Mode{"layer1"}
	emitter := &recordingEmitter{}
	runner.Emitter = emitter

	summary, err := runner.RunAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("run all: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("expected the export itself to succeed, got %+v", summary.Results)
	}

	var left *ChangeEvent
	for i, evt := range emitter.events {
		if evt.Name == EventScratchLeft {
			left = &emitter.events[i]
		}
	}
	if left == nil {
		t.Fatalf("expected %s event, got %v", EventScratchLeft, emitter.names())
	}
	if path, _ := left.Metadata["path"].(string); path != filepath.Join(dir, "temp_layer1.scad") {
		t.Fatalf("unexpected scratch path %q", path)
	}
	if msg, _ := left.Metadata["error"].(string); msg == "" {
		t.Fatalf("expected removal error message")
	}
}
