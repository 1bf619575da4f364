package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Runner drives the renderer once per mode.
type Runner struct {
	Config      Config
	Renderer    Renderer
	Tracker     ProgressTracker
	Logger      Logger
	Emitter     ChangeEmitter
	Now         func() time.Time
	IDGenerator func() string
}

// NewRunner creates a runner for cfg.
func NewRunner(cfg Config, renderer Renderer) *Runner {
	return &Runner{
		Config:      cfg,
		Renderer:    renderer,
		Logger:      NopLogger{},
		Now:         time.Now,
		IDGenerator: uuid.NewString,
	}
}

// RunAll exports every mode and returns the aggregated summary. Empty modes
// selects the configured modes. Only precondition failures (invalid config,
// missing template, missing assignment in strict mode, unusable output
// directory) are returned as errors; per-mode failures are reported in the
// summary.
func (r *Runner) RunAll(ctx context.Context, modes []Mode) (Summary, error) {
	if r == nil {
		return Summary{}, NewError(KindInternal, "runner is nil", nil)
	}
	if r.Renderer == nil {
		return Summary{}, NewError(KindInternal, "renderer is not configured", nil)
	}
	r.applyDefaults()

	cfg := r.Config
	if len(modes) > 0 {
		cfg.Modes = modes
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	document, err := readTemplate(cfg.TemplatePath)
	if err != nil {
		r.Logger.Errorf("template unavailable: %v", err)
		return Summary{}, err
	}
	if cfg.RequireAssignment && !HasModeAssignment(document) {
		return Summary{}, NewError(KindPatternNotFound, fmt.Sprintf("%s has no export_mode assignment", cfg.TemplatePath), nil)
	}

	outputs, err := r.outputPaths(cfg)
	if err != nil {
		return Summary{}, err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return Summary{}, NewError(KindIO, fmt.Sprintf("create output directory %s", cfg.OutputDir), err)
	}

	run := runInfo{
		id:        r.IDGenerator(),
		cfg:       cfg,
		document:  document,
		startedAt: r.Now(),
	}
	r.Logger.Debugf("run %s: %d modes, template %s, output %s", run.id, len(cfg.Modes), cfg.TemplatePath, cfg.OutputDir)
	r.emit(ctx, run, ChangeEvent{Name: EventRunStarted, Metadata: map[string]any{
		"modes":      len(cfg.Modes),
		"output_dir": cfg.OutputDir,
		"template":   cfg.TemplatePath,
	}})

	results := make([]ModeResult, len(cfg.Modes))
	if cfg.Concurrency > 1 {
		r.runParallel(ctx, run, outputs, results)
	} else {
		r.runSequential(ctx, run, outputs, results)
	}

	summary := Summary{
		RunID:     run.id,
		OutputDir: cfg.OutputDir,
		Format:    cfg.Format,
		Total:     len(results),
		Results:   results,
		StartedAt: run.startedAt,
		Duration:  r.Now().Sub(run.startedAt),
	}
	for _, res := range results {
		if res.Succeeded() {
			summary.Succeeded++
		}
	}

	r.Logger.Infof("run %s: %d/%d modes exported", run.id, summary.Succeeded, summary.Total)
	r.emit(ctx, run, ChangeEvent{Name: EventRunCompleted, Metadata: map[string]any{
		"total":     summary.Total,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed(),
		"duration":  summary.Duration,
	}})
	return summary, nil
}

// ExportOne exports a single mode of templatePath to outputPath. The
// template is read on every call.
func (r *Runner) ExportOne(ctx context.Context, templatePath string, mode Mode, outputPath string) ModeResult {
	if r == nil {
		return failedResult(mode, outputPath, time.Now(), NewError(KindInternal, "runner is nil", nil))
	}
	r.applyDefaults()

	cfg := r.Config
	cfg.TemplatePath = templatePath
	cfg = cfg.Normalize()

	if err := ValidateMode(mode); err != nil {
		return failedResult(mode, outputPath, r.Now(), err)
	}
	if r.Renderer == nil {
		return failedResult(mode, outputPath, r.Now(), NewError(KindInternal, "renderer is not configured", nil))
	}

	document, err := readTemplate(templatePath)
	if err != nil {
		return failedResult(mode, outputPath, r.Now(), err)
	}

	run := runInfo{
		id:        r.IDGenerator(),
		cfg:       cfg,
		document:  document,
		startedAt: r.Now(),
	}
	return r.exportDocument(ctx, run, mode, outputPath)
}

func (r *Runner) runSequential(ctx context.Context, run runInfo, outputs []string, results []ModeResult) {
	toolMissing := false
	for i, mode := range run.cfg.Modes {
		if toolMissing && run.cfg.StopOnToolMissing {
			results[i] = r.skip(ctx, run, mode, outputs[i])
			continue
		}
		results[i] = r.exportDocument(ctx, run, mode, outputs[i])
		if results[i].Outcome == OutcomeToolMissing {
			toolMissing = true
		}
	}
}

// runParallel exports modes with bounded concurrency. Each goroutine owns
// one slot of results; counts are reduced after the join.
func (r *Runner) runParallel(ctx context.Context, run runInfo, outputs []string, results []ModeResult) {
	var toolMissing atomic.Bool
	var group errgroup.Group
	group.SetLimit(run.cfg.Concurrency)

	for i, mode := range run.cfg.Modes {
		group.Go(func() error {
			if toolMissing.Load() && run.cfg.StopOnToolMissing {
				results[i] = r.skip(ctx, run, mode, outputs[i])
				return nil
			}
			results[i] = r.exportDocument(ctx, run, mode, outputs[i])
			if results[i].Outcome == OutcomeToolMissing {
				toolMissing.Store(true)
			}
			return nil
		})
	}
	_ = group.Wait()
}

func (r *Runner) exportDocument(ctx context.Context, run runInfo, mode Mode, outputPath string) ModeResult {
	started := r.Now()
	r.emit(ctx, run, ChangeEvent{Name: EventModeStarted, Mode: mode, OutputPath: outputPath})
	trackID := r.trackStart(ctx, run, mode, outputPath, started)

	err := r.render(ctx, run, mode, outputPath)
	result := classifyResult(mode, outputPath, started, err)
	result.Duration = r.Now().Sub(started)

	switch {
	case result.Succeeded():
		r.Logger.Infof("mode %s exported to %s", mode, outputPath)
		r.emit(ctx, run, ChangeEvent{Name: EventModeSucceeded, Mode: mode, OutputPath: outputPath, Metadata: map[string]any{
			"duration": result.Duration,
		}})
	case result.Outcome == OutcomeToolMissing:
		r.Logger.Errorf("mode %s: %s", mode, result.Message)
		r.emit(ctx, run, ChangeEvent{Name: EventModeToolMissing, Mode: mode, OutputPath: outputPath, Metadata: resultMetadata(result)})
	case result.ErrorKind == KindTimeout:
		r.Logger.Errorf("mode %s: %s", mode, result.Message)
		r.emit(ctx, run, ChangeEvent{Name: EventModeTimeout, Mode: mode, OutputPath: outputPath, Metadata: resultMetadata(result)})
	default:
		r.Logger.Errorf("mode %s: %s", mode, result.Message)
		r.emit(ctx, run, ChangeEvent{Name: EventModeFailed, Mode: mode, OutputPath: outputPath, Metadata: resultMetadata(result)})
	}

	r.trackFinish(ctx, trackID, result)
	return result
}

// render owns the scratch file for one attempt; it is released on every
// return path, including timeouts and cancellation.
func (r *Runner) render(ctx context.Context, run runInfo, mode Mode, outputPath string) (err error) {
	if err := ctx.Err(); err != nil {
		return NewError(KindCanceled, "run canceled before export", err)
	}

	document := run.document
	if run.cfg.RequireAssignment {
		document, err = PatchModeStrict(document, mode)
		if err != nil {
			return err
		}
	} else {
		document = PatchMode(document, mode)
	}

	scratch, err := acquireScratch(run.cfg.ScratchDir, mode, run.cfg.TemplatePath, document)
	if err != nil {
		return err
	}
	r.Logger.Debugf("mode %s: scratch file %s", mode, scratch.path)
	defer func() {
		if releaseErr := scratch.Release(); releaseErr != nil {
			r.Logger.Errorf("mode %s: remove scratch file %s: %v", mode, scratch.path, releaseErr)
			r.emit(ctx, run, ChangeEvent{Name: EventScratchLeft, Mode: mode, OutputPath: outputPath, Metadata: map[string]any{
				"path":  scratch.path,
				"error": releaseErr.Error(),
			}})
		}
	}()

	renderCtx, cancel := context.WithTimeout(ctx, run.cfg.Timeout)
	defer cancel()

	err = r.Renderer.Render(renderCtx, RenderRequest{
		Mode:       mode,
		InputPath:  scratch.path,
		OutputPath: outputPath,
		Format:     run.cfg.Format,
		Timeout:    run.cfg.Timeout,
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && KindFromError(err) != KindToolMissing {
		return NewError(KindCanceled, "export canceled", ctx.Err())
	}
	if errors.Is(renderCtx.Err(), context.DeadlineExceeded) && KindFromError(err) != KindToolMissing {
		return NewError(KindTimeout, fmt.Sprintf("timed out after %s", run.cfg.Timeout), err)
	}
	return err
}

func (r *Runner) skip(ctx context.Context, run runInfo, mode Mode, outputPath string) ModeResult {
	result := ModeResult{
		Mode:       mode,
		Outcome:    OutcomeToolMissing,
		OutputPath: outputPath,
		Message:    "skipped: renderer executable not available",
		ErrorKind:  KindToolMissing,
		Skipped:    true,
		StartedAt:  r.Now(),
	}
	r.emit(ctx, run, ChangeEvent{Name: EventModeSkipped, Mode: mode, OutputPath: outputPath, Metadata: resultMetadata(result)})
	return result
}

func (r *Runner) outputPaths(cfg Config) ([]string, error) {
	now := r.Now()
	stem := templateStem(cfg.TemplatePath)
	paths := make([]string, len(cfg.Modes))
	seen := make(map[string]Mode, len(cfg.Modes))
	for i, mode := range cfg.Modes {
		name, err := renderFilename(cfg.FilenamePattern, cfg.Prefix, mode, cfg.Format, stem, now)
		if err != nil {
			return nil, NewError(KindValidation, "invalid filename pattern", err)
		}
		if other, ok := seen[name]; ok {
			return nil, NewError(KindValidation, fmt.Sprintf("modes %q and %q render to the same file %q", other, mode, name), nil)
		}
		seen[name] = mode
		paths[i] = filepath.Join(cfg.OutputDir, name)
	}
	return paths, nil
}

func (r *Runner) applyDefaults() {
	if r.Now == nil {
		r.Now = time.Now
	}
	if r.Logger == nil {
		r.Logger = NopLogger{}
	}
	if r.IDGenerator == nil {
		r.IDGenerator = uuid.NewString
	}
}

func (r *Runner) emit(ctx context.Context, run runInfo, evt ChangeEvent) {
	if r.Emitter == nil {
		return
	}
	evt.RunID = run.id
	evt.Format = run.cfg.Format
	evt.Timestamp = r.Now()
	if err := r.Emitter.Emit(ctx, evt); err != nil {
		r.Logger.Debugf("emit %s: %v", evt.Name, err)
	}
}

func (r *Runner) trackStart(ctx context.Context, run runInfo, mode Mode, outputPath string, now time.Time) string {
	if r.Tracker == nil {
		return ""
	}
	id, err := r.Tracker.Start(context.WithoutCancel(ctx), AttemptRecord{
		RunID:      run.id,
		Mode:       mode,
		Format:     run.cfg.Format,
		Template:   run.cfg.TemplatePath,
		OutputPath: outputPath,
		CreatedAt:  now,
	})
	if err != nil {
		r.Logger.Errorf("tracker start for mode %s: %v", mode, err)
		return ""
	}
	return id
}

func (r *Runner) trackFinish(ctx context.Context, id string, result ModeResult) {
	if r.Tracker == nil || id == "" {
		return
	}
	if err := r.Tracker.Finish(context.WithoutCancel(ctx), id, result); err != nil {
		r.Logger.Errorf("tracker finish for mode %s: %v", result.Mode, err)
	}
}

type runInfo struct {
	id        string
	cfg       Config
	document  string
	startedAt time.Time
}

func readTemplate(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", NewError(KindMissingInput, fmt.Sprintf("template %s not found", path), err)
		}
		return "", NewError(KindIO, fmt.Sprintf("read template %s", path), err)
	}
	return string(content), nil
}

func classifyResult(mode Mode, outputPath string, started time.Time, err error) ModeResult {
	if err == nil {
		return ModeResult{
			Mode:       mode,
			Outcome:    OutcomeSucceeded,
			OutputPath: outputPath,
			StartedAt:  started,
		}
	}
	return failedResult(mode, outputPath, started, err)
}

func failedResult(mode Mode, outputPath string, started time.Time, err error) ModeResult {
	kind := KindFromError(err)
	outcome := OutcomeFailed
	if kind == KindToolMissing {
		outcome = OutcomeToolMissing
	}
	return ModeResult{
		Mode:       mode,
		Outcome:    outcome,
		OutputPath: outputPath,
		Message:    MessageFromError(err),
		ErrorKind:  kind,
		StartedAt:  started,
		Err:        err,
	}
}

func resultMetadata(result ModeResult) map[string]any {
	return map[string]any{
		"outcome":    result.Outcome,
		"error":      result.Message,
		"error_kind": result.ErrorKind,
		"duration":   result.Duration,
	}
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
