package export

import (
	"context"
	"time"
)

// Mode selects which layer or component of the model is rendered.
type Mode string

// DefaultModes is the layer set of the reminder board model.
var DefaultModes = []Mode{"layer1", "layer2", "layer3", "slider", "knob"}

// Format is the renderer output format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatDXF Format = "dxf"
)

// Outcome is the result state of a single mode export.
type Outcome string

const (
	OutcomeSucceeded   Outcome = "succeeded"
	OutcomeFailed      Outcome = "failed"
	OutcomeToolMissing Outcome = "tool_missing"
)

// DefaultTimeout bounds a single renderer invocation.
const DefaultTimeout = 30 * time.Second

// DefaultFilenamePattern names outputs from the prefix and mode.
const DefaultFilenamePattern = "{{ prefix }}_{{ mode }}"

// Config is the explicit configuration passed to a Runner.
type Config struct {
	TemplatePath    string
	OutputDir       string
	Modes           []Mode
	Format          Format
	Prefix          string
	FilenamePattern string
	// ScratchDir defaults to the template directory so relative includes resolve.
	ScratchDir string
	Timeout    time.Duration
	// Concurrency above 1 exports modes in parallel.
	Concurrency int
	// RequireAssignment fails the run when the template has no export_mode assignment.
	RequireAssignment bool
	// StopOnToolMissing skips remaining modes after the renderer is reported missing.
	StopOnToolMissing bool
}

// RenderRequest is a single renderer invocation.
type RenderRequest struct {
	Mode       Mode
	InputPath  string
	OutputPath string
	Format     Format
	Timeout    time.Duration
}

// Renderer converts a scratch document into an output file.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) error
}

// RendererFunc adapts a function to a Renderer.
type RendererFunc func(ctx context.Context, req RenderRequest) error

func (f RendererFunc) Render(ctx context.Context, req RenderRequest) error {
	if f == nil {
		return NewError(KindInternal, "renderer func is nil", nil)
	}
	return f(ctx, req)
}

// ModeResult is the outcome of one mode export.
type ModeResult struct {
	Mode       Mode          `json:"mode"`
	Outcome    Outcome       `json:"outcome"`
	OutputPath string        `json:"output_path"`
	Message    string        `json:"message,omitempty"`
	ErrorKind  ErrorKind     `json:"error_kind,omitempty"`
	Skipped    bool          `json:"skipped,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// Succeeded reports whether the mode produced its output.
func (r ModeResult) Succeeded() bool {
	return r.Outcome == OutcomeSucceeded
}

// Summary aggregates the results of a run.
type Summary struct {
	RunID     string        `json:"run_id"`
	OutputDir string        `json:"output_dir"`
	Format    Format        `json:"format"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Results   []ModeResult  `json:"results"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Failed returns the number of modes that did not succeed.
func (s Summary) Failed() int {
	return s.Total - s.Succeeded
}

// AllSucceeded reports whether every attempted mode succeeded.
func (s Summary) AllSucceeded() bool {
	return s.Total > 0 && s.Succeeded == s.Total
}

// Result returns the result for mode.
func (s Summary) Result(mode Mode) (ModeResult, bool) {
	for _, res := range s.Results {
		if res.Mode == mode {
			return res, true
		}
	}
	return ModeResult{}, false
}

// AttemptRecord is a tracked mode export attempt.
type AttemptRecord struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	Mode        Mode      `json:"mode"`
	Format      Format    `json:"format"`
	Template    string    `json:"template"`
	OutputPath  string    `json:"output_path"`
	Outcome     Outcome   `json:"outcome,omitempty"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// AttemptFilter narrows tracker listings.
type AttemptFilter struct {
	RunID   string
	Mode    Mode
	Outcome Outcome
	Since   time.Time
	Limit   int
}

// ProgressTracker records mode export attempts.
type ProgressTracker interface {
	Start(ctx context.Context, record AttemptRecord) (string, error)
	Finish(ctx context.Context, id string, result ModeResult) error
	List(ctx context.Context, filter AttemptFilter) ([]AttemptRecord, error)
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// ChangeEvent describes lifecycle events.
type ChangeEvent struct {
	Name       string
	RunID      string
	Mode       Mode
	Format     Format
	OutputPath string
	Timestamp  time.Time
	Metadata   map[string]any
}

// ChangeEmitter emits lifecycle events.
type ChangeEmitter interface {
	Emit(ctx context.Context, evt ChangeEvent) error
}

// ChangeEmitterFunc adapts a function to a ChangeEmitter.
type ChangeEmitterFunc func(ctx context.Context, evt ChangeEvent) error

func (f ChangeEmitterFunc) Emit(ctx context.Context, evt ChangeEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, evt)
}

// Event names emitted by the Runner.
const (
	EventRunStarted      = "run.started"
	EventRunCompleted    = "run.completed"
	EventModeStarted     = "mode.started"
	EventModeSucceeded   = "mode.succeeded"
	EventModeFailed      = "mode.failed"
	EventModeTimeout     = "mode.timeout"
	EventModeToolMissing = "mode.tool_missing"
	EventModeSkipped     = "mode.skipped"
	EventScratchLeft     = "mode.scratch_left"
)
