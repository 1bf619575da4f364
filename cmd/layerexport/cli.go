package main

import (
	"context"
	"io"
	"time"

	"github.com/goliatone/go-layerexport/config"
	"github.com/goliatone/go-layerexport/export"
)

// CLI is the kong command grammar.
type CLI struct {
	Config    string `help:"HCL job file loaded over the built-in defaults." type:"path" placeholder:"FILE"`
	HistoryDB string `name:"history-db" help:"SQLite database recording every export attempt." type:"path" placeholder:"FILE"`
	Verbose   bool   `short:"v" help:"Enable debug output."`

	Export  ExportCmd  `cmd:"" default:"withargs" help:"Export every configured layer (default command)."`
	History HistoryCmd `cmd:"" help:"List export attempts recorded in --history-db."`
}

// App carries the process wiring shared by commands.
type App struct {
	Context context.Context
	CLI     *CLI
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  export.Logger
}

// ExportCmd exports layers.
type ExportCmd struct {
	Template        string        `short:"t" help:"OpenSCAD template containing the export_mode assignment." type:"path"`
	OutputDir       string        `short:"o" name:"output-dir" help:"Directory receiving the exported files." type:"path"`
	OpenSCAD        string        `name:"openscad" help:"OpenSCAD executable name or path."`
	OpenSCADArg     []string      `name:"openscad-arg" sep:"none" help:"Extra argument passed to OpenSCAD (repeatable)."`
	Mode            []string      `short:"m" help:"Mode to export, in order (repeatable or comma separated)."`
	Format          string        `short:"f" help:"Output format: svg or dxf."`
	Timeout         time.Duration `help:"Per-mode render timeout."`
	Prefix          string        `help:"File name prefix (defaults to the template name)."`
	FilenamePattern string        `name:"filename-pattern" help:"Output file name template, e.g. '{{ prefix }}_{{ mode }}'."`
	ScratchDir      string        `name:"scratch-dir" help:"Directory for per-mode scratch files (defaults to the template directory)." type:"path"`
	Concurrency     int           `short:"j" help:"Number of modes rendered in parallel."`
	Strict          bool          `help:"Exit with status 1 when any mode fails."`
	KeepGoing       bool          `name:"keep-going" help:"Keep invoking the renderer after it is reported missing."`
	LenientPatch    bool          `name:"lenient-patch" help:"Render templates that lack an export_mode assignment unchanged."`
	Report          string        `help:"Write a run report; the format follows the extension (.json or .xlsx)." type:"path"`
}

// apply overlays explicitly set flags on cfg.
func (c *ExportCmd) apply(cfg config.Config) config.Config {
	setIf(&cfg.Template, c.Template)
	setIf(&cfg.OutputDir, c.OutputDir)
	setIf(&cfg.Renderer.Executable, c.OpenSCAD)
	setIf(&cfg.Format, c.Format)
	setIf(&cfg.Prefix, c.Prefix)
	setIf(&cfg.FilenamePattern, c.FilenamePattern)
	setIf(&cfg.ScratchDir, c.ScratchDir)
	setIf(&cfg.Report, c.Report)
	if len(c.OpenSCADArg) > 0 {
		cfg.Renderer.Args = append(append([]string(nil), cfg.Renderer.Args...), c.OpenSCADArg...)
	}
	if len(c.Mode) > 0 {
		cfg.Modes = append([]string(nil), c.Mode...)
	}
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	if c.Concurrency > 0 {
		cfg.Concurrency = c.Concurrency
	}
	if c.Strict {
		cfg.Run.Strict = true
	}
	if c.KeepGoing {
		cfg.Run.StopOnToolMissing = false
	}
	if c.LenientPatch {
		cfg.Run.RequireAssignment = false
	}
	return cfg
}

// HistoryCmd lists recorded attempts.
type HistoryCmd struct {
	RunID   string `name:"run" help:"Only attempts of this run ID."`
	Mode    string `short:"m" help:"Only attempts of this mode."`
	Outcome string `help:"Only attempts with this outcome (succeeded, failed, tool_missing)."`
	Since   string `help:"Only attempts newer than this duration, e.g. 24h."`
	Limit   int    `short:"n" default:"20" help:"Maximum number of attempts listed (0 lists all)."`
	JSON    bool   `name:"json" help:"Print attempts as JSON."`
}

// loadConfig resolves defaults < job file < environment < root flags.
func loadConfig(cli *CLI) (config.Config, error) {
	cfg := config.Defaults()
	if cli.Config != "" {
		loaded, err := config.LoadFile(cli.Config, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg, err := config.ApplyEnv(cfg)
	if err != nil {
		return cfg, err
	}
	setIf(&cfg.HistoryDB, cli.HistoryDB)
	return cfg, nil
}

func setIf(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
