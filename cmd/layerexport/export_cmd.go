package main

import (
	"os"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"

	exportopenscad "github.com/goliatone/go-layerexport/adapters/openscad"
	trackerbun "github.com/goliatone/go-layerexport/adapters/tracker/bun"
	"github.com/goliatone/go-layerexport/command"
	"github.com/goliatone/go-layerexport/export"
)

// Run exports every configured mode and maps the outcome to an exit code.
func (c *ExportCmd) Run(app *App) error {
	cfg, err := loadConfig(app.CLI)
	if err != nil {
		return usage("Error: %s", export.MessageFromError(err))
	}
	cfg = c.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return usage("Error: %s", export.MessageFromError(err))
	}

	renderer := exportopenscad.Renderer{
		Command: cfg.Renderer.Executable,
		Args:    cfg.Renderer.Args,
		Env:     cfg.Renderer.Env,
		Timeout: cfg.Timeout,
	}
	runner := export.NewRunner(cfg.ToExport(), renderer)
	runner.Logger = app.Logger
	runner.Emitter = newConsoleEmitter(app.Stdout)

	var tracker export.ProgressTracker
	if cfg.HistoryDB != "" {
		db, err := trackerbun.OpenSQLite(app.Context, cfg.HistoryDB)
		if err != nil {
			return failure("Error: %s", export.MessageFromError(err))
		}
		defer db.Close()
		tracker = trackerbun.NewTracker(db)
		runner.Tracker = tracker
	}

	subs, err := registerHandlers(gcmd.NewRegistry(), runner, tracker, app.Logger)
	defer unsubscribeAll(subs)
	if err != nil {
		return failure("Error: %v", err)
	}

	summary, err := dispatcher.DispatchWithResult[command.ExportLayers, export.Summary](app.Context, command.ExportLayers{})
	if err != nil {
		return fatalRunError(cfg.Template, err)
	}

	if cfg.Report != "" {
		if err := export.WriteReportFile(cfg.Report, summary); err != nil {
			return failure("Error: write report: %s", export.MessageFromError(err))
		}
		app.Logger.Debugf("report written to %s", cfg.Report)
	}

	if cfg.Run.Strict && !summary.AllSucceeded() {
		return failure("Error: %d of %d modes failed", summary.Failed(), summary.Total)
	}
	return nil
}

func fatalRunError(template string, err error) error {
	switch export.KindFromError(err) {
	case export.KindMissingInput:
		msg := "Error: " + export.MessageFromError(err)
		if wd, wdErr := os.Getwd(); wdErr == nil {
			msg += "\nCurrent directory: " + wd
		}
		return failure("%s", msg)
	case export.KindPatternNotFound:
		return failure("Error: %s\n  Add a line such as: export_mode = \"preview\";", export.MessageFromError(err))
	case export.KindValidation:
		return usage("Error: %s", export.MessageFromError(err))
	default:
		return failure("Error: exporting %s: %s", template, export.MessageFromError(err))
	}
}
