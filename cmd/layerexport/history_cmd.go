package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"

	trackerbun "github.com/goliatone/go-layerexport/adapters/tracker/bun"
	"github.com/goliatone/go-layerexport/export"
	"github.com/goliatone/go-layerexport/query"
)

// Run prints recorded attempts, newest first.
func (c *HistoryCmd) Run(app *App) error {
	cfg, err := loadConfig(app.CLI)
	if err != nil {
		return usage("Error: %s", export.MessageFromError(err))
	}
	if cfg.HistoryDB == "" {
		return usage("Error: history database not configured; pass --history-db or set LAYEREXPORT_HISTORY_DB")
	}

	filter := export.AttemptFilter{
		RunID:   c.RunID,
		Mode:    export.Mode(c.Mode),
		Outcome: export.Outcome(c.Outcome),
		Limit:   c.Limit,
	}
	if c.Since != "" {
		since, err := time.ParseDuration(c.Since)
		if err != nil {
			return usage("Error: invalid --since %q", c.Since)
		}
		filter.Since = time.Now().Add(-since)
	}

	db, err := trackerbun.OpenSQLite(app.Context, cfg.HistoryDB)
	if err != nil {
		return failure("Error: %s", export.MessageFromError(err))
	}
	defer db.Close()

	subs, err := registerHandlers(gcmd.NewRegistry(), nil, trackerbun.NewTracker(db), app.Logger)
	defer unsubscribeAll(subs)
	if err != nil {
		return failure("Error: %v", err)
	}

	records, err := dispatcher.Query[query.RunHistory, []export.AttemptRecord](app.Context, query.RunHistory{Filter: filter})
	if err != nil {
		return usage("Error: %v", err)
	}

	if c.JSON {
		encoder := json.NewEncoder(app.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(app.Stdout, "No export attempts recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(app.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tRUN\tMODE\tFORMAT\tOUTCOME\tOUTPUT\tMESSAGE")
	for _, record := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			record.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			shortID(record.RunID),
			record.Mode,
			record.Format,
			outcomeLabel(record.Outcome),
			record.OutputPath,
			firstLine(record.Message),
		)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func outcomeLabel(outcome export.Outcome) string {
	if outcome == "" {
		return "pending"
	}
	return string(outcome)
}

func firstLine(msg string) string {
	for i, r := range msg {
		if r == '\n' {
			return msg[:i]
		}
	}
	return msg
}
