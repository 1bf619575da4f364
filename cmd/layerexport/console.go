package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/goliatone/go-layerexport/export"
)

// consoleLogger writes leveled lines; debug lines only when verbose.
type consoleLogger struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

func newConsoleLogger(w io.Writer, verbose bool) *consoleLogger {
	return &consoleLogger{w: w, verbose: verbose}
}

func (l *consoleLogger) Debugf(format string, args ...any) {
	if l.verbose {
		l.printf("debug", format, args...)
	}
}

// Infof is only shown when verbose; the console emitter reports progress.
func (l *consoleLogger) Infof(format string, args ...any) {
	if l.verbose {
		l.printf("info", format, args...)
	}
}

func (l *consoleLogger) Errorf(format string, args ...any) {
	if l.verbose {
		l.printf("error", format, args...)
	}
}

func (l *consoleLogger) printf(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "[%s] %s\n", level, fmt.Sprintf(format, args...))
}

const bannerWidth = 60

// consoleEmitter renders runner lifecycle events as progress output.
type consoleEmitter struct {
	mu        sync.Mutex
	w         io.Writer
	outputDir string
}

func newConsoleEmitter(w io.Writer) *consoleEmitter {
	return &consoleEmitter{w: w}
}

func (e *consoleEmitter) Emit(ctx context.Context, evt export.ChangeEvent) error {
	_ = ctx
	e.mu.Lock()
	defer e.mu.Unlock()

	banner := strings.Repeat("=", bannerWidth)
	switch evt.Name {
	case export.EventRunStarted:
		e.outputDir, _ = evt.Metadata["output_dir"].(string)
		e.println(banner)
		e.println("OpenSCAD Layer Export")
		e.println(banner)
		e.println("")
		e.printf("Output directory: %s/\n", strings.TrimSuffix(e.outputDir, "/"))
		e.println("")
	case export.EventModeStarted:
		e.printf("Exporting %s...\n", evt.Mode)
	case export.EventModeSucceeded:
		e.printf("  ✓ Successfully exported to %s\n", evt.OutputPath)
	case export.EventModeFailed:
		e.printf("  ✗ Error exporting %s\n", evt.Mode)
		if msg := metadataString(evt, "error"); msg != "" {
			for _, line := range strings.Split(msg, "\n") {
				e.printf("    %s\n", line)
			}
		}
	case export.EventModeTimeout:
		e.printf("  ✗ Timeout while exporting %s\n", evt.Mode)
	case export.EventModeToolMissing:
		e.printf("  ✗ %s\n", metadataString(evt, "error"))
		e.println("    Set --openscad or LAYEREXPORT_OPENSCAD to the OpenSCAD executable path")
	case export.EventScratchLeft:
		e.printf("  ! Could not remove scratch file %s: %s\n", metadataString(evt, "path"), metadataString(evt, "error"))
	case export.EventModeSkipped:
		e.printf("  - Skipped %s: OpenSCAD executable not available\n", evt.Mode)
	case export.EventRunCompleted:
		total, _ := evt.Metadata["total"].(int)
		succeeded, _ := evt.Metadata["succeeded"].(int)
		e.println("")
		e.println(banner)
		e.printf("Export complete! %d/%d files exported successfully\n", succeeded, total)
		e.printf("Files saved in: %s/\n", strings.TrimSuffix(e.outputDir, "/"))
		e.println(banner)
		if evt.Format != export.FormatDXF {
			e.println("")
			e.println("Note: To export as DXF instead of SVG, pass --format dxf")
		}
	}
	return nil
}

func (e *consoleEmitter) println(line string) {
	fmt.Fprintln(e.w, line)
}

func (e *consoleEmitter) printf(format string, args ...any) {
	fmt.Fprintf(e.w, format, args...)
}

func metadataString(evt export.ChangeEvent, key string) string {
	if evt.Metadata == nil {
		return ""
	}
	value, ok := evt.Metadata[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}
