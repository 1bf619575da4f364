// Command layerexport renders every layer of a parametric OpenSCAD model to
// SVG or DXF files for laser cutting.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, executes the selected command and returns the process
// exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cli CLI
	exited, exitCode := false, 0
	parser, err := kong.New(&cli,
		kong.Name("layerexport"),
		kong.Description("Export every layer of an OpenSCAD model for laser cutting."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) {
			exited = true
			exitCode = code
		}),
	)
	if err != nil {
		fmt.Fprintf(stderr, "layerexport: %v\n", err)
		return exitUsage
	}

	kctx, err := parser.Parse(args)
	if exited {
		return exitCode
	}
	if err != nil {
		fmt.Fprintf(stderr, "layerexport: %v\n", err)
		return exitUsage
	}

	app := &App{
		Context: ctx,
		CLI:     &cli,
		Stdout:  stdout,
		Stderr:  stderr,
		Logger:  newConsoleLogger(stderr, cli.Verbose),
	}
	if err := kctx.Run(app); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(stderr, exitErr.Message)
			}
			return exitErr.Code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// ExitError carries a message and the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func failure(format string, args ...any) *ExitError {
	return &ExitError{Code: exitFailure, Message: fmt.Sprintf(format, args...)}
}

func usage(format string, args ...any) *ExitError {
	return &ExitError{Code: exitUsage, Message: fmt.Sprintf(format, args...)}
}
