package exportopenscad

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/goliatone/go-layerexport/export"
)

// DefaultCommand is the executable name resolved through PATH.
const DefaultCommand = "openscad"

// waitDelay bounds how long Wait blocks on inherited pipes after the
// process is killed.
const waitDelay = 2 * time.Second

// Renderer invokes the OpenSCAD CLI to export a single scratch file.
type Renderer struct {
	Command string
	Args    []string
	Env     []string
	Timeout time.Duration
}

var _ export.Renderer = Renderer{}

// Render runs the executable for req and waits for it to exit.
func (r Renderer) Render(ctx context.Context, req export.RenderRequest) error {
	cmdPath := r.command()
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(req.InputPath) == "" {
		return export.NewError(export.KindValidation, "openscad renderer requires an input path", nil)
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return export.NewError(export.KindValidation, "openscad renderer requires an output path", nil)
	}

	timeout := r.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	cmdCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, cmdPath, r.args(req)...)
	cmd.WaitDelay = waitDelay
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	var stderr bytes.Buffer
	cmd.Stdout = &bytes.Buffer{}
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	if isNotFound(err) {
		return export.NewError(export.KindToolMissing, fmt.Sprintf("openscad executable not found: %s", cmdPath), err)
	}
	if ctxErr := cmdCtx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) && ctx.Err() == nil {
			return export.NewError(export.KindTimeout, fmt.Sprintf("%s timed out after %s", cmdPath, timeout), ctxErr)
		}
		return export.NewError(export.KindCanceled, fmt.Sprintf("%s canceled", cmdPath), ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = fmt.Sprintf("%s exited with status %d", cmdPath, code)
		}
		return export.NewExitError(code, message, err)
	}
	return export.NewError(export.KindInternal, fmt.Sprintf("run %s", cmdPath), err)
}

func (r Renderer) command() string {
	cmdPath := strings.TrimSpace(r.Command)
	if cmdPath == "" {
		cmdPath = DefaultCommand
	}
	return cmdPath
}

func (r Renderer) args(req export.RenderRequest) []string {
	format := export.NormalizeFormat(req.Format)
	args := []string{"-o", req.OutputPath, "--export-format", string(format)}
	args = append(args, r.Args...)
	return append(args, req.InputPath)
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
