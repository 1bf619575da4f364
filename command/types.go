package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-layerexport/export"
)

// ExportLayers runs every configured mode (or Modes, when set).
type ExportLayers struct {
	Modes  []export.Mode
	Result *export.Summary
}

func (ExportLayers) Type() string { return "layers:export" }

func (msg ExportLayers) Validate() error {
	if len(msg.Modes) == 0 {
		return nil
	}
	seen := make(map[export.Mode]struct{}, len(msg.Modes))
	for _, mode := range msg.Modes {
		if err := export.ValidateMode(mode); err != nil {
			return errors.New(fmt.Sprintf("invalid mode %q", mode), errors.CategoryValidation).
				WithTextCode("MODE_INVALID")
		}
		if _, ok := seen[mode]; ok {
			return errors.New(fmt.Sprintf("duplicate mode %q", mode), errors.CategoryValidation).
				WithTextCode("MODE_DUPLICATE")
		}
		seen[mode] = struct{}{}
	}
	return nil
}

// ExportLayer exports a single mode to an explicit output path.
type ExportLayer struct {
	TemplatePath string
	Mode         export.Mode
	OutputPath   string
	Result       *export.ModeResult
}

func (ExportLayer) Type() string { return "layers:export_one" }

func (msg ExportLayer) Validate() error {
	if strings.TrimSpace(msg.TemplatePath) == "" {
		return errors.New("template path is required", errors.CategoryValidation).
			WithTextCode("TEMPLATE_REQUIRED")
	}
	if err := export.ValidateMode(msg.Mode); err != nil {
		return errors.New(fmt.Sprintf("invalid mode %q", msg.Mode), errors.CategoryValidation).
			WithTextCode("MODE_INVALID")
	}
	if strings.TrimSpace(msg.OutputPath) == "" {
		return errors.New("output path is required", errors.CategoryValidation).
			WithTextCode("OUTPUT_REQUIRED")
	}
	return nil
}
