package export

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var modeNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateMode checks that mode is safe to embed in a file name and a quoted
// string literal.
func ValidateMode(mode Mode) error {
	if strings.TrimSpace(string(mode)) == "" {
		return NewError(KindValidation, "mode is required", nil)
	}
	if !modeNamePattern.MatchString(string(mode)) {
		return NewError(KindValidation, fmt.Sprintf("invalid mode %q", mode), nil)
	}
	return nil
}

// ValidateModes checks every mode and rejects duplicates.
func ValidateModes(modes []Mode) error {
	if len(modes) == 0 {
		return NewError(KindValidation, "at least one mode is required", nil)
	}
	seen := make(map[Mode]struct{}, len(modes))
	for _, mode := range modes {
		if err := ValidateMode(mode); err != nil {
			return err
		}
		if _, ok := seen[mode]; ok {
			return NewError(KindValidation, fmt.Sprintf("duplicate mode %q", mode), nil)
		}
		seen[mode] = struct{}{}
	}
	return nil
}

// Normalize returns a copy of cfg with defaults applied.
func (cfg Config) Normalize() Config {
	out := cfg
	out.TemplatePath = strings.TrimSpace(out.TemplatePath)
	out.OutputDir = strings.TrimSpace(out.OutputDir)
	if out.OutputDir == "" {
		out.OutputDir = "."
	}
	out.Format = NormalizeFormat(out.Format)
	if len(out.Modes) == 0 {
		out.Modes = append([]Mode{}, DefaultModes...)
	} else {
		out.Modes = append([]Mode{}, out.Modes...)
	}
	if strings.TrimSpace(out.Prefix) == "" && out.TemplatePath != "" {
		out.Prefix = templateStem(out.TemplatePath)
	}
	if strings.TrimSpace(out.FilenamePattern) == "" {
		out.FilenamePattern = DefaultFilenamePattern
	}
	if strings.TrimSpace(out.ScratchDir) == "" && out.TemplatePath != "" {
		out.ScratchDir = filepath.Dir(out.TemplatePath)
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Concurrency <= 0 {
		out.Concurrency = 1
	}
	return out
}

// Validate checks a normalized config.
func (cfg Config) Validate() error {
	if cfg.TemplatePath == "" {
		return NewError(KindValidation, "template path is required", nil)
	}
	if !cfg.Format.Supported() {
		return NewError(KindValidation, fmt.Sprintf("unsupported format %q", cfg.Format), nil)
	}
	if err := ValidateModes(cfg.Modes); err != nil {
		return err
	}
	return nil
}
