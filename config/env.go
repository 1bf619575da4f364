package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-layerexport/export"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LAYEREXPORT_"

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays LAYEREXPORT_* variables from the process environment.
func ApplyEnv(cfg Config) (Config, error) {
	return ApplyLookup(cfg, os.LookupEnv)
}

// ApplyLookup overlays LAYEREXPORT_* variables resolved through lookup.
func ApplyLookup(cfg Config, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return cfg, nil
	}
	get := func(name string) (string, bool) {
		value, ok := lookup(EnvPrefix + name)
		if !ok {
			return "", false
		}
		value = strings.TrimSpace(value)
		return value, value != ""
	}

	strs := map[string]*string{
		"TEMPLATE":         &cfg.Template,
		"OUTPUT_DIR":       &cfg.OutputDir,
		"FORMAT":           &cfg.Format,
		"PREFIX":           &cfg.Prefix,
		"FILENAME_PATTERN": &cfg.FilenamePattern,
		"SCRATCH_DIR":      &cfg.ScratchDir,
		"OPENSCAD":         &cfg.Renderer.Executable,
		"HISTORY_DB":       &cfg.HistoryDB,
		"REPORT":           &cfg.Report,
	}
	for name, dst := range strs {
		if value, ok := get(name); ok {
			*dst = value
		}
	}

	if value, ok := get("MODES"); ok {
		cfg.Modes = splitList(value)
	}
	if value, ok := get("TIMEOUT"); ok {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return cfg, envError("TIMEOUT", value, err)
		}
		cfg.Timeout = timeout
	}
	if value, ok := get("CONCURRENCY"); ok {
		n, err := strconv.Atoi(value)
		if err != nil {
			return cfg, envError("CONCURRENCY", value, err)
		}
		cfg.Concurrency = n
	}
	if value, ok := get("STRICT"); ok {
		strict, err := strconv.ParseBool(value)
		if err != nil {
			return cfg, envError("STRICT", value, err)
		}
		cfg.Run.Strict = strict
	}
	return cfg, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envError(name, value string, err error) error {
	return export.NewError(export.KindValidation, fmt.Sprintf("invalid %s%s %q", EnvPrefix, name, value), err)
}
