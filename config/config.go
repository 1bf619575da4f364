package config

import (
	"time"

	"github.com/goliatone/go-layerexport/export"
)

// Config holds the layer export job configuration.
type Config struct {
	Template        string
	OutputDir       string
	Modes           []string
	Format          string
	Prefix          string
	FilenamePattern string
	ScratchDir      string
	Timeout         time.Duration
	Concurrency     int
	Renderer        RendererConfig
	Run             RunConfig
	HistoryDB       string
	Report          string
}

// RendererConfig holds settings for the OpenSCAD executable.
type RendererConfig struct {
	Executable string
	Args       []string
	Env        []string
}

// RunConfig toggles driver behavior.
type RunConfig struct {
	RequireAssignment bool
	StopOnToolMissing bool
	Strict            bool
}

// Defaults returns a Config matching the stock reminder board layout.
func Defaults() Config {
	modes := make([]string, 0, len(export.DefaultModes))
	for _, mode := range export.DefaultModes {
		modes = append(modes, string(mode))
	}
	return Config{
		Template:        "reminder_board.scad",
		OutputDir:       "laser_cuts",
		Modes:           modes,
		Format:          string(export.FormatSVG),
		FilenamePattern: export.DefaultFilenamePattern,
		Timeout:         export.DefaultTimeout,
		Concurrency:     1,
		Renderer: RendererConfig{
			Executable: "openscad",
		},
		Run: RunConfig{
			RequireAssignment: true,
			StopOnToolMissing: true,
		},
	}
}

// ToExport builds the driver configuration.
func (c Config) ToExport() export.Config {
	modes := make([]export.Mode, 0, len(c.Modes))
	for _, mode := range c.Modes {
		modes = append(modes, export.Mode(mode))
	}
	return export.Config{
		TemplatePath:      c.Template,
		OutputDir:         c.OutputDir,
		Modes:             modes,
		Format:            export.Format(c.Format),
		Prefix:            c.Prefix,
		FilenamePattern:   c.FilenamePattern,
		ScratchDir:        c.ScratchDir,
		Timeout:           c.Timeout,
		Concurrency:       c.Concurrency,
		RequireAssignment: c.Run.RequireAssignment,
		StopOnToolMissing: c.Run.StopOnToolMissing,
	}
}

// Validate checks settings that the driver does not cover.
func (c Config) Validate() error {
	if c.Timeout < 0 {
		return export.NewError(export.KindValidation, "timeout must not be negative", nil)
	}
	if c.Concurrency < 0 {
		return export.NewError(export.KindValidation, "concurrency must not be negative", nil)
	}
	return c.ToExport().Normalize().Validate()
}
