package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/goliatone/go-layerexport/export"
)

// fileConfig mirrors the HCL job file. Pointer fields distinguish an
// absent attribute from a zero value.
type fileConfig struct {
	Template        *string     `hcl:"template,optional"`
	OutputDir       *string     `hcl:"output_dir,optional"`
	Modes           []string    `hcl:"modes,optional"`
	Format          *string     `hcl:"format,optional"`
	Prefix          *string     `hcl:"prefix,optional"`
	FilenamePattern *string     `hcl:"filename_pattern,optional"`
	ScratchDir      *string     `hcl:"scratch_dir,optional"`
	Timeout         *string     `hcl:"timeout,optional"`
	Concurrency     *int        `hcl:"concurrency,optional"`
	HistoryDB       *string     `hcl:"history_db,optional"`
	Report          *string     `hcl:"report,optional"`
	Renderer        *fileRender `hcl:"renderer,block"`
	Run             *fileRun    `hcl:"run,block"`
}

type fileRender struct {
	Executable *string  `hcl:"executable,optional"`
	Args       []string `hcl:"args,optional"`
	Env        []string `hcl:"env,optional"`
}

type fileRun struct {
	RequireAssignment *bool `hcl:"require_assignment,optional"`
	StopOnToolMissing *bool `hcl:"stop_on_tool_missing,optional"`
	Strict            *bool `hcl:"strict,optional"`
}

// LoadFile decodes the HCL job file at path over base.
func LoadFile(path string, base Config) (Config, error) {
	var file fileConfig
	if err := hclsimple.DecodeFile(path, nil, &file); err != nil {
		return base, export.NewError(export.KindValidation, fmt.Sprintf("decode config %s", path), err)
	}
	return file.apply(base)
}

// Decode decodes HCL source over base. filename is used for diagnostics and
// must end in .hcl.
func Decode(filename string, src []byte, base Config) (Config, error) {
	var file fileConfig
	if err := hclsimple.Decode(filename, src, nil, &file); err != nil {
		return base, export.NewError(export.KindValidation, fmt.Sprintf("decode config %s", filename), err)
	}
	return file.apply(base)
}

func (f fileConfig) apply(cfg Config) (Config, error) {
	setString(&cfg.Template, f.Template)
	setString(&cfg.OutputDir, f.OutputDir)
	setString(&cfg.Format, f.Format)
	setString(&cfg.Prefix, f.Prefix)
	setString(&cfg.FilenamePattern, f.FilenamePattern)
	setString(&cfg.ScratchDir, f.ScratchDir)
	setString(&cfg.HistoryDB, f.HistoryDB)
	setString(&cfg.Report, f.Report)
	if f.Modes != nil {
		cfg.Modes = append([]string(nil), f.Modes...)
	}
	if f.Timeout != nil {
		timeout, err := time.ParseDuration(*f.Timeout)
		if err != nil {
			return cfg, export.NewError(export.KindValidation, fmt.Sprintf("invalid timeout %q", *f.Timeout), err)
		}
		cfg.Timeout = timeout
	}
	if f.Concurrency != nil {
		cfg.Concurrency = *f.Concurrency
	}
	if f.Renderer != nil {
		setString(&cfg.Renderer.Executable, f.Renderer.Executable)
		if f.Renderer.Args != nil {
			cfg.Renderer.Args = append([]string(nil), f.Renderer.Args...)
		}
		if f.Renderer.Env != nil {
			cfg.Renderer.Env = append([]string(nil), f.Renderer.Env...)
		}
	}
	if f.Run != nil {
		setBool(&cfg.Run.RequireAssignment, f.Run.RequireAssignment)
		setBool(&cfg.Run.StopOnToolMissing, f.Run.StopOnToolMissing)
		setBool(&cfg.Run.Strict, f.Run.Strict)
	}
	return cfg, nil
}

func setString(dst *string, value *string) {
	if value != nil {
		*dst = *value
	}
}

func setBool(dst *bool, value *bool) {
	if value != nil {
		*dst = *value
	}
}
