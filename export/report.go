package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReportWriter writes a run summary in a machine-readable format.
type ReportWriter interface {
	Write(w io.Writer, summary Summary) error
}

// ReportWriterFor selects a report writer from the extension of path.
func ReportWriterFor(path string) (ReportWriter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSONReportWriter{Indent: "  "}, nil
	case ".xlsx":
		return XLSXReportWriter{}, nil
	default:
		return nil, NewError(KindValidation, fmt.Sprintf("unsupported report format %q", filepath.Ext(path)), nil)
	}
}

// WriteReportFile writes summary to path using the writer chosen by its extension.
func WriteReportFile(path string, summary Summary) error {
	writer, err := ReportWriterFor(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return NewError(KindIO, fmt.Sprintf("create report directory %s", dir), err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return NewError(KindIO, fmt.Sprintf("create report %s", path), err)
	}
	if err := writer.Write(file, summary); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return NewError(KindIO, fmt.Sprintf("close report %s", path), err)
	}
	return nil
}
