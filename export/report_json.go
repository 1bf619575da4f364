package export

import (
	"encoding/json"
	"io"
	"time"
)

// JSONReportWriter writes the summary as a single JSON document.
type JSONReportWriter struct {
	Indent string
}

type jsonReport struct {
	RunID      string             `json:"run_id"`
	OutputDir  string             `json:"output_dir"`
	Format     Format             `json:"format"`
	Total      int                `json:"total"`
	Succeeded  int                `json:"succeeded"`
	Failed     int                `json:"failed"`
	StartedAt  time.Time          `json:"started_at"`
	DurationMS int64              `json:"duration_ms"`
	Results    []jsonReportResult `json:"results"`
}

type jsonReportResult struct {
	Mode       Mode      `json:"mode"`
	Outcome    Outcome   `json:"outcome"`
	OutputPath string    `json:"output_path"`
	Message    string    `json:"message,omitempty"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	Skipped    bool      `json:"skipped,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// Write encodes summary to w.
func (r JSONReportWriter) Write(w io.Writer, summary Summary) error {
	report := jsonReport{
		RunID:      summary.RunID,
		OutputDir:  summary.OutputDir,
		Format:     summary.Format,
		Total:      summary.Total,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed(),
		StartedAt:  summary.StartedAt,
		DurationMS: summary.Duration.Milliseconds(),
		Results:    make([]jsonReportResult, 0, len(summary.Results)),
	}
	for _, res := range summary.Results {
		report.Results = append(report.Results, jsonReportResult{
			Mode:       res.Mode,
			Outcome:    res.Outcome,
			OutputPath: res.OutputPath,
			Message:    res.Message,
			ErrorKind:  res.ErrorKind,
			Skipped:    res.Skipped,
			DurationMS: res.Duration.Milliseconds(),
		})
	}

	encoder := json.NewEncoder(w)
	if r.Indent != "" {
		encoder.SetIndent("", r.Indent)
	}
	return encoder.Encode(report)
}
