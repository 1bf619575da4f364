package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	defaultReportSheet = "Export"
	defaultDateTime    = "yyyy-mm-dd hh:mm:ss"
	defaultSecondsFmt  = "0.000"
)

var xlsxReportHeaders = []string{"Mode", "Outcome", "Output", "Message", "Error Kind", "Skipped", "Started", "Seconds"}

// XLSXReportWriter writes the summary as a single-sheet workbook.
type XLSXReportWriter struct {
	SheetName string
}

// Write renders one header row and one row per mode.
func (r XLSXReportWriter) Write(w io.Writer, summary Summary) error {
	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()

	sheetName := r.SheetName
	if sheetName == "" {
		sheetName = defaultReportSheet
	}
	defaultSheet := file.GetSheetName(0)
	if defaultSheet != sheetName {
		file.SetSheetName(defaultSheet, sheetName)
	}

	stream, err := file.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	headerID, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	dateTimeID, err := newCustomStyle(file, defaultDateTime)
	if err != nil {
		return err
	}
	secondsID, err := newCustomStyle(file, defaultSecondsFmt)
	if err != nil {
		return err
	}

	headers := make([]interface{}, len(xlsxReportHeaders))
	for i, label := range xlsxReportHeaders {
		headers[i] = excelize.Cell{StyleID: headerID, Value: label}
	}
	if err := stream.SetRow("A1", headers); err != nil {
		return err
	}

	for i, res := range summary.Results {
		cells := []interface{}{
			excelize.Cell{Value: string(res.Mode)},
			excelize.Cell{Value: string(res.Outcome)},
			excelize.Cell{Value: res.OutputPath},
			excelize.Cell{Value: res.Message},
			excelize.Cell{Value: string(res.ErrorKind)},
			excelize.Cell{Value: res.Skipped},
			excelize.Cell{Value: res.StartedAt, StyleID: dateTimeID},
			excelize.Cell{Value: res.Duration.Seconds(), StyleID: secondsID},
		}
		if err := stream.SetRow(fmt.Sprintf("A%d", i+2), cells); err != nil {
			return err
		}
	}

	footer := []interface{}{
		excelize.Cell{StyleID: headerID, Value: "Total"},
		excelize.Cell{Value: fmt.Sprintf("%d/%d succeeded", summary.Succeeded, summary.Total)},
	}
	if err := stream.SetRow(fmt.Sprintf("A%d", len(summary.Results)+3), footer); err != nil {
		return err
	}

	if err := stream.Flush(); err != nil {
		return err
	}
	_, err = file.WriteTo(w)
	return err
}

func newCustomStyle(file *excelize.File, format string) (int, error) {
	if format == "" {
		return 0, nil
	}
	return file.NewStyle(&excelize.Style{CustomNumFmt: &format})
}
