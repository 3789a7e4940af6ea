// =============================================================================
// DFR Chargeback Bundler - Batch Summary Workbook
// =============================================================================
//
// This module renders the outcome of one batch as an XLSX workbook for the
// disputes team. The workbook has a single sheet:
//
//   | File | File Date | Candidates | Eligible | Rejected | Composite | Uploads |
//   |------|-----------|------------|----------|----------|-----------|---------|
//   | ...  | 20240301  | 3          | 2        | 0        | 0000...   | 2       |
//
// followed by a totals row. The workbook is stored next to the audit logs
// as "<logs prefix>/summary_<YYYYMMDDHHMMSS>.xlsx".
//
// =============================================================================

package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/store"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

// SheetName is the name of the summary sheet.
const SheetName = "Batch Summary"

// Columns are the header cells of the summary sheet.
var Columns = []string{"File", "File Date", "Candidates", "Eligible", "Rejected", "Composite", "Uploads"}

// Render builds the summary workbook for a batch.
//
// PARAMETERS:
//   - result: The batch result. Files are written in processing order.
//
// RETURNS:
//   - The XLSX file content.
//   - An error if the workbook cannot be built.
func Render(result types.BatchResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := setRow(f, 1, toCells(Columns)); err != nil {
		return nil, err
	}

	var candidates, eligible, rejected int
	for i, file := range result.Files {
		row := []interface{}{
			file.SourceName,
			file.FileDate,
			file.Candidates,
			file.Eligible,
			file.Rejected,
			file.CompositeName,
			len(file.Uploaded),
		}
		if err := setRow(f, i+2, row); err != nil {
			return nil, err
		}
		candidates += file.Candidates
		eligible += file.Eligible
		rejected += file.Rejected
	}

	totals := []interface{}{"Total", "", candidates, eligible, rejected, "", ""}
	if err := setRow(f, len(result.Files)+2, totals); err != nil {
		return nil, err
	}

	if err := styleHeader(f); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ObjectName names the workbook of a batch finished at now.
func ObjectName(logsPrefix string, now time.Time) string {
	return strings.TrimSuffix(logsPrefix, "/") + "/summary_" + now.Format("20060102150405") + ".xlsx"
}

// Write renders the workbook and stores it, returning the object name.
func Write(ctx context.Context, s store.Store, logsPrefix string, now time.Time, result types.BatchResult) (string, error) {
	content, err := Render(result)
	if err != nil {
		return "", err
	}

	name := ObjectName(logsPrefix, now)
	if err := s.WriteBytes(ctx, name, content); err != nil {
		return "", fmt.Errorf("failed to store summary workbook: %w", err)
	}
	return name, nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func styleHeader(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Columns), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(SheetName, "A1", last, style)
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
