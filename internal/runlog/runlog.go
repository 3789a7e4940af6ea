// Package runlog writes the per-source-file audit log.
//
// Every processed source file gets one CSV object under the logs prefix:
//
//	date,file_name,sequence_number,issuer_chargeback_amount,mop,record_count
//
// In summary mode the log has exactly one data row with blank business
// columns. In per_record mode it has one row per eligible record, each
// carrying the file's record count. A file with nothing to report always
// gets the single blank row with a count of 0.
package runlog

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/config"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/dfrparser"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/indexwriter"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/store"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

// Header is the audit log column row.
var Header = []string{"date", "file_name", "sequence_number", "issuer_chargeback_amount", "mop", "record_count"}

// Entry is the audit information of one source file.
type Entry struct {
	// FileDate is the YYYYMMDD date extracted from the source name.
	FileDate string

	// SourceName is the full source object name.
	SourceName string

	// Records are the eligible records, used by per_record mode.
	Records []types.ChargebackRecord

	// Count is the record count written on every row.
	Count int
}

// Render produces the CSV content of an entry.
func Render(mode string, e Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{Header}
	count := strconv.Itoa(e.Count)

	if mode == config.AuditPerRecord && e.Count > 0 && len(e.Records) > 0 {
		for _, rec := range e.Records {
			rows = append(rows, []string{e.FileDate, e.SourceName, rec.SequenceNumber, rec.IssuerChargebackAmount, rec.MOP, count})
		}
	} else {
		rows = append(rows, []string{e.FileDate, e.SourceName, "", "", "", count})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to render audit log: %w", err)
	}
	return buf.Bytes(), nil
}

// Writer stores audit logs.
type Writer struct {
	store  store.Store
	prefix string
	mode   string
}

// NewWriter creates a writer storing logs in s under prefix.
func NewWriter(s store.Store, prefix, mode string) *Writer {
	return &Writer{store: s, prefix: prefix, mode: mode}
}

// ObjectName returns where the log of a source file is stored.
func (w *Writer) ObjectName(sourceName string) (string, error) {
	segment, err := dfrparser.LogSegment(sourceName)
	if err != nil {
		return "", err
	}
	return indexwriter.LogName(w.prefix, segment), nil
}

// Write renders and stores the log of one source file and returns its name.
func (w *Writer) Write(ctx context.Context, e Entry) (string, error) {
	name, err := w.ObjectName(e.SourceName)
	if err != nil {
		return "", err
	}

	content, err := Render(w.mode, e)
	if err != nil {
		return "", err
	}

	if err := w.store.WriteBytes(ctx, name, content); err != nil {
		return "", fmt.Errorf("failed to write audit log %s: %w", name, err)
	}
	return name, nil
}
