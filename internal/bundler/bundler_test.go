package bundler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/config"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/logger"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/runlock"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/store"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const (
	sourceName   = "paymentech/dfr_a/0000078319.240301.d.6A05.dfr_a.01.txt"
	templateName = "chargeback_automation/terms_conditions/agreement.pdf"
	cursorName   = "chargeback_automation/last_run/last_run_time.txt"
	logName      = "chargeback_automation/logs/paymentech_DFRs/0000078319.240301.d.6A05.dfr_a.01.txt.log"
	uploadName   = "chargeback_automation/p_0000078319.20240301134530.zip"
	indexName    = "20240301134530.078319.txt"
)

var (
	runTime  = time.Date(2024, 3, 1, 13, 45, 30, 0, time.UTC)
	arrival  = time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	template = []byte("%PDF-1.4 placeholder")
)

const testYAML = `
source:
  backend: memory
  bucket: source
state:
  backend: memory
  bucket: state
  template_object: chargeback_automation/terms_conditions/agreement.pdf
sinks:
  - name: archive
    backend: memory
    bucket: archive
  - name: partner
    backend: memory
    bucket: partner
submission:
  presenter_id: "581008"
  password: SECRET
  submitter_id: "581008"
  company_id: "078319"
  company_name: Example Radio Inc.
`

type fixture struct {
	cfg     *config.Config
	source  *store.Memory
	state   *store.Memory
	archive *store.Memory
	partner *store.Memory
	stores  *store.Stores
	logs    *bytes.Buffer
}

func newFixture(t *testing.T, patch func(*config.Config)) *fixture {
	t.Helper()

	cfg, err := config.Parse([]byte(testYAML))
	require.NoError(t, err)
	cfg.Processing.WorkDir = t.TempDir()
	if patch != nil {
		patch(cfg)
	}

	f := &fixture{
		cfg:     cfg,
		source:  store.NewMemory(),
		state:   store.NewMemory(),
		archive: store.NewMemory(),
		partner: store.NewMemory(),
		logs:    &bytes.Buffer{},
	}
	f.state.Put(templateName, template, arrival)
	f.stores = &store.Stores{
		Source: f.source,
		State:  f.state,
		Sinks: []store.Sink{
			store.NewStoreSink("archive", f.archive, "chargeback_automation"),
			store.NewStoreSink("partner", f.partner, "chargeback_automation"),
		},
		Template: store.NewStoreTemplate(f.state, templateName),
	}
	return f
}

func (f *fixture) processor(t *testing.T, lock runlock.Lock) *Processor {
	t.Helper()
	p, err := New(f.cfg, f.stores, lock, logger.New(f.logs, logger.DEBUG))
	require.NoError(t, err)
	p.SetClock(func() time.Time { return runTime })
	return p
}

func (f *fixture) read(t *testing.T, s *store.Memory, name string) string {
	t.Helper()
	text, err := s.ReadText(context.Background(), name)
	require.NoError(t, err)
	return text
}

// dfrLine builds a 25-field dispute line. Overrides are keyed by field index.
func dfrLine(overrides map[int]string) string {
	fields := []string{
		"RACT0010", "TD", "000123", "-5.00", "N", "USD", "RTM", "A",
		"000000001", "ORDER-1", "4111111111111111", "12", "240101", "240105",
		"240301", "-5.00", "0.00", "1", "", "VI", "240101", "240320", "T-1",
		"N", "Y",
	}
	for i, v := range overrides {
		fields[i] = v
	}
	return strings.Join(fields, "|")
}

func extract(lines ...string) []byte {
	return []byte("HDR|PAYMENTECH DFR|240301\n" + strings.Join(lines, "\n") + "\nTRL|END\n")
}

func unzip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = string(content)
	}
	return out
}

type failingSink struct{}

func (failingSink) Name() string { return "broken" }
func (failingSink) Upload(context.Context, []byte, string) (string, error) {
	return "", errors.New("access denied")
}

type heldLock struct{}

func (heldLock) Acquire(context.Context) (bool, error) { return false, nil }
func (heldLock) Release(context.Context) error         { return nil }
func (heldLock) Close() error                          { return nil }

// =============================================================================
// END-TO-END SCENARIOS
// =============================================================================

func TestRunSingleEligibleRecord(t *testing.T) {
	f := newFixture(t, nil)
	f.source.Put(sourceName, extract(dfrLine(nil)), arrival)

	result, err := f.processor(t, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, types.StatusSuccess, result.Status)
	assert.Equal(t, 1, result.ProcessedFiles)
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Files, 1)

	fr := result.Files[0]
	assert.Equal(t, "20240301", fr.FileDate)
	assert.Equal(t, 1, fr.Candidates)
	assert.Equal(t, 1, fr.Eligible)
	assert.Equal(t, "0000078319.20240301134530.zip", fr.CompositeName)
	assert.Equal(t, []string{uploadName, uploadName}, fr.Uploaded)
	assert.Equal(t, logName, fr.LogObject)

	// Both sinks received the same composite.
	composite := []byte(f.read(t, f.archive, uploadName))
	assert.Equal(t, string(composite), f.read(t, f.partner, uploadName))

	header := string(composite[:120])
	assert.True(t, strings.HasPrefix(header, "PID=581008 SECRET SID=581008 CBZTIFF  START  240301 3.0.0"))
	assert.Contains(t, header, "20240301134530.078319.txt ")
	assert.Equal(t, byte('\n'), header[119])

	entries := unzip(t, composite[120:])
	require.Len(t, entries, 2)
	index := entries[indexName]
	assert.True(t, strings.HasSuffix(index, "\nT000000001"), index)
	assert.Contains(t, index, "D000000000001000000000000123"+"1111"+"000000000001.000000000000123.20240301.00.pdf")
	assert.Equal(t, string(template), entries["000000000001.000000000000123.20240301.00.pdf"])

	assert.Contains(t, f.read(t, f.state, logName), sourceName+",,,,1\n")
	assert.Equal(t, "2024-03-01 13:45:30", f.read(t, f.state, cursorName))
}

func TestRunZeroMatchingLines(t *testing.T) {
	f := newFixture(t, nil)
	f.source.Put(sourceName, extract("RACT0010|TD|000123|-5.00|N|CAD|RTM"), arrival)

	result, err := f.processor(t, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.Equal(t, 0, result.Files[0].Candidates)
	assert.Empty(t, result.Files[0].CompositeName)
	assert.Empty(t, f.archive.Names())
	assert.Empty(t, f.partner.Names())

	assert.Equal(t,
		"date,file_name,sequence_number,issuer_chargeback_amount,mop,record_count\n"+
			"20240301,"+sourceName+",,,,0\n",
		f.read(t, f.state, logName))
	assert.Equal(t, "2024-03-01 13:45:30", f.read(t, f.state, cursorName))
}

func TestRunCandidatesWithoutEligibleRecords(t *testing.T) {
	f := newFixture(t, nil)
	f.source.Put(sourceName, extract(dfrLine(map[int]string{3: "-0.50"})), arrival)

	result, err := f.processor(t, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	fr := result.Files[0]
	assert.Equal(t, 1, fr.Candidates)
	assert.Equal(t, 0, fr.Eligible)

	entries := unzip(t, []byte(f.read(t, f.archive, uploadName))[120:])
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[indexName], "\nT000000000"))
	assert.Contains(t, f.read(t, f.state, logName), ",,,,0\n")
}

func TestRunRepeatedSequenceNumbers(t *testing.T) {
	f := newFixture(t, nil)
	f.source.Put(sourceName, extract(
		dfrLine(nil),
		dfrLine(map[int]string{10: "5500000000000004"}),
		dfrLine(map[int]string{8: "2", 3: "-12.50", 19: "MC"}),
	), arrival)

	_, err := f.processor(t, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	entries := unzip(t, []byte(f.read(t, f.archive, uploadName))[120:])
	assert.Len(t, entries, 4)
	assert.Contains(t, entries, "000000000001.000000000000123.20240301.00.pdf")
	assert.Contains(t, entries, "000000000001.000000000000123.20240301.01.pdf")
	assert.Contains(t, entries, "000000000002.000000000000123.20240301.00.pdf")
	assert.True(t, strings.HasSuffix(entries[indexName], "\nT000000003"))
}

func TestRunPerRecordAuditLog(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Processing.AuditMode = config.AuditPerRecord })
	f.source.Put(sourceName, extract(
		dfrLine(nil),
		dfrLine(map[int]string{8: "2", 3: "-12.50", 19: "MC"}),
	), arrival)

	_, err := f.processor(t, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	log := f.read(t, f.state, logName)
	assert.Contains(t, log, sourceName+",000000001,-5.00,VI,2\n")
	assert.Contains(t, log, sourceName+",2,-12.50,MC,2\n")
}

// =============================================================================
// FAILURES
// =============================================================================

func TestRunUploadFailureKeepsCursor(t *testing.T) {
	f := newFixture(t, nil)
	f.stores.Sinks = append(f.stores.Sinks[:1], failingSink{})
	f.source.Put(sourceName, extract(dfrLine(nil)), arrival)

	result, err := f.processor(t, nil).Run(context.Background(), Options{})
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrUpload)
	assert.Equal(t, types.StatusError, result.Status)
	assert.Contains(t, result.Message, "access denied")
	assert.Equal(t, map[string]any{"status": "error", "message": result.Message}, result.Payload())
	assert.False(t, f.state.Has(cursorName))
	assert.False(t, f.state.Has(logName))
}

func TestRunFailureAbortsRemainingFiles(t *testing.T) {
	f := newFixture(t, nil)
	f.state.Put(templateName, nil, arrival)
	second := strings.Replace(sourceName, "240301", "240302", 1)
	f.source.Put(sourceName, extract(dfrLine(nil)), arrival)
	f.source.Put(second, extract(dfrLine(nil)), arrival)

	result, err := f.processor(t, nil).Run(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrArchive)
	assert.Len(t, result.Files, 1)
	assert.False(t, f.state.Has(cursorName))
}

func TestRunMissingTemplate(t *testing.T) {
	f := newFixture(t, nil)
	f.stores.Template = store.NewStoreTemplate(f.state, "missing.pdf")
	f.source.Put(sourceName, extract(dfrLine(nil)), arrival)

	_, err := f.processor(t, nil).Run(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrTemplate)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunMalformedLinePolicies(t *testing.T) {
	short := "RACT0010|TD|000123|-5.00|N|USD|RTM|A|000000001|ORDER-1|4111|12|VI"

	t.Run("skip", func(t *testing.T) {
		f := newFixture(t, nil)
		f.source.Put(sourceName, extract(short, dfrLine(nil)), arrival)

		result, err := f.processor(t, nil).Run(context.Background(), Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Files[0].Rejected)
		assert.Equal(t, 1, result.Files[0].Eligible)
		assert.Contains(t, f.logs.String(), "malformed line skipped")
	})

	t.Run("fail", func(t *testing.T) {
		f := newFixture(t, func(c *config.Config) { c.Processing.MalformedLines = config.MalformedFail })
		f.source.Put(sourceName, extract(short, dfrLine(nil)), arrival)

		_, err := f.processor(t, nil).Run(context.Background(), Options{})
		assert.ErrorIs(t, err, types.ErrMalformedLine)
		assert.Empty(t, f.archive.Names())
		assert.False(t, f.state.Has(cursorName))
	})
}

func TestRunSkipsUnencodableRecords(t *testing.T) {
	second := strings.Replace(sourceName, "240301", "240302", 1)
	bad := dfrLine(map[int]string{2: "TD-123", 8: "000000002"})

	t.Run("skip", func(t *testing.T) {
		f := newFixture(t, nil)
		f.source.Put(sourceName, extract(bad, dfrLine(nil)), arrival)
		f.source.Put(second, extract(dfrLine(nil)), arrival)

		result, err := f.processor(t, nil).Run(context.Background(), Options{})
		require.NoError(t, err)

		require.Len(t, result.Files, 2)
		assert.Equal(t, 2, result.Files[0].Candidates)
		assert.Equal(t, 1, result.Files[0].Eligible)
		assert.Equal(t, 1, result.Files[0].Rejected)
		assert.Equal(t, 1, result.Files[1].Eligible)
		assert.Equal(t, 0, result.Files[1].Rejected)
		assert.Contains(t, f.logs.String(), "unencodable record skipped")

		assert.True(t, f.archive.Has(uploadName))
		assert.True(t, f.archive.Has("chargeback_automation/p_0000078319.20240302134530.zip"))
		assert.True(t, f.state.Has(logName))
		assert.True(t, f.state.Has(strings.Replace(logName, "240301", "240302", 1)))
		assert.Equal(t, "2024-03-01 13:45:30", f.read(t, f.state, cursorName))

		entries := unzip(t, []byte(f.read(t, f.archive, uploadName))[120:])
		assert.NotContains(t, entries[indexName], "TD-123")
		assert.True(t, strings.HasSuffix(entries[indexName], "T000000001"))
	})

	t.Run("fail", func(t *testing.T) {
		f := newFixture(t, func(c *config.Config) { c.Processing.MalformedLines = config.MalformedFail })
		f.source.Put(sourceName, extract(bad, dfrLine(nil)), arrival)
		f.source.Put(second, extract(dfrLine(nil)), arrival)

		result, err := f.processor(t, nil).Run(context.Background(), Options{})
		assert.ErrorContains(t, err, "entity_number")
		assert.Len(t, result.Files, 1)
		assert.Empty(t, f.archive.Names())
		assert.False(t, f.state.Has(cursorName))
	})
}

func TestRunRejectsShortSourceName(t *testing.T) {
	f := newFixture(t, nil)
	f.source.Put("paymentech/dfr_a/0000078319.txt", extract(dfrLine(nil)), arrival)

	_, err := f.processor(t, nil).Run(context.Background(), Options{})
	assert.Error(t, err)
	assert.Empty(t, f.archive.Names())
}

func TestRunWhenLocked(t *testing.T) {
	f := newFixture(t, nil)
	f.source.Put(sourceName, extract(dfrLine(nil)), arrival)

	result, err := f.processor(t, heldLock{}).Run(context.Background(), Options{})
	assert.ErrorIs(t, err, runlock.ErrLocked)
	assert.Equal(t, types.StatusError, result.Status)
	assert.Empty(t, f.archive.Names())
}

func TestRunStopsWhenPacingIsCancelled(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Processing.PacingSeconds = 60 })
	f.source.Put(sourceName, extract(dfrLine(nil)), arrival)
	f.source.Put(strings.Replace(sourceName, "240301", "240302", 1), extract(dfrLine(nil)), arrival)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.processor(t, nil).Run(ctx, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, result.Files, 1)
	assert.False(t, f.state.Has(cursorName))
}

// =============================================================================
// SELECTION AND OPTIONS
// =============================================================================

func TestRunSelectsOnlyNewMatchingFiles(t *testing.T) {
	f := newFixture(t, nil)
	f.state.Put(cursorName, []byte("2024-03-01 07:00:00"), arrival)
	f.source.Put(sourceName, extract(dfrLine(nil)), arrival)
	f.source.Put("paymentech/dfr_a/0000099999.240301.d.6A05.dfr_a.01.txt", extract(dfrLine(nil)), runTime)
	f.source.Put("other/0000078319.240301.d.6A05.dfr_a.01.txt", extract(dfrLine(nil)), runTime)

	result, err := f.processor(t, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.ProcessedFiles)
	assert.Equal(t, map[string]any{"status": "success", "processed_files": 0}, result.Payload())
	assert.Equal(t, "2024-03-01 13:45:30", f.read(t, f.state, cursorName))
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t, nil)
	f.source.Put(sourceName, extract(dfrLine(nil)), arrival)
	keep := filepath.Join(t.TempDir(), "kept")

	result, err := f.processor(t, nil).Run(context.Background(), Options{DryRun: true, KeepDir: keep})
	require.NoError(t, err)

	assert.Equal(t, "0000078319.20240301134530.zip", result.Files[0].CompositeName)
	assert.Empty(t, f.archive.Names())
	assert.False(t, f.state.Has(logName))
	assert.False(t, f.state.Has(cursorName))

	kept, err := os.ReadDir(keep)
	require.NoError(t, err)
	assert.Len(t, kept, 3)

	// Work areas are removed after every file.
	work, err := os.ReadDir(f.cfg.Processing.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, work)
}

func TestRunSingleFileIgnoresCursor(t *testing.T) {
	f := newFixture(t, nil)
	f.state.Put(cursorName, []byte("2099-01-01 00:00:00"), arrival)
	f.source.Put(sourceName, extract(dfrLine(nil)), arrival)

	result, err := f.processor(t, nil).Run(context.Background(), Options{File: sourceName})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ProcessedFiles)
	assert.True(t, f.archive.Has(uploadName))
	assert.Equal(t, "2099-01-01 00:00:00", f.read(t, f.state, cursorName))
}

func TestRunWritesSummaryWorkbook(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Processing.SummaryReport = true })
	f.source.Put(sourceName, extract(dfrLine(nil)), arrival)

	_, err := f.processor(t, nil).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.True(t, f.state.Has("chargeback_automation/logs/paymentech_DFRs/summary_20240301134530.xlsx"))
}

func TestRunUsesConfiguredTimezone(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Processing.Timezone = "America/New_York" })
	f.source.Put(sourceName, extract(dfrLine(nil)), arrival)

	result, err := f.processor(t, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, "0000078319.20240301084530.zip", result.Files[0].CompositeName)
	// The cursor stays in UTC.
	assert.Equal(t, "2024-03-01 13:45:30", f.read(t, f.state, cursorName))
}
