package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/store"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

func sampleResult() types.BatchResult {
	return types.BatchResult{
		Status:         types.StatusSuccess,
		ProcessedFiles: 2,
		Files: []types.FileResult{
			{SourceName: "paymentech/dfr_a/a.txt", FileDate: "20240301", Candidates: 3, Eligible: 2, Rejected: 1,
				CompositeName: "0000078319.20240301134530.zip", Uploaded: []string{"x", "y"}},
			{SourceName: "paymentech/dfr_a/b.txt", FileDate: "20240302"},
		},
	}
}

func TestRenderWritesRowsAndTotals(t *testing.T) {
	content, err := Render(sampleResult())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{"paymentech/dfr_a/a.txt", "20240301", "3", "2", "1", "0000078319.20240301134530.zip", "2"}, rows[1])
	assert.Equal(t, "paymentech/dfr_a/b.txt", rows[2][0])
	assert.Equal(t, "0", rows[2][2])
	assert.Equal(t, []string{"Total", "", "3", "2", "1"}, rows[3])
}

func TestWriteStoresWorkbook(t *testing.T) {
	m := store.NewMemory()
	now := time.Date(2024, 3, 2, 1, 2, 3, 0, time.UTC)

	name, err := Write(context.Background(), m, "chargeback_automation/logs/paymentech_DFRs/", now, sampleResult())
	require.NoError(t, err)

	assert.Equal(t, "chargeback_automation/logs/paymentech_DFRs/summary_20240302010203.xlsx", name)
	assert.True(t, m.Has(name))
}
