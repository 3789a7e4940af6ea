package runlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/config"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/dfrparser"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/store"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

const source = "paymentech/dfr_a/0000078319.240301.d.6A05.dfr_a.01.txt"

func eligible() []types.ChargebackRecord {
	return []types.ChargebackRecord{
		{SequenceNumber: "000000001", IssuerChargebackAmount: "-5.00", MOP: "VI"},
		{SequenceNumber: "000000002", IssuerChargebackAmount: "-12.50", MOP: "MC"},
	}
}

func TestRenderZeroCount(t *testing.T) {
	for _, mode := range []string{config.AuditSummary, config.AuditPerRecord} {
		t.Run(mode, func(t *testing.T) {
			out, err := Render(mode, Entry{FileDate: "20240301", SourceName: source})
			require.NoError(t, err)
			assert.Equal(t,
				"date,file_name,sequence_number,issuer_chargeback_amount,mop,record_count\n"+
					"20240301,"+source+",,,,0\n",
				string(out))
		})
	}
}

func TestRenderSummary(t *testing.T) {
	out, err := Render(config.AuditSummary, Entry{FileDate: "20240301", SourceName: source, Records: eligible(), Count: 2})
	require.NoError(t, err)
	assert.Equal(t,
		"date,file_name,sequence_number,issuer_chargeback_amount,mop,record_count\n"+
			"20240301,"+source+",,,,2\n",
		string(out))
}

func TestRenderPerRecord(t *testing.T) {
	out, err := Render(config.AuditPerRecord, Entry{FileDate: "20240301", SourceName: source, Records: eligible(), Count: 2})
	require.NoError(t, err)
	assert.Equal(t,
		"date,file_name,sequence_number,issuer_chargeback_amount,mop,record_count\n"+
			"20240301,"+source+",000000001,-5.00,VI,2\n"+
			"20240301,"+source+",000000002,-12.50,MC,2\n",
		string(out))
}

func TestWriterStoresUnderLogSegment(t *testing.T) {
	m := store.NewMemory()
	w := NewWriter(m, "chargeback_automation/logs/paymentech_DFRs", config.AuditSummary)

	name, err := w.Write(context.Background(), Entry{FileDate: "20240301", SourceName: source, Count: 1})
	require.NoError(t, err)

	assert.Equal(t, "chargeback_automation/logs/paymentech_DFRs/0000078319.240301.d.6A05.dfr_a.01.txt.log", name)
	content, err := m.ReadText(context.Background(), name)
	require.NoError(t, err)
	assert.Contains(t, content, ",,,,1\n")
}

func TestWriterRejectsShallowSourceName(t *testing.T) {
	w := NewWriter(store.NewMemory(), "logs", config.AuditSummary)
	_, err := w.Write(context.Background(), Entry{SourceName: "flat.txt"})
	assert.ErrorIs(t, err, dfrparser.ErrSourceName)
}
