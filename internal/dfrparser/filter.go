package dfrparser

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/config"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

// =============================================================================
// ELIGIBILITY FILTER
// =============================================================================

// Filter keeps the candidates that qualify for a dispute bundle.
type Filter struct {
	category  string
	threshold decimal.Decimal
}

// NewFilter creates a filter from the filter configuration.
// It fails when the configured threshold is not a decimal number.
func NewFilter(cfg config.FilterConfig) (*Filter, error) {
	threshold, err := decimal.NewFromString(cfg.AmountThreshold)
	if err != nil {
		return nil, fmt.Errorf("invalid amount threshold %q: %w", cfg.AmountThreshold, err)
	}
	return &Filter{category: cfg.Category, threshold: threshold}, nil
}

// Apply returns the eligible records in candidate order.
//
// A record is eligible when its category field equals the configured category
// exactly and its issuer chargeback amount is at most the threshold. Amounts
// that do not parse are never eligible. Apply fills Amount and AmountValid on
// the returned records.
func (f *Filter) Apply(candidates []types.ChargebackRecord) []types.ChargebackRecord {
	eligible := make([]types.ChargebackRecord, 0, len(candidates))

	for _, rec := range candidates {
		if rec.Category != f.category {
			continue
		}

		amount, err := decimal.NewFromString(rec.IssuerChargebackAmount)
		if err != nil {
			continue
		}
		rec.Amount = amount
		rec.AmountValid = true

		if amount.LessThanOrEqual(f.threshold) {
			eligible = append(eligible, rec)
		}
	}

	return eligible
}
