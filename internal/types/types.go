// =============================================================================
// DFR Chargeback Bundler - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - dfrparser
//   - validation
//   - indexwriter
//   - runlog
//   - bundler
//
// =============================================================================

package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// POSITIONAL SCHEMA
// =============================================================================

// RecordSchema is the ordered list of field names of one DFR dispute line.
// A raw line is split on "|" and field i is bound to RecordSchema[i].
var RecordSchema = []string{
	"record_type",
	"entity_type",
	"entity_number",
	"issuer_chargeback_amount",
	"partial_representment",
	"presentment_currency",
	"category",
	"status_flag",
	"sequence_number",
	"merchant_order_number",
	"account_number",
	"reason_code",
	"transaction_date",
	"chargeback_initiated_date",
	"activity_date",
	"current_action_chargeback_amount",
	"fee_amount",
	"usage_code",
	"reserved",
	"mop",
	"authorization_date",
	"chargeback_due_date",
	"ticket_number",
	"bundled_chargebacks",
	"token_indicator",
}

// FieldCount is the number of fields a well-formed dispute line splits into.
var FieldCount = len(RecordSchema)

// =============================================================================
// CHARGEBACK RECORD
// =============================================================================

// ChargebackRecord represents one dispute line item from a DFR extract.
type ChargebackRecord struct {
	RecordType                    string
	EntityType                    string
	EntityNumber                  string
	IssuerChargebackAmount        string
	PartialRepresentment          string
	PresentmentCurrency           string
	Category                      string
	StatusFlag                    string
	SequenceNumber                string
	MerchantOrderNumber           string
	AccountNumber                 string
	ReasonCode                    string
	TransactionDate               string
	ChargebackInitiatedDate       string
	ActivityDate                  string
	CurrentActionChargebackAmount string
	FeeAmount                     string
	UsageCode                     string
	Reserved                      string
	MOP                           string
	AuthorizationDate             string
	ChargebackDueDate             string
	TicketNumber                  string
	BundledChargebacks            string
	TokenIndicator                string

	// Amount is IssuerChargebackAmount parsed as a decimal.
	// It is only meaningful when AmountValid is true.
	Amount decimal.Decimal

	// AmountValid is false when IssuerChargebackAmount could not be parsed.
	AmountValid bool

	// LineNumber is the 1-indexed line of the source file this record came from.
	LineNumber int
}

// NewChargebackRecord binds already-trimmed fields to a record following
// RecordSchema. The caller guarantees len(fields) == FieldCount.
func NewChargebackRecord(fields []string, lineNumber int) ChargebackRecord {
	return ChargebackRecord{
		RecordType:                    fields[0],
		EntityType:                    fields[1],
		EntityNumber:                  fields[2],
		IssuerChargebackAmount:        fields[3],
		PartialRepresentment:          fields[4],
		PresentmentCurrency:           fields[5],
		Category:                      fields[6],
		StatusFlag:                    fields[7],
		SequenceNumber:                fields[8],
		MerchantOrderNumber:           fields[9],
		AccountNumber:                 fields[10],
		ReasonCode:                    fields[11],
		TransactionDate:               fields[12],
		ChargebackInitiatedDate:       fields[13],
		ActivityDate:                  fields[14],
		CurrentActionChargebackAmount: fields[15],
		FeeAmount:                     fields[16],
		UsageCode:                     fields[17],
		Reserved:                      fields[18],
		MOP:                           fields[19],
		AuthorizationDate:             fields[20],
		ChargebackDueDate:             fields[21],
		TicketNumber:                  fields[22],
		BundledChargebacks:            fields[23],
		TokenIndicator:                fields[24],
		LineNumber:                    lineNumber,
	}
}

// =============================================================================
// MALFORMED LINES
// =============================================================================

// ErrMalformedLine is matched by every *MalformedLineError.
var ErrMalformedLine = errors.New("malformed source line")

// MalformedLineError reports a candidate line whose field count does not
// match RecordSchema.
type MalformedLineError struct {
	// LineNumber is the 1-indexed line in the source file.
	LineNumber int

	// Fields is the number of fields the line split into.
	Fields int
}

// Error implements the error interface.
func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("line %d: expected %d fields, got %d", e.LineNumber, FieldCount, e.Fields)
}

// Is lets errors.Is(err, ErrMalformedLine) succeed.
func (e *MalformedLineError) Is(target error) bool {
	return target == ErrMalformedLine
}

// =============================================================================
// SOURCE OBJECTS
// =============================================================================

// SourceObject is one entry of a file store listing.
type SourceObject struct {
	// Name is the full object name, including any prefix.
	Name string

	// CreatedAt is when the object was created in the store.
	CreatedAt time.Time
}

// =============================================================================
// BATCH RESULTS
// =============================================================================

// FileResult summarizes the processing of one source file.
type FileResult struct {
	// SourceName is the source object name.
	SourceName string

	// FileDate is the YYYYMMDD date extracted from SourceName.
	FileDate string

	// Candidates is the raw number of lines that matched the code/RTM/USD heuristics.
	Candidates int

	// Eligible is the number of records that survived the category/amount filter.
	Eligible int

	// Rejected is the number of candidate lines dropped as malformed.
	Rejected int

	// CompositeName is the name of the produced composite artifact.
	// Empty when no artifacts were produced.
	CompositeName string

	// Uploaded lists the destination names the composite was delivered to.
	Uploaded []string

	// LogObject is the name of the audit log written for this file.
	LogObject string
}

// Batch outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BatchResult is the outcome of one batch, as surfaced to triggers.
type BatchResult struct {
	// Status is StatusSuccess or StatusError.
	Status string

	// ProcessedFiles is the number of source files selected for the batch.
	ProcessedFiles int

	// Message carries the failure reason when Status is StatusError.
	Message string

	// RunID identifies the batch in logs.
	RunID string

	// Files holds per-file details in processing order.
	Files []FileResult
}

// Payload renders the result in the trigger response shape:
// {"status":"success","processed_files":N} or {"status":"error","message":"..."}.
func (r BatchResult) Payload() map[string]any {
	if r.Status == StatusSuccess {
		return map[string]any{"status": r.Status, "processed_files": r.ProcessedFiles}
	}
	return map[string]any{"status": StatusError, "message": r.Message}
}
