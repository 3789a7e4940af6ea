// =============================================================================
// DFR Chargeback Bundler - Validation Engine
// =============================================================================
//
// This module checks that eligible records and submission identities fit the
// fixed-width layouts of the processor's index and header formats BEFORE any
// artifact is encoded. A value that does not fit its slot would shift every
// following column of the line, which the processor cannot detect, so an
// overflow is reported as an error instead of being written.
//
// VALIDATION LEVELS:
//   1. Field-level: each record field used by the index detail line
//   2. Batch-level: sequence number occurrences within one file
//   3. Submission-level: configured identities used by the headers
//
// ERROR HANDLING:
//   - Errors are collected, not returned on first failure
//   - Each error carries the field, the offending value and the source line
//   - Warnings are reported but do not block encoding
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/config"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Slot widths of the processor formats.
const (
	SequenceWidth    = 12
	EntityWidth      = 15
	AccountTailWidth = 4
	OccurrenceLimit  = 100 // two digits
	CompanyIDWidth   = 15
	CompanyNameWidth = 32
	VersionWidth     = 17
	SubmissionWidth  = 120
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Error represents a single validation finding.
type Error struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the schema name of the offending field.
	Field string

	// Value is the offending value.
	Value string

	// Rule is the violated rule: "required", "numeric", "max_width", ...
	Rule string

	// Message is a human-readable description.
	Message string

	// LineNumber is the source line of the record, 0 for non-record findings.
	LineNumber int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.LineNumber > 0 {
		return fmt.Sprintf("[%s] line %d, field '%s': %s (value: '%s')",
			strings.ToUpper(e.Severity), e.LineNumber, e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("[%s] field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity), e.Field, e.Message, e.Value)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Result contains the findings of one validation pass.
type Result struct {
	// Errors holds every finding, warnings included, in discovery order.
	Errors []*Error

	// ErrorCount is the number of findings with SeverityError.
	ErrorCount int

	// WarningCount is the number of findings with SeverityWarning.
	WarningCount int

	// RecordsValidated is the number of records checked.
	RecordsValidated int
}

// IsValid reports whether the result has no error-level findings.
func (r *Result) IsValid() bool {
	return r.ErrorCount == 0
}

// Err returns nil for a valid result and an error summarizing the
// error-level findings otherwise. errors.As recovers the first *Error.
func (r *Result) Err() error {
	if r.IsValid() {
		return nil
	}
	var first *Error
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			first = e
			break
		}
	}
	return fmt.Errorf("%d validation error(s), first: %w", r.ErrorCount, first)
}

func (r *Result) add(e *Error) {
	r.Errors = append(r.Errors, e)
	if e.Severity == SeverityError {
		r.ErrorCount++
	} else {
		r.WarningCount++
	}
}

// =============================================================================
// RECORD VALIDATION
// =============================================================================

// ValidateRecords checks the eligible records of one source file.
//
// PARAMETERS:
//   - records: The eligible records, in the order they will be encoded.
//
// RETURNS:
//   - A Result holding every finding.
//
// RULES:
//   - sequence_number: required, digits only, at most 12 characters
//   - entity_number: required, digits only, at most 15 characters
//   - account_number: warning when shorter than 4 characters
//   - a sequence number may occur at most 100 times in one file
func ValidateRecords(records []types.ChargebackRecord) *Result {
	result := &Result{RecordsValidated: len(records)}
	occurrences := make(map[string]int)

	for _, rec := range records {
		checkNumericSlot(result, "sequence_number", rec.SequenceNumber, SequenceWidth, rec.LineNumber)
		checkNumericSlot(result, "entity_number", rec.EntityNumber, EntityWidth, rec.LineNumber)

		if len(rec.AccountNumber) < AccountTailWidth {
			result.add(&Error{
				Severity:   SeverityWarning,
				Field:      "account_number",
				Value:      rec.AccountNumber,
				Rule:       "min_width",
				Message:    fmt.Sprintf("Account number is shorter than %d characters and is used whole", AccountTailWidth),
				LineNumber: rec.LineNumber,
			})
		}

		key := padLeftZero(rec.SequenceNumber, SequenceWidth)
		occurrences[key]++
		if occurrences[key] == OccurrenceLimit+1 {
			result.add(&Error{
				Severity:   SeverityError,
				Field:      "sequence_number",
				Value:      rec.SequenceNumber,
				Rule:       "occurrences",
				Message:    fmt.Sprintf("Sequence number occurs more than %d times in one file", OccurrenceLimit),
				LineNumber: rec.LineNumber,
			})
		}
	}

	return result
}

// SplitRecords separates the records whose sequence or entity number cannot
// be encoded from the rest.
//
// RETURNS:
//   - The encodable records, in their original order.
//   - A Result holding the findings of the records left out.
func SplitRecords(records []types.ChargebackRecord) ([]types.ChargebackRecord, *Result) {
	valid := make([]types.ChargebackRecord, 0, len(records))
	rejected := &Result{RecordsValidated: len(records)}

	for _, rec := range records {
		before := rejected.ErrorCount
		checkNumericSlot(rejected, "sequence_number", rec.SequenceNumber, SequenceWidth, rec.LineNumber)
		checkNumericSlot(rejected, "entity_number", rec.EntityNumber, EntityWidth, rec.LineNumber)
		if rejected.ErrorCount == before {
			valid = append(valid, rec)
		}
	}

	return valid, rejected
}

func checkNumericSlot(result *Result, field, value string, width, line int) {
	if value == "" {
		result.add(&Error{
			Severity:   SeverityError,
			Field:      field,
			Value:      value,
			Rule:       "required",
			Message:    fmt.Sprintf("Required field '%s' is empty", field),
			LineNumber: line,
		})
		return
	}

	if !isDigits(value) {
		result.add(&Error{
			Severity:   SeverityError,
			Field:      field,
			Value:      value,
			Rule:       "numeric",
			Message:    fmt.Sprintf("Value '%s' is not numeric", value),
			LineNumber: line,
		})
	}

	if len(value) > width {
		result.add(&Error{
			Severity:   SeverityError,
			Field:      field,
			Value:      value,
			Rule:       "max_width",
			Message:    fmt.Sprintf("Value exceeds slot width of %d characters (actual: %d)", width, len(value)),
			LineNumber: line,
		})
	}
}

// =============================================================================
// SUBMISSION VALIDATION
// =============================================================================

// ValidateSubmission checks the configured identities against the header and
// index header slots.
//
// RULES:
//   - company_id: digits only, at most 15 characters
//   - company_name: at most 32 characters
//   - version: at most 17 characters
//   - presenter/password/submitter: the submission banner must fit in the
//     119 characters before the newline of the 120 character header
func ValidateSubmission(s config.SubmissionConfig) *Result {
	result := &Result{}

	checkNumericSlot(result, "company_id", s.CompanyID, CompanyIDWidth, 0)

	if len(s.CompanyName) > CompanyNameWidth {
		result.add(&Error{
			Severity: SeverityError,
			Field:    "company_name",
			Value:    s.CompanyName,
			Rule:     "max_width",
			Message:  fmt.Sprintf("Value exceeds slot width of %d characters (actual: %d)", CompanyNameWidth, len(s.CompanyName)),
		})
	}

	if len(s.Version) > VersionWidth {
		result.add(&Error{
			Severity: SeverityError,
			Field:    "version",
			Value:    s.Version,
			Rule:     "max_width",
			Message:  fmt.Sprintf("Value exceeds slot width of %d characters (actual: %d)", VersionWidth, len(s.Version)),
		})
	}

	if n := submissionBannerLength(s); n > SubmissionWidth-1 {
		result.add(&Error{
			Severity: SeverityError,
			Field:    "submission",
			Value:    fmt.Sprintf("%d characters", n),
			Rule:     "max_width",
			Message:  fmt.Sprintf("Submission banner exceeds %d characters before its newline", SubmissionWidth-1),
		})
	}

	return result
}

// submissionBannerLength is the length of the submission header line before
// its newline:
//   "PID=" p " " pw " SID=" s " CBZTIFF  START  " YYMMDD " " version(17) ts(14) "." company ".txt"
func submissionBannerLength(s config.SubmissionConfig) int {
	version := len(s.Version)
	if version < VersionWidth {
		version = VersionWidth
	}
	return len("PID=") + len(s.PresenterID) + 1 + len(s.Password) +
		len(" SID=") + len(s.SubmitterID) + len(" CBZTIFF  START  ") + 6 + 1 +
		version + 14 + 1 + len(s.CompanyID) + len(".txt")
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func padLeftZero(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation findings for display or logging.
func FormatErrors(errs []*Error) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errs)))
	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}
	return builder.String()
}
