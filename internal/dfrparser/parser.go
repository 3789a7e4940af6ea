// =============================================================================
// DFR Chargeback Bundler - DFR Parser Module
// =============================================================================
//
// This module turns the raw text of a DFR extract into candidate chargeback
// records. A DFR is a pipe-delimited report in which only some lines describe
// disputes; every other line (banners, section headers, totals, records of
// other categories) is skipped without error.
//
// CANDIDATE RULE:
//   A line is a candidate when ALL of the following hold:
//     1. It contains at least one configured reason code between pipes ("|12|").
//     2. It contains the category token ("RTM") anywhere.
//     3. It contains the currency token ("USD") anywhere.
//   The checks are plain substring checks on the raw line. The stricter
//   per-field checks happen later in Filter.
//
// FIELD BINDING:
//   A candidate is split on "|" and every field is trimmed of surrounding
//   whitespace. The fields are bound positionally to types.RecordSchema.
//   A candidate that does not split into exactly types.FieldCount fields is
//   malformed and handled according to the configured policy.
//
// =============================================================================

package dfrparser

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/config"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

// maxLineSize bounds a single DFR line. Real lines are a few hundred bytes.
const maxLineSize = 1 << 20

// =============================================================================
// PARSER
// =============================================================================

// Parser extracts candidate records from DFR text.
type Parser struct {
	needles         []string
	category        string
	currency        string
	failOnMalformed bool
}

// ParseResult holds the candidates of one source file.
type ParseResult struct {
	// Candidates are the well-formed candidate records in source order.
	Candidates []types.ChargebackRecord

	// Rejected lists the malformed candidate lines that were skipped.
	// Always empty under the fail policy.
	Rejected []*types.MalformedLineError
}

// Count returns the number of candidates ("rtm_count").
// Rejected lines are not counted.
func (r *ParseResult) Count() int {
	return len(r.Candidates)
}

// New creates a parser from the filter and processing configuration.
func New(filter config.FilterConfig, malformedPolicy string) *Parser {
	needles := make([]string, 0, len(filter.ReasonCodes))
	for _, code := range filter.ReasonCodes {
		needles = append(needles, "|"+code+"|")
	}
	return &Parser{
		needles:         needles,
		category:        filter.Category,
		currency:        filter.Currency,
		failOnMalformed: malformedPolicy == config.MalformedFail,
	}
}

// Parse reads DFR text from r and returns its candidates.
//
// PARAMETERS:
//   - r: The raw extract. Lines may end in "\n" or "\r\n".
//
// RETURNS:
//   - The candidate records, plus any skipped malformed lines.
//   - An error if r cannot be read, or a *types.MalformedLineError when the
//     fail policy is active and a malformed candidate is found.
func (p *Parser) Parse(r io.Reader) (*ParseResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	result := &ParseResult{}
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if !p.IsCandidate(line) {
			continue
		}

		fields := splitFields(line)
		if len(fields) != types.FieldCount {
			malformed := &types.MalformedLineError{LineNumber: lineNumber, Fields: len(fields)}
			if p.failOnMalformed {
				return nil, malformed
			}
			result.Rejected = append(result.Rejected, malformed)
			continue
		}

		result.Candidates = append(result.Candidates, types.NewChargebackRecord(fields, lineNumber))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}

	return result, nil
}

// ParseString is Parse over an in-memory extract.
func (p *Parser) ParseString(content string) (*ParseResult, error) {
	return p.Parse(strings.NewReader(content))
}

// IsCandidate reports whether a raw line passes the candidate rule.
func (p *Parser) IsCandidate(line string) bool {
	if !strings.Contains(line, p.category) || !strings.Contains(line, p.currency) {
		return false
	}
	for _, needle := range p.needles {
		if strings.Contains(line, needle) {
			return true
		}
	}
	return false
}

// splitFields splits a line on "|" and trims every field.
func splitFields(line string) []string {
	fields := strings.Split(line, "|")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}
