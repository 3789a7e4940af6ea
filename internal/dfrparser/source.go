package dfrparser

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// SOURCE NAME CONVENTIONS
// =============================================================================
//
// DFR object names follow the processor's naming convention, e.g.
//   paymentech/dfr_a/0000078319.240301.d.6A05.dfr_a.01.txt
//   └──────────────┴────────────────────── offset 28 ┘
// The batch date sits at a fixed offset of the full object name and the
// audit log is named after the third "/"-separated segment.
//
// =============================================================================

// ErrSourceName is returned when an object name does not follow the DFR
// naming convention.
var ErrSourceName = errors.New("source name does not follow the DFR naming convention")

const (
	fileDateOffset = 28
	fileDateLength = 6
)

// ExtractFileDate returns the batch date embedded in a source object name as
// YYYYMMDD. The date is the 6 characters at offset 28 read as YYMMDD and
// widened with a "20" century prefix.
//
// It fails with ErrSourceName when the name is shorter than 34 characters or
// the slice is not a valid calendar date.
func ExtractFileDate(name string) (string, error) {
	if len(name) < fileDateOffset+fileDateLength {
		return "", fmt.Errorf("%w: %q is shorter than %d characters", ErrSourceName, name, fileDateOffset+fileDateLength)
	}

	yymmdd := name[fileDateOffset : fileDateOffset+fileDateLength]
	if _, err := time.Parse("060102", yymmdd); err != nil {
		return "", fmt.Errorf("%w: %q has no date at offset %d", ErrSourceName, name, fileDateOffset)
	}

	return "20" + yymmdd, nil
}

// LogSegment returns the third "/"-separated segment of a source object name,
// which names the file's audit log.
func LogSegment(name string) (string, error) {
	parts := strings.Split(name, "/")
	if len(parts) < 3 || parts[2] == "" {
		return "", fmt.Errorf("%w: %q has no third path segment", ErrSourceName, name)
	}
	return parts[2], nil
}
