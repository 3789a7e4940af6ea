// =============================================================================
// DFR Chargeback Bundler - Index Writer Module
// =============================================================================
//
// This module renders the processor's fixed-width submission artifacts. All
// numeric slots are zero-padded on the left, all text slots are space-padded
// on the right, and every line is space-padded to its record width.
//
// ARTIFACT LAYOUTS:
//
//   Submission header (120, separate file):
//     PID=<presenter> <password> SID=<submitter> CBZTIFF  START  <YYMMDD> <version:17>
//     <YYYYMMDDHHMMSS>.<company_id>.txt  then spaces up to 119, then a newline
//
//   Index header (60):
//     H1.00 <company_id:015> <company_name:32> <YYYYMMDD>
//
//   Index detail (76, one per eligible record):
//     D <seq:012> <entity:015> <last 4 of account> <attachment filename>
//     attachment filename = <seq:012>.<entity:015>.<YYYYMMDD>.<occurrence:02>.pdf
//
//   Index trailer (10):
//     T <detail count:09>
//
//   Index file:
//     header "\n" (detail "\n")* trailer   (no newline after the trailer)
//
// Every date comes from the instant passed by the caller, so encoding the
// same records at the same instant is byte-for-byte repeatable. Widths are
// checked beforehand by the validation package.
//
// =============================================================================

package indexwriter

import (
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/config"
	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

// Record and slot widths.
const (
	SubmissionHeaderWidth = 120
	IndexHeaderWidth      = 60
	DetailWidth           = 76
	TrailerWidth          = 10

	SequenceWidth    = 12
	EntityWidth      = 15
	CompanyIDWidth   = 15
	CompanyNameWidth = 32
	VersionWidth     = 17
	CountWidth       = 9
	AccountTail      = 4
)

// =============================================================================
// ENCODER
// =============================================================================

// Encoder renders the artifacts of one submission identity.
type Encoder struct {
	submission config.SubmissionConfig
}

// NewEncoder creates an encoder for the configured submission identity.
func NewEncoder(submission config.SubmissionConfig) *Encoder {
	return &Encoder{submission: submission}
}

// Index is the encoded index file of one source file.
type Index struct {
	// Content is the complete index file.
	Content []byte

	// Attachments are the attachment filenames, one per detail line, in order.
	Attachments []string
}

// SubmissionHeader renders the submission header file content.
func (e *Encoder) SubmissionHeader(now time.Time) string {
	s := e.submission
	line := "PID=" + s.PresenterID + " " + s.Password +
		" SID=" + s.SubmitterID +
		" CBZTIFF  START  " + now.Format("060102") +
		" " + PadRight(s.Version, VersionWidth, ' ') +
		now.Format("20060102150405") + "." + s.CompanyID + ".txt"
	// The newline closes the fixed-width record.
	return PadRight(line, SubmissionHeaderWidth-1, ' ') + "\n"
}

// IndexHeader renders the index header line.
func (e *Encoder) IndexHeader(now time.Time) string {
	line := "H1.00" +
		PadLeft(e.submission.CompanyID, CompanyIDWidth, '0') +
		PadRight(e.submission.CompanyName, CompanyNameWidth, ' ') +
		now.Format("20060102")
	return PadRight(line, IndexHeaderWidth, ' ')
}

// Detail renders one index detail line and returns it with its attachment
// filename.
func (e *Encoder) Detail(rec types.ChargebackRecord, occurrence string, now time.Time) (line, attachment string) {
	seq := PadLeft(rec.SequenceNumber, SequenceWidth, '0')
	entity := PadLeft(rec.EntityNumber, EntityWidth, '0')
	attachment = AttachmentName(seq, entity, now, occurrence)

	line = "D" + seq + entity + lastN(rec.AccountNumber, AccountTail) + attachment
	return PadRight(line, DetailWidth, ' '), attachment
}

// Trailer renders the index trailer for count detail lines.
func (e *Encoder) Trailer(count int) string {
	return PadRight(fmt.Sprintf("T%0*d", CountWidth, count), TrailerWidth, ' ')
}

// EncodeIndex renders the complete index file for records in the given order.
// Occurrence codes come from a fresh Allocator.
func (e *Encoder) EncodeIndex(records []types.ChargebackRecord, now time.Time) *Index {
	var b strings.Builder
	alloc := NewAllocator()
	attachments := make([]string, 0, len(records))

	b.WriteString(e.IndexHeader(now))
	b.WriteString("\n")

	for _, rec := range records {
		line, attachment := e.Detail(rec, alloc.Next(rec.SequenceNumber), now)
		b.WriteString(line)
		b.WriteString("\n")
		attachments = append(attachments, attachment)
	}

	b.WriteString(e.Trailer(len(records)))

	return &Index{Content: []byte(b.String()), Attachments: attachments}
}

// =============================================================================
// ARTIFACT NAMES
// =============================================================================

// AttachmentName builds "<seq>.<entity>.<YYYYMMDD>.<occurrence>.pdf" from
// already padded sequence and entity numbers.
func AttachmentName(seq, entity string, now time.Time, occurrence string) string {
	return seq + "." + entity + "." + now.Format("20060102") + "." + occurrence + ".pdf"
}

// Names holds the artifact names of one source file.
type Names struct {
	// Header is the submission header file: "0000078319.<YYYYMMDDHHMMSS>.txt".
	Header string

	// Index is the index file: "<YYYYMMDDHHMMSS>.078319.txt".
	Index string

	// Composite is the composite artifact: "0000078319.<file date><HHMMSS>.zip".
	Composite string
}

// ArtifactNames derives the artifact names for a file date and run instant.
func ArtifactNames(companyID, fileDate string, now time.Time) Names {
	padded := PadLeft(companyID, 10, '0')
	stamp := now.Format("20060102150405")
	return Names{
		Header:    padded + "." + stamp + ".txt",
		Index:     stamp + "." + companyID + ".txt",
		Composite: padded + "." + fileDate + now.Format("150405") + ".zip",
	}
}

// LogName names the audit log of a source file: "<logs prefix>/<segment>.log".
func LogName(logsPrefix, segment string) string {
	return strings.TrimSuffix(logsPrefix, "/") + "/" + segment + ".log"
}
