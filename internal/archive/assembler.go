// =============================================================================
// DFR Chargeback Bundler - Archive Assembler
// =============================================================================
//
// This module packs the index file and the placeholder attachments into a
// ZIP container and prepends the submission header to form the composite
// artifact the processor ingests:
//
//   composite = submission header bytes ++ ZIP bytes
//
// The composite is deliberately not a well-formed ZIP at offset zero; the
// processor strips the plaintext banner before reading the archive. Readers
// that locate the central directory from the end of the file (most do) can
// still open it.
//
// Entry order is fixed: the index file first, then one attachment per detail
// line in index order. Every entry carries the same modification time so the
// output depends only on its inputs.
//
// =============================================================================

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"
)

// ErrEmptyTemplate is returned when the attachment template has no content.
var ErrEmptyTemplate = errors.New("attachment template is empty")

// Entry is one file of the ZIP container.
type Entry struct {
	Name    string
	Content []byte
}

// Bundle is the assembled output of one source file.
type Bundle struct {
	// Header is the submission header.
	Header []byte

	// Zip is the ZIP container on its own.
	Zip []byte

	// Composite is Header followed by Zip.
	Composite []byte
}

// Assembler builds ZIP containers and composite artifacts.
type Assembler struct {
	// Modified is the timestamp written on every entry.
	Modified time.Time
}

// NewAssembler creates an assembler stamping entries with modified.
func NewAssembler(modified time.Time) *Assembler {
	return &Assembler{Modified: modified}
}

// Assemble builds the ZIP container for an index file and its attachments,
// then prepends header.
//
// PARAMETERS:
//   - header: The submission header content.
//   - index: The index file entry.
//   - attachments: Attachment filenames in index order.
//   - template: The placeholder document copied under every attachment name.
//
// RETURNS:
//   - The assembled bundle.
//   - An error if the template is empty while attachments are requested, or
//     if the ZIP cannot be written.
func (a *Assembler) Assemble(header []byte, index Entry, attachments []string, template []byte) (*Bundle, error) {
	if len(attachments) > 0 && len(template) == 0 {
		return nil, ErrEmptyTemplate
	}

	entries := make([]Entry, 0, len(attachments)+1)
	entries = append(entries, index)
	for _, name := range attachments {
		entries = append(entries, Entry{Name: name, Content: template})
	}

	zipBytes, err := a.BuildZip(entries)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Header:    header,
		Zip:       zipBytes,
		Composite: Concat(header, zipBytes),
	}, nil
}

// BuildZip writes entries, deflated and in order, to a new ZIP container.
func (a *Assembler) BuildZip(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, entry := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Deflate,
			Modified: a.Modified,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", entry.Name, err)
		}
		if _, err := w.Write(entry.Content); err != nil {
			return nil, fmt.Errorf("failed to write %s to archive: %w", entry.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Concat returns header followed by payload in a new slice.
func Concat(header, payload []byte) []byte {
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}
