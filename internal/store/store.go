// =============================================================================
// DFR Chargeback Bundler - File Store
// =============================================================================
//
// This module abstracts the object stores the bundler reads from and writes
// to. Every backend exposes the same five operations over flat object names
// ("paymentech/dfr_a/0000078319.240301.txt"), so the pipeline never knows
// whether it talks to a bucket or a directory.
//
// BACKENDS:
//   - memory: in-process map, used by tests and dry runs
//   - local:  a directory tree on disk; object names map to relative paths
//   - gcs:    Google Cloud Storage (cloud.google.com/go/storage)
//   - s3:     Amazon S3 (aws-sdk-go-v2)
//
// LISTING ORDER:
//   Every backend lists objects in lexicographic name order, which is the
//   order source files are processed in.
//
// =============================================================================

package store

import (
	"context"
	"errors"
	"sort"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

// ErrNotFound is returned when a named object does not exist.
var ErrNotFound = errors.New("object not found")

// Store is a flat object store.
type Store interface {
	// List returns the objects whose names start with prefix, sorted by name.
	List(ctx context.Context, prefix string) ([]types.SourceObject, error)

	// ReadText returns the content of an object as text.
	ReadText(ctx context.Context, name string) (string, error)

	// ReadBytes returns the content of an object.
	ReadBytes(ctx context.Context, name string) ([]byte, error)

	// WriteBytes creates or replaces an object.
	WriteBytes(ctx context.Context, name string, data []byte) error

	// WriteText creates or replaces an object with text content.
	WriteText(ctx context.Context, name, text string) error
}

func sortObjects(objects []types.SourceObject) {
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
}
