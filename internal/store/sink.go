package store

import (
	"context"
	"fmt"
	"strings"
)

// Sink is an upload destination for composite artifacts.
type Sink interface {
	// Name identifies the sink in logs and results.
	Name() string

	// Upload delivers an artifact and returns the destination it was written to.
	Upload(ctx context.Context, data []byte, artifact string) (string, error)
}

// StoreSink uploads into a Store under a subfolder, adding the "p_" marker
// the processor expects: "<prefix>/p_<artifact>".
type StoreSink struct {
	name   string
	store  Store
	prefix string
}

// NewStoreSink creates a sink writing into s under prefix.
func NewStoreSink(name string, s Store, prefix string) *StoreSink {
	return &StoreSink{name: name, store: s, prefix: prefix}
}

func (s *StoreSink) Name() string { return s.name }

func (s *StoreSink) Upload(ctx context.Context, data []byte, artifact string) (string, error) {
	dest := UploadName(s.prefix, artifact)
	if err := s.store.WriteBytes(ctx, dest, data); err != nil {
		return "", fmt.Errorf("sink %s: %w", s.name, err)
	}
	return dest, nil
}

// UploadName places an artifact in a subfolder with the "p_" marker.
func UploadName(prefix, artifact string) string {
	if prefix == "" {
		return "p_" + artifact
	}
	return strings.TrimSuffix(prefix, "/") + "/p_" + artifact
}

// TemplateProvider supplies the placeholder attachment document.
type TemplateProvider interface {
	FetchTemplate(ctx context.Context) ([]byte, error)
}

// StoreTemplate reads the template from a store object on every call.
type StoreTemplate struct {
	store  Store
	object string
}

// NewStoreTemplate creates a provider reading object from s.
func NewStoreTemplate(s Store, object string) *StoreTemplate {
	return &StoreTemplate{store: s, object: object}
}

func (t *StoreTemplate) FetchTemplate(ctx context.Context) ([]byte, error) {
	data, err := t.store.ReadBytes(ctx, t.object)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", t.object, err)
	}
	return data, nil
}
