package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/config"
)

var (
	memoryMu      sync.Mutex
	memoryBuckets = make(map[string]*Memory)
)

// MemoryBucket returns the process-wide in-memory store registered under
// bucket, creating it on first use. Opening the same memory bucket twice
// yields the same store.
func MemoryBucket(bucket string) *Memory {
	memoryMu.Lock()
	defer memoryMu.Unlock()

	if m, ok := memoryBuckets[bucket]; ok {
		return m
	}
	m := NewMemory()
	memoryBuckets[bucket] = m
	return m
}

// Open creates a store for a configured backend and bucket.
func Open(ctx context.Context, backend, bucket string, cfg *config.Config) (Store, error) {
	switch backend {
	case config.BackendMemory:
		return MemoryBucket(bucket), nil
	case config.BackendLocal:
		return NewLocal(bucket)
	case config.BackendGCS:
		return NewGCS(ctx, bucket, cfg.GCS)
	case config.BackendS3:
		return NewS3(ctx, bucket, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// Stores holds every store a batch needs.
type Stores struct {
	Source   Store
	State    Store
	Sinks    []Sink
	Template TemplateProvider
}

// OpenAll opens the source, state and sink stores described by cfg.
func OpenAll(ctx context.Context, cfg *config.Config) (*Stores, error) {
	source, err := Open(ctx, cfg.Source.Backend, cfg.Source.Bucket, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening source store: %w", err)
	}

	state, err := Open(ctx, cfg.State.Backend, cfg.State.Bucket, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	sinks := make([]Sink, 0, len(cfg.Sinks))
	for _, sc := range cfg.Sinks {
		s, err := Open(ctx, sc.Backend, sc.Bucket, cfg)
		if err != nil {
			return nil, fmt.Errorf("opening sink %s: %w", sc.Name, err)
		}
		sinks = append(sinks, NewStoreSink(sc.Name, s, sc.Prefix))
	}

	return &Stores{
		Source:   source,
		State:    state,
		Sinks:    sinks,
		Template: NewStoreTemplate(state, cfg.State.TemplateObject),
	}, nil
}
