package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ginjaninja78/dfr-chargeback-bundler/internal/types"
)

type memoryObject struct {
	data      []byte
	createdAt time.Time
}

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject), now: time.Now}
}

// Put stores an object with an explicit creation time.
func (m *Memory) Put(name string, data []byte, createdAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = memoryObject{data: append([]byte(nil), data...), createdAt: createdAt}
}

// Has reports whether an object exists.
func (m *Memory) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[name]
	return ok
}

// Names returns every object name in order.
func (m *Memory) Names() []string {
	objects, _ := m.List(context.Background(), "")
	names := make([]string, len(objects))
	for i, o := range objects {
		names[i] = o.Name
	}
	return names
}

func (m *Memory) List(_ context.Context, prefix string) ([]types.SourceObject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.SourceObject
	for name, obj := range m.objects {
		if strings.HasPrefix(name, prefix) {
			out = append(out, types.SourceObject{Name: name, CreatedAt: obj.createdAt})
		}
	}
	sortObjects(out)
	return out, nil
}

func (m *Memory) ReadText(ctx context.Context, name string) (string, error) {
	data, err := m.ReadBytes(ctx, name)
	return string(data), err
}

func (m *Memory) ReadBytes(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *Memory) WriteBytes(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	createdAt := m.now()
	if existing, ok := m.objects[name]; ok {
		createdAt = existing.createdAt
	}
	m.objects[name] = memoryObject{data: append([]byte(nil), data...), createdAt: createdAt}
	return nil
}

func (m *Memory) WriteText(ctx context.Context, name, text string) error {
	return m.WriteBytes(ctx, name, []byte(text))
}
