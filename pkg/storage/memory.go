package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"sort"
	"sync"
)

var errObjectNotFound = stderrors.New("object not found")

// MemoryBackend keeps objects in memory under mem://bucket/key URIs.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string][]byte)}
}

func memKey(loc Location) string { return loc.Bucket + "/" + loc.Key }

// Open implements Backend.
func (m *MemoryBackend) Open(_ context.Context, loc Location) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[memKey(loc)]
	if !ok {
		return nil, errNotFound(loc)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Create implements Backend. The object becomes visible on Close.
func (m *MemoryBackend) Create(_ context.Context, loc Location) (io.WriteCloser, error) {
	return &memWriter{backend: m, key: memKey(loc)}, nil
}

// Keys lists the stored objects as bucket/key, sorted.
func (m *MemoryBackend) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type memWriter struct {
	backend *MemoryBackend
	key     string
	buf     bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	w.backend.mu.Lock()
	defer w.backend.mu.Unlock()
	w.backend.objects[w.key] = bytes.Clone(w.buf.Bytes())
	return nil
}
