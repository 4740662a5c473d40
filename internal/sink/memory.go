package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aryankumar/fanout/internal/objectid"
	"github.com/aryankumar/fanout/internal/util"
)

// Memory keeps chunks in process memory. It is safe for concurrent use by
// all units of a pool.
type Memory struct {
	mu      sync.RWMutex
	objects map[objectid.ID][]byte
}

// NewMemory creates an empty in-memory sink
func NewMemory() *Memory {
	return &Memory{objects: make(map[objectid.ID][]byte)}
}

// Name implements Driver
func (m *Memory) Name() string {
	return "memory"
}

// Put implements Driver
func (m *Memory) Put(ctx context.Context, id objectid.ID, body io.Reader, size int64) error {
	buf := bytes.NewBuffer(make([]byte, 0, max(size, 0)))
	if _, err := io.Copy(buf, body); err != nil {
		return fmt.Errorf("failed to read chunk %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[id] = buf.Bytes()
	return nil
}

// Get implements Driver
func (m *Memory) Get(ctx context.Context, id objectid.ID) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[id]
	if !ok {
		return nil, fmt.Errorf("chunk %s: %w", id, util.ErrObjectNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete implements Driver
func (m *Memory) Delete(ctx context.Context, id objectid.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
	return nil
}

// Len returns the number of stored chunks
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
