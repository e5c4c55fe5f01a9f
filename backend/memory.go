// Package backend provides the byte stores behind a simulated drive
package backend

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ehrlich-b/go-diskdrv/internal/interfaces"
)

var (
	// ErrClosed is returned by every operation on a closed store
	ErrClosed = errors.New("storage closed")

	// ErrOutOfRange is returned for writes that start past the end of the store
	ErrOutOfRange = errors.New("write beyond end of storage")
)

// Memory provides a RAM-based drive image
type Memory struct {
	data []byte
	size int64
	mu   sync.RWMutex

	reads  atomic.Uint64
	writes atomic.Uint64
}

// NewMemory creates a new zero-filled memory store of the specified size
func NewMemory(size int64) *Memory {
	return &Memory{
		data: make([]byte, size),
		size: size,
	}
}

// ReadAt implements the Storage interface. Reads past the end are short.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return 0, ErrClosed
	}
	m.reads.Add(1)

	if off >= m.size {
		return 0, nil
	}

	available := m.size - off
	if int64(len(p)) > available {
		p = p[:available]
	}

	n := copy(p, m.data[off:off+int64(len(p))])
	return n, nil
}

// WriteAt implements the Storage interface. Writes running past the end
// are truncated.
func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return 0, ErrClosed
	}
	if off >= m.size {
		return 0, ErrOutOfRange
	}
	m.writes.Add(1)

	available := m.size - off
	if int64(len(p)) > available {
		p = p[:available]
	}

	n := copy(m.data[off:off+int64(len(p))], p)
	return n, nil
}

// Size implements the Storage interface
func (m *Memory) Size() int64 {
	return m.size
}

// Close implements the Storage interface
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	return nil
}

// Flush implements the Storage interface
func (m *Memory) Flush() error {
	return nil
}

// Stats implements the StatStorage interface
func (m *Memory) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"type":      "memory",
		"size":      m.size,
		"allocated": len(m.data),
		"reads":     m.reads.Load(),
		"writes":    m.writes.Load(),
	}
}

// Compile-time interface checks
var (
	_ interfaces.Storage     = (*Memory)(nil)
	_ interfaces.StatStorage = (*Memory)(nil)
)
