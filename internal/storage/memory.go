package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/odvcencio/refledger/internal/models"
)

// MemoryBlob keeps packfiles in process memory. Used in tests and
// single-node development.
type MemoryBlob struct {
	mu    sync.Mutex
	blobs map[models.PackfileKey][]byte
}

func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{blobs: make(map[models.PackfileKey][]byte)}
}

// MemoryFactory provisions independent in-memory handles.
type MemoryFactory struct{}

func (MemoryFactory) Create(ctx context.Context) (Blob, error) { return NewMemoryBlob(), nil }

func (m *MemoryBlob) BulkWrite(ctx context.Context, key models.PackfileKey, data []byte, offsets, lengths []uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, err := applySegments(m.blobs[key], data, offsets, lengths)
	if err != nil {
		return err
	}
	m.blobs[key] = buf
	return nil
}

func (m *MemoryBlob) Remove(ctx context.Context, key models.PackfileKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[key]; !ok {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	delete(m.blobs, key)
	return nil
}

func (m *MemoryBlob) Truncate(ctx context.Context, key models.PackfileKey, length uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.blobs[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	if length < uint64(len(buf)) {
		m.blobs[key] = buf[:length]
	}
	return nil
}

func (m *MemoryBlob) Read(ctx context.Context, key models.PackfileKey) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.blobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

func (m *MemoryBlob) Size(ctx context.Context, key models.PackfileKey) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.blobs[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	return uint64(len(buf)), nil
}

func (m *MemoryBlob) Exists(ctx context.Context, key models.PackfileKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok, nil
}

// Call handles collaborator-specific extension operations. "ping" echoes the
// payload; anything else is unknown to this backend.
func (m *MemoryBlob) Call(ctx context.Context, op string, payload []byte) ([]byte, error) {
	switch op {
	case "ping":
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	default:
		return nil, fmt.Errorf("memory blob store: unknown operation %q", op)
	}
}
