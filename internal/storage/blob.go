// Package storage holds the external blob collaborator contract and the
// capability-gated proxy in front of it. The ledger core never touches blob
// content; it only hands packfile keys across this boundary.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/odvcencio/refledger/internal/models"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrBadSegments  = errors.New("bulk-write segment lengths do not cover data")
)

// Operation identifiers understood by the proxy. The first three mutate
// content and are capability-gated; everything else passes through.
const (
	OpBulkWrite = "bulk-write"
	OpRemove    = "remove"
	OpTruncate  = "truncate"
	OpRead      = "read"
	OpSize      = "size"
	OpExists    = "exists"
)

// Blob is one repository's handle into the external content store.
// Call is the escape hatch for collaborator-specific operations the ledger
// does not enumerate; implementations fail it for identifiers they do not
// recognize and that failure is relayed to the caller untouched.
type Blob interface {
	BulkWrite(ctx context.Context, key models.PackfileKey, data []byte, offsets, lengths []uint64) error
	Remove(ctx context.Context, key models.PackfileKey) error
	Truncate(ctx context.Context, key models.PackfileKey, length uint64) error
	Read(ctx context.Context, key models.PackfileKey) ([]byte, error)
	Size(ctx context.Context, key models.PackfileKey) (uint64, error)
	Exists(ctx context.Context, key models.PackfileKey) (bool, error)
	Call(ctx context.Context, op string, payload []byte) ([]byte, error)
}

// Factory provisions a fresh Blob handle. Invoked exactly once per ledger,
// at initialization.
type Factory interface {
	Create(ctx context.Context) (Blob, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context) (Blob, error)

func (f FactoryFunc) Create(ctx context.Context) (Blob, error) { return f(ctx) }

// maxBlobBytes caps how far a segment write may extend a single blob.
const maxBlobBytes = 1 << 30

// applySegments writes each sequential segment of data into buf at its
// offset, growing buf as needed. Shared by the blob implementations.
// Offsets and lengths are caller-supplied, so every bound is checked with
// wrap-safe arithmetic before any byte moves.
func applySegments(buf, data []byte, offsets, lengths []uint64) ([]byte, error) {
	if len(offsets) != len(lengths) {
		return nil, fmt.Errorf("%w: %d offsets, %d lengths", ErrBadSegments, len(offsets), len(lengths))
	}
	var pos uint64
	for i := range lengths {
		// pos never exceeds len(data), so the subtraction cannot wrap.
		if lengths[i] > uint64(len(data))-pos {
			return nil, fmt.Errorf("%w: segment %d overruns data", ErrBadSegments, i)
		}
		end := offsets[i] + lengths[i]
		if end < offsets[i] || end > maxBlobBytes {
			return nil, fmt.Errorf("%w: segment %d exceeds blob size limit", ErrBadSegments, i)
		}
		if end > uint64(len(buf)) {
			grown := make([]byte, end)
			copy(grown, buf)
			buf = grown
		}
		copy(buf[offsets[i]:end], data[pos:pos+lengths[i]])
		pos += lengths[i]
	}
	if pos != uint64(len(data)) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadSegments, uint64(len(data))-pos)
	}
	return buf, nil
}
