package refstore

import (
	"errors"
	"fmt"

	"github.com/odvcencio/refledger/internal/models"
)

// ErrStorageCorruption means the logical length ran ahead of the physical
// buffer. It cannot happen under correct usage; treat it as fatal.
var ErrStorageCorruption = errors.New("push buffer shorter than logical length")

// Buffer holds one branch's push records. The buffer only ever grows;
// truncating force pushes shrink the branch's logical length instead, and
// later writes reuse the freed slots.
type Buffer struct {
	records []models.PushRecord
}

func NewBuffer() *Buffer { return &Buffer{} }

// Len returns the physical slot count, which may exceed a branch's logical
// length after truncation.
func (b *Buffer) Len() int { return len(b.records) }

// WriteAt places rec in the slot at active, the branch's current logical
// length. Overwrites a residual slot when one exists, appends otherwise.
func (b *Buffer) WriteAt(active int, rec models.PushRecord) error {
	switch {
	case active < len(b.records):
		b.records[active] = rec
	case active == len(b.records):
		b.records = append(b.records, rec)
	default:
		return fmt.Errorf("%w: logical length %d, physical %d", ErrStorageCorruption, active, len(b.records))
	}
	return nil
}

// At returns the record in slot i without bounds interpretation; the caller
// is responsible for staying below the logical length.
func (b *Buffer) At(i int) models.PushRecord { return b.records[i] }

// Window returns records in [start, min(start+count, active)). Slots past the
// logical length are never exposed, even when physically present. A start at
// or past the logical length yields an empty slice.
func (b *Buffer) Window(active, start, count int) []models.PushRecord {
	if start < 0 || count < 0 || start >= active {
		return []models.PushRecord{}
	}
	end := start + count
	if end > active {
		end = active
	}
	out := make([]models.PushRecord, end-start)
	copy(out, b.records[start:end])
	return out
}
