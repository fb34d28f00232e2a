package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryBlobBulkWriteAndRead(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBlob()

	// Two segments consumed sequentially from data, landing at their
	// declared offsets.
	data := []byte("helloworld")
	if err := m.BulkWrite(ctx, "pack-1", data, []uint64{0, 5}, []uint64{5, 5}); err != nil {
		t.Fatalf("bulk write: %v", err)
	}

	got, err := m.Read(ctx, "pack-1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "helloworld" {
		t.Fatalf("read = %q", got)
	}

	size, err := m.Size(ctx, "pack-1")
	if err != nil || size != 10 {
		t.Fatalf("size = %d, err = %v", size, err)
	}
}

func TestMemoryBlobSparseWriteGrowsBuffer(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBlob()
	if err := m.BulkWrite(ctx, "pack-1", []byte("abc"), []uint64{4}, []uint64{3}); err != nil {
		t.Fatalf("bulk write: %v", err)
	}
	size, err := m.Size(ctx, "pack-1")
	if err != nil || size != 7 {
		t.Fatalf("size = %d, err = %v", size, err)
	}
}

func TestMemoryBlobSegmentValidation(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBlob()

	err := m.BulkWrite(ctx, "pack-1", []byte("abc"), []uint64{0}, []uint64{5})
	if !errors.Is(err, ErrBadSegments) {
		t.Fatalf("overrun err = %v, want ErrBadSegments", err)
	}
	err = m.BulkWrite(ctx, "pack-1", []byte("abc"), []uint64{0, 1}, []uint64{1})
	if !errors.Is(err, ErrBadSegments) {
		t.Fatalf("mismatched lengths err = %v, want ErrBadSegments", err)
	}
}

func TestMemoryBlobSegmentBoundsCannotWrap(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBlob()

	// A length near the uint64 maximum makes the running coverage sum wrap;
	// it must be rejected, not allocated.
	err := m.BulkWrite(ctx, "pack-1", make([]byte, 8), []uint64{0, 0}, []uint64{8, ^uint64(0) - 3})
	if !errors.Is(err, ErrBadSegments) {
		t.Fatalf("wrapping length err = %v, want ErrBadSegments", err)
	}

	// Offset plus length wrapping around zero.
	err = m.BulkWrite(ctx, "pack-1", make([]byte, 4), []uint64{^uint64(0) - 1}, []uint64{4})
	if !errors.Is(err, ErrBadSegments) {
		t.Fatalf("wrapping offset err = %v, want ErrBadSegments", err)
	}

	// In-range arithmetic but an offset far past any plausible blob size.
	err = m.BulkWrite(ctx, "pack-1", make([]byte, 4), []uint64{1 << 40}, []uint64{4})
	if !errors.Is(err, ErrBadSegments) {
		t.Fatalf("oversized offset err = %v, want ErrBadSegments", err)
	}

	if ok, _ := m.Exists(ctx, "pack-1"); ok {
		t.Fatal("rejected writes must leave no blob behind")
	}
}

func TestMemoryBlobTruncateAndRemove(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBlob()
	if err := m.BulkWrite(ctx, "pack-1", []byte("helloworld"), []uint64{0}, []uint64{10}); err != nil {
		t.Fatal(err)
	}

	if err := m.Truncate(ctx, "pack-1", 5); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	got, err := m.Read(ctx, "pack-1")
	if err != nil || string(got) != "hello" {
		t.Fatalf("read after truncate = %q, err = %v", got, err)
	}

	// Truncating beyond the current size is a no-op, not an extension.
	if err := m.Truncate(ctx, "pack-1", 100); err != nil {
		t.Fatalf("oversize truncate: %v", err)
	}
	if size, _ := m.Size(ctx, "pack-1"); size != 5 {
		t.Fatalf("size after oversize truncate = %d, want 5", size)
	}

	if err := m.Remove(ctx, "pack-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ok, err := m.Exists(ctx, "pack-1")
	if err != nil || ok {
		t.Fatalf("exists after remove = %v, err = %v", ok, err)
	}
	if err := m.Remove(ctx, "pack-1"); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("double remove err = %v, want ErrBlobNotFound", err)
	}
}
