package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/odvcencio/refledger/internal/models"
)

// FileBlob stores packfiles on the local filesystem, one zstd-compressed
// file per key.
type FileBlob struct {
	root string
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

func NewFileBlob(root string) (*FileBlob, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("init zstd decoder: %w", err)
	}
	return &FileBlob{root: root, enc: enc, dec: dec}, nil
}

// FileFactory provisions file-backed handles, one subdirectory per ledger.
type FileFactory struct {
	Root string
	next int
}

func (f *FileFactory) Create(ctx context.Context) (Blob, error) {
	f.next++
	return NewFileBlob(filepath.Join(f.Root, fmt.Sprintf("%d", f.next)))
}

func (f *FileBlob) path(key models.PackfileKey) (string, error) {
	name := string(key)
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid packfile key %q", key)
	}
	return filepath.Join(f.root, name+".zst"), nil
}

func (f *FileBlob) load(key models.PackfileKey) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	compressed, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return f.dec.DecodeAll(compressed, nil)
}

func (f *FileBlob) store(key models.PackfileKey, data []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	return os.WriteFile(path, f.enc.EncodeAll(data, nil), 0o644)
}

func (f *FileBlob) BulkWrite(ctx context.Context, key models.PackfileKey, data []byte, offsets, lengths []uint64) error {
	existing, err := f.load(key)
	if err != nil && !errors.Is(err, ErrBlobNotFound) {
		return err
	}
	buf, err := applySegments(existing, data, offsets, lengths)
	if err != nil {
		return err
	}
	return f.store(key, buf)
}

func (f *FileBlob) Remove(ctx context.Context, key models.PackfileKey) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	} else if err != nil {
		return err
	}
	return nil
}

func (f *FileBlob) Truncate(ctx context.Context, key models.PackfileKey, length uint64) error {
	buf, err := f.load(key)
	if err != nil {
		return err
	}
	if length >= uint64(len(buf)) {
		return nil
	}
	return f.store(key, buf[:length])
}

func (f *FileBlob) Read(ctx context.Context, key models.PackfileKey) ([]byte, error) {
	return f.load(key)
}

func (f *FileBlob) Size(ctx context.Context, key models.PackfileKey) (uint64, error) {
	buf, err := f.load(key)
	if err != nil {
		return 0, err
	}
	return uint64(len(buf)), nil
}

func (f *FileBlob) Exists(ctx context.Context, key models.PackfileKey) (bool, error) {
	path, err := f.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err == nil {
		return true, nil
	} else if os.IsNotExist(err) {
		return false, nil
	} else {
		return false, err
	}
}

func (f *FileBlob) Call(ctx context.Context, op string, payload []byte) ([]byte, error) {
	return nil, fmt.Errorf("file blob store: unknown operation %q", op)
}
