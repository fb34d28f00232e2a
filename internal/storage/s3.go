package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/odvcencio/refledger/internal/models"
)

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3Blob stores packfiles in an S3-compatible backend (AWS S3, MinIO, etc).
// S3 objects are immutable, so the segment and truncate operations work
// read-modify-write on whole objects.
type S3Blob struct {
	client *minio.Client
	bucket string
	prefix string
}

func newS3Client(cfg S3Config) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	// Ensure bucket exists
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return client, nil
}

func NewS3Blob(cfg S3Config, prefix string) (*S3Blob, error) {
	client, err := newS3Client(cfg)
	if err != nil {
		return nil, err
	}
	return &S3Blob{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// S3Factory provisions handles sharing one client, each under its own object
// key prefix.
type S3Factory struct {
	Config S3Config

	client *minio.Client
	next   int
}

func (f *S3Factory) Create(ctx context.Context) (Blob, error) {
	if f.client == nil {
		client, err := newS3Client(f.Config)
		if err != nil {
			return nil, err
		}
		f.client = client
	}
	f.next++
	return &S3Blob{
		client: f.client,
		bucket: f.Config.Bucket,
		prefix: fmt.Sprintf("%s%d/", packfileKeyPrefix, f.next),
	}, nil
}

func (s *S3Blob) object(key models.PackfileKey) string { return s.prefix + string(key) }

func (s *S3Blob) get(ctx context.Context, key models.PackfileKey) ([]byte, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, false, err
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(obj); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}

func (s *S3Blob) put(ctx context.Context, key models.PackfileKey, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.object(key), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	return err
}

func (s *S3Blob) BulkWrite(ctx context.Context, key models.PackfileKey, data []byte, offsets, lengths []uint64) error {
	cur, _, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	buf, err := applySegments(cur, data, offsets, lengths)
	if err != nil {
		return err
	}
	return s.put(ctx, key, buf)
}

func (s *S3Blob) Remove(ctx context.Context, key models.PackfileKey) error {
	ok, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	return s.client.RemoveObject(ctx, s.bucket, s.object(key), minio.RemoveObjectOptions{})
}

func (s *S3Blob) Truncate(ctx context.Context, key models.PackfileKey, length uint64) error {
	cur, ok, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	if length >= uint64(len(cur)) {
		return nil
	}
	return s.put(ctx, key, cur[:length])
}

func (s *S3Blob) Read(ctx context.Context, key models.PackfileKey) ([]byte, error) {
	buf, ok, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	return buf, nil
}

func (s *S3Blob) Size(ctx context.Context, key models.PackfileKey) (uint64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.object(key), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return 0, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return 0, err
	}
	return uint64(info.Size), nil
}

func (s *S3Blob) Exists(ctx context.Context, key models.PackfileKey) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.object(key), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Blob) Call(ctx context.Context, op string, payload []byte) ([]byte, error) {
	return nil, fmt.Errorf("s3 blob store: unknown operation %q", op)
}

var _ Blob = (*S3Blob)(nil)
