package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"leaddesk/pkg/domain"
)

// MinioStore implements FileStore for MinIO/S3 compatible storage. Objects
// are stored flat in the bucket under their stored names.
type MinioStore struct {
	client *minio.Client
	bucket string
}

var _ FileStore = (*MinioStore)(nil)

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

// Upload puts the object with an unknown size, letting the client stream it
// as a multipart upload.
func (m *MinioStore) Upload(ctx context.Context, originalName string, r io.Reader) (domain.UploadedFile, error) {
	name := StoredName(originalName)
	info, err := m.client.PutObject(ctx, m.bucket, name, r, -1, minio.PutObjectOptions{ContentType: ContentType(name)})
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("%w: put object %s: %w", ErrWriteFailure, name, err)
	}
	created := info.LastModified
	if created.IsZero() {
		created = time.Now()
	}
	return fileInfo(name, info.Size, created), nil
}

// List enumerates the bucket, newest first.
func (m *MinioStore) List(ctx context.Context) ([]domain.UploadedFile, error) {
	var files []domain.UploadedFile
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") || ValidateName(obj.Key) != nil {
			continue
		}
		files = append(files, fileInfo(obj.Key, obj.Size, obj.LastModified))
	}
	if files == nil {
		files = []domain.UploadedFile{}
	}
	sortNewestFirst(files)
	return files, nil
}

// Count returns the number of stored objects.
func (m *MinioStore) Count(ctx context.Context) (int64, error) {
	files, err := m.List(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(files)), nil
}

// Open returns the object for streaming.
func (m *MinioStore) Open(ctx context.Context, name string) (*Object, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapObjectError("get object", name, err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, mapObjectError("stat object", name, err)
	}
	return &Object{Info: fileInfo(name, stat.Size, stat.LastModified), Body: obj}, nil
}

// Delete removes an object. RemoveObject succeeds for missing keys, so the
// key is checked first.
func (m *MinioStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := m.client.StatObject(ctx, m.bucket, name, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: stat object %s: %w", ErrDeleteFailure, name, err)
	}
	if err := m.client.RemoveObject(ctx, m.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: delete object %s: %w", ErrDeleteFailure, name, err)
	}
	return nil
}

func mapObjectError(op, name string, err error) error {
	if isNoSuchKey(err) {
		return ErrNotFound
	}
	return fmt.Errorf("%s %s: %w", op, name, err)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
