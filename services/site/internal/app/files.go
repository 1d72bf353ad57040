package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"leaddesk/pkg/domain"
	"leaddesk/pkg/storage"
)

const fileResource = "File"

// UploadFile stores an uploaded file under a collision-resistant name.
func (a *App) UploadFile(ctx context.Context, originalName string, r io.Reader) (domain.UploadedFile, error) {
	if strings.TrimSpace(originalName) == "" {
		return domain.UploadedFile{}, invalid("file name is required")
	}
	f, err := a.files.Upload(ctx, originalName, r)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("upload %s: %w", originalName, err)
	}
	return f, nil
}

// ListFiles scans the file store, newest first.
func (a *App) ListFiles(ctx context.Context) ([]domain.UploadedFile, error) {
	files, err := a.files.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// DeleteFile removes a stored file by its stored name.
func (a *App) DeleteFile(ctx context.Context, name string) error {
	err := a.files.Delete(ctx, name)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrInvalidName):
		return invalid("invalid file name")
	case errors.Is(err, storage.ErrNotFound):
		return notFound(fileResource, err)
	default:
		return fmt.Errorf("delete file %s: %w", name, err)
	}
}

// OpenFile opens a stored file for public retrieval. Names that could never
// be stored are reported as missing.
func (a *App) OpenFile(ctx context.Context, name string) (*storage.Object, error) {
	obj, err := a.files.Open(ctx, name)
	switch {
	case err == nil:
		return obj, nil
	case errors.Is(err, storage.ErrInvalidName), errors.Is(err, storage.ErrNotFound):
		return nil, notFound(fileResource, err)
	default:
		return nil, fmt.Errorf("open file %s: %w", name, err)
	}
}
