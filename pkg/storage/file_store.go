package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"leaddesk/pkg/domain"
)

// DirStore saves uploaded files flat under a base directory.
type DirStore struct {
	basePath string
}

var _ FileStore = (*DirStore)(nil)

// NewDirStore creates the base directory if missing.
func NewDirStore(basePath string) (*DirStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &DirStore{basePath: basePath}, nil
}

// Upload streams r into a temp file, syncs it and renames it into place, so
// List never sees a partial file.
func (d *DirStore) Upload(_ context.Context, originalName string, r io.Reader) (domain.UploadedFile, error) {
	name := StoredName(originalName)
	target := filepath.Join(d.basePath, name)

	tmp, err := os.CreateTemp(d.basePath, tempPrefix+"*")
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("%w: create temp: %w", ErrWriteFailure, err)
	}
	tmpPath := tmp.Name()
	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return domain.UploadedFile{}, fmt.Errorf("%w: write %s: %w", ErrWriteFailure, name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return domain.UploadedFile{}, fmt.Errorf("%w: sync %s: %w", ErrWriteFailure, name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return domain.UploadedFile{}, fmt.Errorf("%w: close %s: %w", ErrWriteFailure, name, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return domain.UploadedFile{}, fmt.Errorf("%w: chmod %s: %w", ErrWriteFailure, name, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return domain.UploadedFile{}, fmt.Errorf("%w: rename %s: %w", ErrWriteFailure, name, err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return domain.UploadedFile{}, fmt.Errorf("%w: stat %s: %w", ErrWriteFailure, name, err)
	}
	return fileInfo(name, size, info.ModTime()), nil
}

// List scans the directory on every call, newest first.
func (d *DirStore) List(context.Context) ([]domain.UploadedFile, error) {
	entries, err := os.ReadDir(d.basePath)
	if err != nil {
		return nil, fmt.Errorf("read storage dir: %w", err)
	}
	files := make([]domain.UploadedFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// removed between ReadDir and Info
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		files = append(files, fileInfo(entry.Name(), info.Size(), info.ModTime()))
	}
	sortNewestFirst(files)
	return files, nil
}

// Count returns the number of stored files.
func (d *DirStore) Count(ctx context.Context) (int64, error) {
	files, err := d.List(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(files)), nil
}

// Open returns the stored file for streaming.
func (d *DirStore) Open(_ context.Context, name string) (*Object, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	full := filepath.Join(d.basePath, name)
	info, err := os.Lstat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotFound
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &Object{Info: fileInfo(name, info.Size(), info.ModTime()), Body: f}, nil
}

// Delete removes a stored file.
func (d *DirStore) Delete(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	full := filepath.Join(d.basePath, name)
	info, err := os.Lstat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: stat %s: %w", ErrDeleteFailure, name, err)
	}
	if !info.Mode().IsRegular() {
		return ErrNotFound
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: remove %s: %w", ErrDeleteFailure, name, err)
	}
	return nil
}
