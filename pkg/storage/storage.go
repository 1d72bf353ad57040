package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"leaddesk/pkg/domain"
)

var (
	ErrNotFound      = errors.New("file not found")
	ErrInvalidName   = errors.New("invalid file name")
	ErrWriteFailure  = errors.New("file write failed")
	ErrDeleteFailure = errors.New("file delete failed")
)

// URLPrefix is the public retrieval path for stored files.
const URLPrefix = "/api/files/"

// tempPrefix marks uploads that have not been renamed into place yet.
const tempPrefix = ".upload-"

const maxBaseNameLen = 120

// FileStore keeps uploaded objects. Metadata is derived from the stored
// object itself; there is no separate record.
type FileStore interface {
	Upload(ctx context.Context, originalName string, r io.Reader) (domain.UploadedFile, error)
	List(ctx context.Context) ([]domain.UploadedFile, error)
	Open(ctx context.Context, name string) (*Object, error)
	Delete(ctx context.Context, name string) error
	Count(ctx context.Context) (int64, error)
}

// Object is an open stored file. Callers must close Body.
type Object struct {
	Info domain.UploadedFile
	Body io.ReadCloser
}

// StoredName builds the collision-resistant name an upload is stored under:
// eight hex characters, an underscore, then the sanitized original base name.
func StoredName(originalName string) string {
	return uuid.New().String()[:8] + "_" + sanitizeName(originalName)
}

// ValidateName rejects anything that is not a plain file name inside the store.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidName
	case strings.ContainsAny(name, "/\\\x00"):
		return ErrInvalidName
	case filepath.IsAbs(name):
		return ErrInvalidName
	case strings.HasPrefix(name, tempPrefix):
		return ErrInvalidName
	}
	return nil
}

// FileURL returns the public retrieval URL of a stored name.
func FileURL(name string) string {
	return URLPrefix + url.PathEscape(name)
}

// sanitizeName keeps only the base name of an uploaded file name, dropping
// any directory part a client may have sent.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	name = strings.TrimLeft(name, ".")
	if name == "" || name == "/" {
		return "file"
	}
	if len(name) > maxBaseNameLen {
		ext := filepath.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = strings.ToValidUTF8(name[:maxBaseNameLen-len(ext)], "") + ext
	}
	return name
}

func fileInfo(name string, size int64, createdAt time.Time) domain.UploadedFile {
	return domain.UploadedFile{
		Name:      name,
		Size:      size,
		Type:      Classify(name),
		CreatedAt: createdAt.UTC(),
		URL:       FileURL(name),
	}
}

// sortNewestFirst orders by creation time, then by name for stable output.
func sortNewestFirst(files []domain.UploadedFile) {
	sort.Slice(files, func(i, j int) bool {
		if !files[i].CreatedAt.Equal(files[j].CreatedAt) {
			return files[i].CreatedAt.After(files[j].CreatedAt)
		}
		return files[i].Name < files[j].Name
	})
}
