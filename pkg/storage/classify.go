package storage

import (
	"mime"
	"path/filepath"
	"strings"

	"leaddesk/pkg/domain"
)

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".svg": {}, ".bmp": {}, ".ico": {},
}

var documentExts = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".txt": {}, ".csv": {}, ".md": {}, ".rtf": {}, ".odt": {},
}

// Classify derives the file type from the lowercase extension.
func Classify(name string) domain.FileType {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := imageExts[ext]; ok {
		return domain.FileTypeImage
	}
	if _, ok := documentExts[ext]; ok {
		return domain.FileTypeDocument
	}
	return domain.FileTypeOther
}

// ContentType guesses the MIME type served for a stored name.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
