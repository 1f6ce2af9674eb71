package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/splitlab/splitlab-backend/internal/pkg/errors"
)

// NewStorageKey builds a blob key from a fresh uuid and a normalized file
// extension. The extension comes from the filename when present, else from
// the MIME subtype; "jpeg" is normalized to "jpg".
func NewStorageKey(filename, mimeType string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		if i := strings.Index(mimeType, "/"); i >= 0 {
			ext = strings.ToLower(mimeType[i+1:])
		}
	}
	if ext == "jpeg" {
		ext = "jpg"
	}
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s.%s", uuid.New().String(), ext)
}

// ContentTypeForKey resolves the response content type from the storage
// key's extension. Unknown extensions fall back to image/png.
func ContentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	case strings.HasSuffix(s, ".svg"):
		return "image/svg+xml"
	default:
		return "image/png"
	}
}

// mapDBErr translates gorm errors into the service-level taxonomy.
func mapDBErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.ErrNotFound
	}
	return fmt.Errorf("%w: %v", pkgerrors.ErrStorageUnavailable, err)
}
