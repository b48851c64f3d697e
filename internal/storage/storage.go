// Package storage keeps user avatar images in object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AvatarStore uploads and removes avatar objects.
type AvatarStore interface {
	// Upload stores body under key and returns a public URL for it.
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AvatarKey builds the object key for a new avatar of userID:
// {userID}/{yyyy}/{mm}/{uuid}{ext}.
func AvatarKey(userID uuid.UUID, contentType string, now time.Time) (string, error) {
	ext, ok := allowedImageTypes[strings.ToLower(contentType)]
	if !ok {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}
	return path.Join(
		userID.String(),
		now.UTC().Format("2006"),
		now.UTC().Format("01"),
		uuid.NewString()+ext,
	), nil
}
