package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/campus-market/backend/internal/config"
)

// Upload folders.
const (
	FolderAvatars       = "avatars"
	FolderKYC           = "kyc"
	FolderProductImages = "product-images"
)

// Storage persists uploaded files and returns the key they can be found under.
type Storage interface {
	Save(ctx context.Context, folder, filename string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New picks the backend named by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "disk":
		return NewDisk(cfg.UploadDir)
	case "minio":
		return NewMinio(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName strips directories and unsafe characters from a client file name.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}

// ObjectKey builds "<folder>/<uuid>-<sanitized name>".
func ObjectKey(folder, filename string) string {
	return path.Join(folder, uuid.NewString()+"-"+SanitizeName(filename))
}

// DeleteAll removes every key, returning the first failure.
func DeleteAll(ctx context.Context, s Storage, keys ...string) error {
	var firstErr error
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
