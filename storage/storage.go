// Package storage persists uploaded binary content behind one interface,
// backed by Cloudinary or the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/shamsucomsoft/onv-ncne-api/config"
)

// Visibility selects the private or public namespace of a store.
type Visibility bool

const (
	Private Visibility = false
	Public  Visibility = true
)

func (v Visibility) String() string {
	if v == Public {
		return "public"
	}
	return "private"
}

var (
	ErrNotFound    = errors.New("storage: object not found")
	ErrInvalidPath = errors.New("storage: invalid object path")
)

// Object is a stored file with its content type and user metadata.
type Object struct {
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

type Store interface {
	Save(ctx context.Context, key, contentType string, data []byte, metadata map[string]string, vis Visibility) error
	Get(ctx context.Context, key string, vis Visibility) ([]byte, error)
	GetWithMetadata(ctx context.Context, key string, vis Visibility) (*Object, error)
	Delete(ctx context.Context, key string, vis Visibility) error
	Exists(ctx context.Context, key string, vis Visibility) (bool, error)
	PublicURL(key string) string
	Location() string
}

// New builds the backend named by cfg.Location. The choice is fixed for the
// lifetime of the returned store.
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Location {
	case config.StorageLocal:
		return NewLocal(cfg.LocalPath, cfg.PublicBasePath)
	case config.StorageCloud:
		return NewCloudinary(cfg)
	default:
		return nil, fmt.Errorf("unknown storage location %q", cfg.Location)
	}
}

// cleanKey normalises an object key and rejects keys escaping the namespace.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", ErrInvalidPath
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return "", ErrInvalidPath
		}
	}
	cleaned := path.Clean("/" + key)
	if cleaned == "/" {
		return "", ErrInvalidPath
	}
	return strings.TrimPrefix(cleaned, "/"), nil
}

const metadataSuffix = ".metadata.json"

// sidecar is the persisted form of an object's metadata.
type sidecar map[string]string

func (s sidecar) split() (string, map[string]string) {
	contentType := s["contentType"]
	meta := make(map[string]string, len(s))
	for k, v := range s {
		if k != "contentType" {
			meta[k] = v
		}
	}
	return contentType, meta
}

func newSidecar(contentType string, metadata map[string]string) sidecar {
	s := make(sidecar, len(metadata)+1)
	for k, v := range metadata {
		s[k] = v
	}
	s["contentType"] = contentType
	return s
}
