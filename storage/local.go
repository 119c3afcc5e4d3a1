package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/shamsucomsoft/onv-ncne-api/config"
	"github.com/shamsucomsoft/onv-ncne-api/logger"
)

// LocalStore keeps objects under <root>/<private|public>/<key>, with metadata
// in a <key>.metadata.json sidecar.
type LocalStore struct {
	root       string
	publicBase string
}

func NewLocal(root, publicBase string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("local storage root is empty")
	}
	for _, vis := range []Visibility{Private, Public} {
		if err := os.MkdirAll(filepath.Join(root, vis.String()), 0o755); err != nil {
			return nil, fmt.Errorf("failed to initialize local storage directory: %w", err)
		}
	}
	if publicBase == "" {
		publicBase = "/public"
	}
	logger.L().Info("📁 Local storage initialized", zap.String("root", root))
	return &LocalStore{root: root, publicBase: strings.TrimSuffix(publicBase, "/")}, nil
}

func (s *LocalStore) Location() string { return config.StorageLocal }

// Root is the directory holding both namespaces.
func (s *LocalStore) Root() string { return s.root }

// PublicDir is the directory served under the public base path.
func (s *LocalStore) PublicDir() string { return filepath.Join(s.root, Public.String()) }

func (s *LocalStore) fullPath(key string, vis Visibility) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, vis.String(), filepath.FromSlash(cleaned)), nil
}

func (s *LocalStore) Save(ctx context.Context, key, contentType string, data []byte, metadata map[string]string, vis Visibility) error {
	full, err := s.fullPath(key, vis)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}

	meta, err := json.MarshalIndent(newSidecar(contentType, metadata), "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(full+metadataSuffix, meta, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	logger.L().Debug("File saved to local storage", zap.String("path", full))
	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string, vis Visibility) ([]byte, error) {
	full, err := s.fullPath(key, vis)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// GetWithMetadata returns the object and its sidecar. A missing sidecar is
// not an error; the object comes back with empty metadata.
func (s *LocalStore) GetWithMetadata(ctx context.Context, key string, vis Visibility) (*Object, error) {
	data, err := s.Get(ctx, key, vis)
	if err != nil {
		return nil, err
	}
	full, _ := s.fullPath(key, vis)

	obj := &Object{Data: data, Metadata: map[string]string{}}
	raw, err := os.ReadFile(full + metadataSuffix)
	if err != nil {
		logger.L().Warn("⚠️  No metadata file found", zap.String("key", key))
		return obj, nil
	}
	var sc sidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		logger.L().Warn("⚠️  Unreadable metadata file", zap.String("key", key), zap.Error(err))
		return obj, nil
	}
	obj.ContentType, obj.Metadata = sc.split()
	return obj, nil
}

// Delete removes the object and its sidecar. Missing files are ignored.
func (s *LocalStore) Delete(ctx context.Context, key string, vis Visibility) error {
	full, err := s.fullPath(key, vis)
	if err != nil {
		return err
	}
	for _, p := range []string{full, full + metadataSuffix} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, key string, vis Visibility) (bool, error) {
	full, err := s.fullPath(key, vis)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// PublicURL returns the path the public namespace is served under.
func (s *LocalStore) PublicURL(key string) string {
	cleaned, err := cleanKey(key)
	if err != nil {
		return s.publicBase + "/"
	}
	return s.publicBase + "/" + cleaned
}
