// Package storage keeps uploaded media on the local filesystem.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidKey = errors.New("storage: invalid key")
	ErrNotFound   = errors.New("storage: file not found")
)

// FileStore persists uploads under a single root directory. Keys are
// slash-separated paths relative to that root.
type FileStore struct {
	basePath  string
	urlPrefix string
}

// Saved describes a file written by Save.
type Saved struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Kind     Kind   `json:"kind"`
}

// NewFileStore initializes a FileStore rooted at basePath. urlPrefix is
// prepended to keys to build public URLs.
func NewFileStore(basePath, urlPrefix string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: abs, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *FileStore) BasePath() string {
	return s.basePath
}

func (s *FileStore) URL(key string) string {
	return s.urlPrefix + "/" + key
}

// Save streams r into a new file for kind. At most limit bytes are accepted;
// a larger stream is discarded and a *SizeError returned.
func (s *FileStore) Save(ctx context.Context, r io.Reader, kind Kind, mimeType string, limit int64) (*Saved, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := kind.dir() + "/" + uuid.New().String() + ExtensionFor(mimeType)
	full := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("storage: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(r, limit+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("storage: write file: %w", err)
	}
	if n > limit {
		return nil, &SizeError{Limit: limit}
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return nil, fmt.Errorf("storage: finalize file: %w", err)
	}

	return &Saved{Key: key, URL: s.URL(key), Size: n, MimeType: mimeType, Kind: kind}, nil
}

// Resolve maps a key to an absolute path inside the root.
func (s *FileStore) Resolve(key string) (string, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.basePath, filepath.FromSlash(clean))
	rel, err := filepath.Rel(s.basePath, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return full, nil
}

// Open returns the file for key. Directories and missing files are
// ErrNotFound.
func (s *FileStore) Open(key string) (*os.File, os.FileInfo, error) {
	full, err := s.Resolve(key)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, ErrNotFound
	}
	return f, info, nil
}

func (s *FileStore) Remove(key string) error {
	full, err := s.Resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", key, err)
	}
	return nil
}

// DataURL returns the file as a base64 data URL.
func (s *FileStore) DataURL(key, mimeType string) (string, error) {
	full, err := s.Resolve(key)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("storage: read %s: %w", key, err)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// PurgeOlderThan removes regular files last modified before cutoff and
// returns the keys it deleted.
func (s *FileStore) PurgeOlderThan(cutoff time.Time) ([]string, error) {
	var removed []string
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			rel, _ := filepath.Rel(s.basePath, path)
			removed = append(removed, filepath.ToSlash(rel))
		}
		return nil
	})
	return removed, err
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsRune(key, 0) {
		return "", ErrInvalidKey
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
