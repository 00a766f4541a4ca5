package storage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const thumbSize = 320

// Thumbnail writes a JPEG preview of an image key under thumbs/ and returns
// the preview key with the source dimensions.
func (s *FileStore) Thumbnail(key string) (thumbKey string, width, height int, err error) {
	src, err := s.Resolve(key)
	if err != nil {
		return "", 0, 0, err
	}
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", 0, 0, fmt.Errorf("storage: decode %s: %w", key, err)
	}
	b := img.Bounds()

	thumb := imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
	base := strings.TrimSuffix(path.Base(key), path.Ext(key))
	thumbKey = "thumbs/" + base + ".jpg"

	dst := filepath.Join(s.basePath, filepath.FromSlash(thumbKey))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", 0, 0, fmt.Errorf("storage: ensure thumbs dir: %w", err)
	}
	if err := imaging.Save(thumb, dst, imaging.JPEGQuality(80)); err != nil {
		return "", 0, 0, fmt.Errorf("storage: save thumbnail: %w", err)
	}
	return thumbKey, b.Dx(), b.Dy(), nil
}
