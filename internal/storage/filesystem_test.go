package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), "/api/uploads")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func TestSaveWritesUnderKindDir(t *testing.T) {
	s := newStore(t)
	saved, err := s.Save(context.Background(), strings.NewReader("RIFF....WAVE"), KindAudio, "audio/wav", MB)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(saved.Key, "audio/") || !strings.HasSuffix(saved.Key, ".wav") {
		t.Errorf("key = %s", saved.Key)
	}
	if saved.URL != "/api/uploads/"+saved.Key {
		t.Errorf("url = %s", saved.URL)
	}
	if saved.Size != 12 {
		t.Errorf("size = %d", saved.Size)
	}
	f, info, err := s.Open(saved.Key)
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	if info.Size() != 12 {
		t.Errorf("stored size = %d", info.Size())
	}
}

func TestSaveRejectsOversizeWithoutWriting(t *testing.T) {
	s := newStore(t)
	data := bytes.Repeat([]byte{0xff}, 2*MB)

	_, err := s.Save(context.Background(), bytes.NewReader(data), KindImage, "image/jpeg", MB)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
	if !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("message = %q", err.Error())
	}
	if n := countFiles(t, s.BasePath()); n != 0 {
		t.Errorf("%d files left on disk", n)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	s := newStore(t)
	for _, key := range []string{"", "..", "../etc/passwd", "images/../../secret", "..\\..\\win.ini", "a\x00b"} {
		if _, err := s.Resolve(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Resolve(%q) err = %v, want ErrInvalidKey", key, err)
		}
	}
	p, err := s.Resolve("/images/./a.png")
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join(s.BasePath(), "images", "a.png") {
		t.Errorf("resolved to %s", p)
	}
}

func TestOpenMissingAndDirectory(t *testing.T) {
	s := newStore(t)
	if _, _, err := s.Open("images/nope.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file err = %v", err)
	}
	os.MkdirAll(filepath.Join(s.BasePath(), "images"), 0o755)
	if _, _, err := s.Open("images"); !errors.Is(err, ErrNotFound) {
		t.Errorf("directory err = %v", err)
	}
}

func TestThumbnailAndDataURL(t *testing.T) {
	s := newStore(t)
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for x := 0; x < 640; x++ {
		img.Set(x, 10, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	saved, err := s.Save(context.Background(), &buf, KindImage, "image/png", 8*MB)
	if err != nil {
		t.Fatal(err)
	}
	thumbKey, w, h, err := s.Thumbnail(saved.Key)
	if err != nil {
		t.Fatal(err)
	}
	if w != 640 || h != 480 {
		t.Errorf("source dims = %dx%d", w, h)
	}
	if !strings.HasPrefix(thumbKey, "thumbs/") || !strings.HasSuffix(thumbKey, ".jpg") {
		t.Errorf("thumb key = %s", thumbKey)
	}
	if _, _, err := s.Open(thumbKey); err != nil {
		t.Errorf("thumbnail not readable: %v", err)
	}

	dataURL, err := s.DataURL(saved.Key, "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(dataURL, "data:image/png;base64,") {
		t.Errorf("data url prefix = %.30s", dataURL)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	s := newStore(t)
	oldSaved, _ := s.Save(context.Background(), strings.NewReader("old"), KindVideo, "video/mp4", MB)
	newSaved, _ := s.Save(context.Background(), strings.NewReader("new"), KindVideo, "video/mp4", MB)

	past := time.Now().Add(-48 * time.Hour)
	oldPath, _ := s.Resolve(oldSaved.Key)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatal(err)
	}

	removed, err := s.PurgeOlderThan(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || removed[0] != oldSaved.Key {
		t.Errorf("removed = %v", removed)
	}
	if _, _, err := s.Open(newSaved.Key); err != nil {
		t.Errorf("recent file removed: %v", err)
	}
}

func TestKindOfAndContentType(t *testing.T) {
	if k, ok := KindOf("audio/webm; codecs=opus"); !ok || k != KindAudio {
		t.Errorf("KindOf(audio/webm;codecs) = %v %v", k, ok)
	}
	if _, ok := KindOf("application/x-msdownload"); ok {
		t.Error("executable accepted")
	}
	tests := map[string]string{
		"a.JPG":   "image/jpeg",
		"b.mov":   "video/quicktime",
		"c.m4a":   "audio/mp4",
		"d.thing": "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentTypeFor(name); got != want {
			t.Errorf("ContentTypeFor(%s) = %s, want %s", name, got, want)
		}
	}
}

func TestLimitsMax(t *testing.T) {
	if GeneralLimits.Max() != 100*MB {
		t.Errorf("max = %d", GeneralLimits.Max())
	}
}
