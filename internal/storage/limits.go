package storage

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

func (k Kind) dir() string {
	switch k {
	case KindImage:
		return "images"
	case KindVideo:
		return "video"
	default:
		return "audio"
	}
}

const MB = 1 << 20

var ErrTooLarge = errors.New("file too large")

// SizeError reports an upload over its ceiling. It matches ErrTooLarge.
type SizeError struct {
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("File size exceeds the %dMB limit", e.Limit/MB)
}

func (e *SizeError) Is(target error) bool {
	return target == ErrTooLarge
}

// Limits caps upload size per kind. A kind missing from the map is not
// accepted by the route.
type Limits map[Kind]int64

var (
	GeneralLimits = Limits{KindImage: 8 * MB, KindAudio: 32 * MB, KindVideo: 100 * MB}
	ImageLimits   = Limits{KindImage: 8 * MB}
	AudioLimits   = Limits{KindAudio: 50 * MB}
	VideoLimits   = Limits{KindVideo: 256 * MB}
)

// Max returns the largest ceiling in l.
func (l Limits) Max() int64 {
	var max int64
	for _, v := range l {
		if v > max {
			max = v
		}
	}
	return max
}

var allowedTypes = map[string]Kind{
	"image/jpeg":       KindImage,
	"image/png":        KindImage,
	"image/webp":       KindImage,
	"image/gif":        KindImage,
	"audio/mpeg":       KindAudio,
	"audio/mp3":        KindAudio,
	"audio/wav":        KindAudio,
	"audio/x-wav":      KindAudio,
	"audio/wave":       KindAudio,
	"audio/ogg":        KindAudio,
	"audio/webm":       KindAudio,
	"audio/aac":        KindAudio,
	"audio/mp4":        KindAudio,
	"audio/x-m4a":      KindAudio,
	"audio/flac":       KindAudio,
	"video/mp4":        KindVideo,
	"video/webm":       KindVideo,
	"video/quicktime":  KindVideo,
	"video/x-msvideo":  KindVideo,
	"video/x-matroska": KindVideo,
}

// KindOf classifies a MIME type. Parameters such as "; codecs=..." are
// ignored. ok is false for types no upload route accepts.
func KindOf(mimeType string) (Kind, bool) {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	k, ok := allowedTypes[mt]
	return k, ok
}

var extByType = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/webp":       ".webp",
	"image/gif":        ".gif",
	"audio/mpeg":       ".mp3",
	"audio/mp3":        ".mp3",
	"audio/wav":        ".wav",
	"audio/x-wav":      ".wav",
	"audio/wave":       ".wav",
	"audio/ogg":        ".ogg",
	"audio/webm":       ".weba",
	"audio/aac":        ".aac",
	"audio/mp4":        ".m4a",
	"audio/x-m4a":      ".m4a",
	"audio/flac":       ".flac",
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/quicktime":  ".mov",
	"video/x-msvideo":  ".avi",
	"video/x-matroska": ".mkv",
}

func ExtensionFor(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = mimeType
	}
	if ext, ok := extByType[mt]; ok {
		return ext
	}
	return ".bin"
}

var typeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".weba": "audio/webm",
	".aac":  "audio/aac",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
}

// ContentTypeFor infers the Content-Type to serve a stored file with.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := typeByExt[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
