package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
)

var ErrUnknownMIME = errors.New("unknown mime type")

// Server omits mkv and mov.
var extensionsByKind = map[config.MediaKind][]string{
	config.MediaKindImage:  {"bmp", "gif", "jpeg", "jpg", "png"},
	config.MediaKindVideo:  {"avi", "mkv", "mov", "mp4", "webm"},
	config.MediaKindServer: {"bmp", "gif", "jpeg", "jpg", "png", "avi", "mp4", "webm", "mp3", "wav"},
}

var contentTypes = map[string]string{
	"bmp":  "image/bmp",
	"gif":  "image/gif",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"avi":  "video/x-msvideo",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
}

// Extensions returns the lowercase extensions, without dots, collected for kind.
func Extensions(kind config.MediaKind) []string {
	return slices.Clone(extensionsByKind[kind])
}

func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

func IsSupported(kind config.MediaKind, path string) bool {
	return slices.Contains(extensionsByKind[kind], Extension(path))
}

// ContentType resolves the MIME type served for path.
func ContentType(path string) (string, error) {
	ext := Extension(path)
	if ct, ok := contentTypes[ext]; ok {
		return ct, nil
	}
	return "", fmt.Errorf("%w: extension %q", ErrUnknownMIME, ext)
}

func IsImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

func IsStreamable(contentType string) bool {
	return strings.HasPrefix(contentType, "video/") || strings.HasPrefix(contentType, "audio/")
}
