package config

import (
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// MediaKind selects which files the scanner collects and which backend plays them.
type MediaKind uint8

const (
	MediaKindUnset MediaKind = iota
	MediaKindServer
	MediaKindImage
	MediaKindVideo
)

var mediaKindNames = []string{
	MediaKindUnset:  "unset",
	MediaKindServer: "server",
	MediaKindImage:  "image",
	MediaKindVideo:  "video",
}

func (k MediaKind) String() string {
	if int(k) < len(mediaKindNames) {
		return mediaKindNames[k]
	}
	return fmt.Sprintf("MediaKind(%d)", uint8(k))
}

func ParseMediaKind(s string) (MediaKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return MediaKindUnset, nil
	}
	for i, n := range mediaKindNames {
		if n == name {
			return MediaKind(i), nil
		}
	}
	return MediaKindUnset, fmt.Errorf("%w: unknown media type %q", ErrInvalidConfig, s)
}

func (k MediaKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *MediaKind) UnmarshalText(text []byte) error {
	v, err := ParseMediaKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func (MediaKind) JSONSchema() *jsonschema.Schema {
	return enumSchema(mediaKindNames)
}

// VideoBackend selects how video items are played.
type VideoBackend uint8

const (
	VideoBackendUnset VideoBackend = iota
	VideoBackendNative
	// VideoBackendExternal drives a VLC process over its HTTP interface.
	VideoBackendExternal
)

var videoBackendNames = []string{
	VideoBackendUnset:    "unset",
	VideoBackendNative:   "native",
	VideoBackendExternal: "vlc",
}

func (b VideoBackend) String() string {
	if int(b) < len(videoBackendNames) {
		return videoBackendNames[b]
	}
	return fmt.Sprintf("VideoBackend(%d)", uint8(b))
}

func ParseVideoBackend(s string) (VideoBackend, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return VideoBackendUnset, nil
	}
	for i, n := range videoBackendNames {
		if n == name {
			return VideoBackend(i), nil
		}
	}
	return VideoBackendUnset, fmt.Errorf("%w: unknown video player %q", ErrInvalidConfig, s)
}

func (b VideoBackend) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *VideoBackend) UnmarshalText(text []byte) error {
	v, err := ParseVideoBackend(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

func (VideoBackend) JSONSchema() *jsonschema.Schema {
	return enumSchema(videoBackendNames)
}

func enumSchema(names []string) *jsonschema.Schema {
	enum := make([]any, 0, len(names))
	for _, n := range names {
		enum = append(enum, n)
	}
	return &jsonschema.Schema{Type: "string", Enum: enum}
}
