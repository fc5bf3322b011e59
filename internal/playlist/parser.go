package playlist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/samber/mo"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
)

var magic = []byte("FLP" + "APPL")

var mediaKindBytes = map[config.MediaKind]uint8{
	config.MediaKindUnset:  0,
	config.MediaKindImage:  1,
	config.MediaKindVideo:  2,
	config.MediaKindServer: 255,
}

var videoBackendBytes = map[config.VideoBackend]uint8{
	config.VideoBackendUnset:    0,
	config.VideoBackendExternal: 1,
	config.VideoBackendNative:   255,
}

func mediaKindFromByte(b uint8) (config.MediaKind, bool) {
	for k, v := range mediaKindBytes {
		if v == b {
			return k, true
		}
	}
	return config.MediaKindUnset, false
}

func videoBackendFromByte(b uint8) (config.VideoBackend, bool) {
	for k, v := range videoBackendBytes {
		if v == b {
			return k, true
		}
	}
	return config.VideoBackendUnset, false
}

// Parse decodes a whole playlist. The returned slice is whatever input
// follows the body, which is always empty for a well-formed file.
func Parse(data []byte) ([]byte, Playlist, error) {
	rest, header, err := ParseHeader(data)
	if err != nil {
		return data, Playlist{}, err
	}

	rest, body, err := ParseBody(rest)
	if err != nil {
		return data, Playlist{}, err
	}

	return rest, Playlist{Header: header, Body: body}, nil
}

func ParseHeader(data []byte) ([]byte, Header, error) {
	var h Header

	rest, ok := bytes.CutPrefix(data, magic)
	if !ok {
		return data, h, ErrBadMagic
	}

	if len(rest) < 3 {
		return data, h, ErrTruncated
	}
	h.Version = Version{Major: rest[0], Minor: rest[1], Patch: rest[2]}
	rest = rest[3:]
	if !h.Version.Supported() {
		return data, h, fmt.Errorf("%w: %s, want %d.x.x", ErrUnsupportedVersion, h.Version, Current.Major)
	}

	if len(rest) < 8 {
		return data, h, ErrTruncated
	}
	h.Time = int64(binary.LittleEndian.Uint64(rest))
	rest = rest[8:]

	if len(rest) < 1 {
		return data, h, ErrTruncated
	}
	kind, ok := mediaKindFromByte(rest[0])
	if !ok {
		return data, h, fmt.Errorf("%w: media kind byte %d", ErrInvalidMediaKind, rest[0])
	}
	h.MediaKind = kind
	rest = rest[1:]

	if kind != config.MediaKindVideo {
		return rest, h, nil
	}

	if len(rest) < 1 {
		return data, h, ErrTruncated
	}
	backend, ok := videoBackendFromByte(rest[0])
	if !ok {
		return data, h, fmt.Errorf("%w: video backend byte %d", ErrInvalidMediaKind, rest[0])
	}
	h.VideoBackend = backend
	rest = rest[1:]

	rest, path, err := parseString(rest)
	if err != nil {
		return data, h, err
	}
	if path != "" {
		h.VideoBackendPath = mo.Some(path)
	}

	return rest, h, nil
}

// ParseBody reads length-prefixed paths until the input is exhausted.
func ParseBody(data []byte) ([]byte, Body, error) {
	body := Body{}
	rest := data
	for len(rest) > 0 {
		var (
			path string
			err  error
		)
		rest, path, err = parseString(rest)
		if err != nil {
			return data, nil, err
		}
		body = append(body, path)
	}
	return rest, body, nil
}

func parseString(data []byte) ([]byte, string, error) {
	if len(data) < 8 {
		return data, "", ErrTruncated
	}
	n := binary.LittleEndian.Uint64(data)
	rest := data[8:]
	if uint64(len(rest)) < n {
		return data, "", fmt.Errorf("%w: want %d bytes, have %d", ErrTruncated, n, len(rest))
	}
	raw := rest[:n]
	if !utf8.Valid(raw) {
		return data, "", ErrInvalidUTF8
	}
	return rest[n:], string(raw), nil
}
