package playlist

import (
	"encoding/binary"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
)

func Append(buf []byte, p Playlist) []byte {
	buf = AppendHeader(buf, p.Header)
	return AppendBody(buf, p.Body)
}

func AppendHeader(buf []byte, h Header) []byte {
	buf = append(buf, magic...)
	buf = append(buf, h.Version.Major, h.Version.Minor, h.Version.Patch)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(h.Time))
	buf = append(buf, mediaKindBytes[h.MediaKind])

	if h.MediaKind != config.MediaKindVideo {
		return buf
	}

	buf = append(buf, videoBackendBytes[h.VideoBackend])
	return appendString(buf, h.VideoBackendPath.OrEmpty())
}

func AppendBody(buf []byte, b Body) []byte {
	for _, path := range b {
		buf = appendString(buf, path)
	}
	return buf
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(s)))
	return append(buf, s...)
}
