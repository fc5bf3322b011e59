// Package playlist reads and writes the binary .fappl playlist container.
package playlist

import (
	"bufio"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/spf13/afero"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
)

// Extension is the file extension used for saved playlists.
const Extension = "fappl"

type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
}

// Current is the version written by this build.
var Current = Version{Major: 0, Minor: 4, Patch: 0}

func (v Version) Supported() bool {
	return v.Major == Current.Major
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

type Header struct {
	Version   Version
	Time      int64
	MediaKind config.MediaKind
	// VideoBackend and VideoBackendPath are only encoded for video playlists.
	VideoBackend     config.VideoBackend
	VideoBackendPath mo.Option[string]
}

type Body []string

type Playlist struct {
	Header Header
	Body   Body
}

// NewHeader describes a playlist created now from cfg.
func NewHeader(cfg *config.Config, now time.Time) Header {
	h := Header{
		Version:   Current,
		Time:      now.UTC().Unix(),
		MediaKind: cfg.MediaKind,
	}
	if cfg.MediaKind == config.MediaKindVideo {
		h.VideoBackend = cfg.VideoBackend
		if cfg.VideoBackend != config.VideoBackendNative {
			h.VideoBackendPath = cfg.VideoPlayerPath()
		}
	}
	return h
}

func (h Header) Timestamp() time.Time {
	return time.Unix(h.Time, 0).UTC()
}

// Apply copies the playback source described by the header onto cfg.
func (h Header) Apply(cfg *config.Config) {
	cfg.MediaKind = h.MediaKind
	if h.MediaKind != config.MediaKindVideo {
		return
	}
	cfg.VideoBackend = h.VideoBackend
	cfg.VideoBackendPath = h.VideoBackendPath.OrEmpty()
}

// EnsureExtension appends .fappl when path has no extension.
func EnsureExtension(path string) string {
	if filepath.Ext(path) == "" {
		return path + "." + Extension
	}
	return path
}

func HasExtension(path string) bool {
	return strings.EqualFold(strings.TrimPrefix(filepath.Ext(path), "."), Extension)
}

func Load(fs afero.Fs, path string) (Playlist, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Playlist{}, fmt.Errorf("read playlist %s: %w", path, err)
	}

	_, p, err := Parse(data)
	if err != nil {
		return Playlist{}, fmt.Errorf("parse playlist %s: %w", path, err)
	}

	return p, nil
}

func Save(fs afero.Fs, path string, p Playlist) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create playlist %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.Write(Append(nil, p)); err != nil {
		return fmt.Errorf("write playlist %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write playlist %s: %w", path, err)
	}

	return f.Close()
}
