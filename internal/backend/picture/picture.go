// Package picture shows still images scaled to fit the host surface.
package picture

import (
	"image"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/cache"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playback"
)

const (
	cacheEntries = 16
	cacheBytes   = 512 << 20
	textureName  = "picture"
)

type Backend struct {
	fs     afero.Fs
	logger zerolog.Logger
	cache  *cache.SizedLRU[string, *image.RGBA]

	path    string
	img     *image.RGBA
	texture backend.Texture
}

func New(fs afero.Fs, logger zerolog.Logger) *Backend {
	return &Backend{
		fs:     fs,
		logger: logger.With().Str("backend", "picture").Logger(),
		cache: cache.NewSizedLRU[string, *image.RGBA](cacheEntries, cacheBytes, func(img *image.RGBA) int64 {
			return int64(len(img.Pix))
		}),
	}
}

func (b *Backend) IsLoaded() bool {
	return b.img != nil
}

// IsEnd is true as soon as the picture is on screen.
func (b *Backend) IsEnd() bool {
	return b.IsLoaded()
}

func (b *Backend) Reload(path string, _ *playback.State) error {
	if path == b.path && b.img != nil {
		return nil
	}

	img, ok := b.cache.Get(path)
	if !ok {
		decoded, err := media.DecodeImage(b.fs, path)
		if err != nil {
			b.path, b.img, b.texture = "", nil, nil
			return err
		}
		img = decoded
		b.cache.Set(path, img)
		b.logger.Debug().
			Str("path", path).
			Str("size", humanize.Bytes(uint64(len(img.Pix)))).
			Msg("image decoded")
	}

	b.path = path
	b.img = img
	b.texture = nil
	return nil
}

func (b *Backend) Sync(*playback.State) {}

func (b *Backend) Present(s backend.Surface, _ bool) {
	if b.img == nil {
		return
	}
	if b.texture == nil {
		b.texture = s.UploadTexture(textureName, b.img)
	}
	s.DrawTexture(b.texture, backend.FitRect(b.texture.Size(), s.Size()))
}

func (b *Backend) SupportedExtensions() []string {
	return media.Extensions(config.MediaKindImage)
}

func (b *Backend) Close() error {
	b.cache.Clear()
	b.path, b.img, b.texture = "", nil, nil
	return nil
}
