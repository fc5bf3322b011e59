package controller

import (
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend/external"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend/native"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend/picture"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/server"
)

// Factory builds the backend for a session.
type Factory interface {
	New(cfg *config.Config, repainter backend.Repainter) (backend.Backend, error)
}

type FactoryFunc func(cfg *config.Config, repainter backend.Repainter) (backend.Backend, error)

func (f FactoryFunc) New(cfg *config.Config, repainter backend.Repainter) (backend.Backend, error) {
	return f(cfg, repainter)
}

// DefaultFactory picks the backend by media kind and, for videos, by the
// configured video backend.
type DefaultFactory struct {
	FS         afero.Fs
	Logger     zerolog.Logger
	Metadata   *media.MetadataExtractor
	Thumbnails *media.ThumbnailService
}

func (f DefaultFactory) New(cfg *config.Config, repainter backend.Repainter) (backend.Backend, error) {
	switch cfg.MediaKind {
	case config.MediaKindImage:
		return picture.New(f.FS, f.Logger), nil

	case config.MediaKindVideo:
		switch cfg.VideoBackend {
		case config.VideoBackendNative:
			meta := f.Metadata
			if meta == nil {
				meta = media.NewMetadataExtractor(f.Logger)
			}
			opts := native.FFmpegOptions{
				Probe:  meta.Extract,
				Logger: f.Logger,
			}
			if path, err := exec.LookPath("ffplay"); err == nil {
				opts.AudioPath = path
			}
			return native.New(native.NewFFmpegFactory(opts), repainter, f.Logger), nil
		case config.VideoBackendExternal:
			player, ok := cfg.VideoPlayerPath().Get()
			if !ok {
				return nil, fmt.Errorf("%w: no video player path", config.ErrInvalidConfig)
			}
			return external.New(player, repainter, f.Logger), nil
		}

	case config.MediaKindServer:
		s := server.New(cfg, f.FS, f.Logger)
		if f.Thumbnails != nil {
			s.SetThumbnailService(f.Thumbnails)
		}
		if err := s.Start(); err != nil {
			return nil, err
		}
		return s, nil
	}

	return nil, fmt.Errorf("%w: no backend for %s/%s", config.ErrInvalidConfig, cfg.MediaKind, cfg.VideoBackend)
}
