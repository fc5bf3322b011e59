package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/api"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playback"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playlist"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/server"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a folder or playlist over HTTP without the player",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return report(err)
		}
		return report(serve(cfg))
	},
}

func serve(cfg *config.Config) error {
	logger := setupLogger(cfg.Logging, os.Stdout)
	logger.Info().
		Str("version", api.Version).
		Msg("starting abyssplayer server")

	fs := afero.NewOsFs()
	cfg.MediaKind = config.MediaKindServer

	var paths []string
	if path, ok := cfg.Playlist().Get(); ok {
		p, err := playlist.Load(fs, path)
		if err != nil {
			return err
		}
		if !p.Header.Version.Supported() {
			return fmt.Errorf("%w: %s", playlist.ErrUnsupportedVersion, p.Header.Version)
		}
		paths = p.Body
	} else {
		if cfg.RootPath == "" {
			return fmt.Errorf("%w: serve needs --root-path or --playlist-path", config.ErrInvalidConfig)
		}
		found, err := media.NewScanner(fs, logger).Scan(cfg.RootPath, cfg.MediaKind)
		if err != nil {
			return err
		}
		paths = found
	}

	factory, err := newFactory(fs, logger)
	if err != nil {
		return err
	}

	srv := server.New(cfg, fs, logger)
	srv.SetThumbnailService(factory.Thumbnails)
	if err := srv.Reload("", playback.New(paths, cfg)); err != nil {
		return err
	}
	logger.Info().
		Str("addr", srv.Addr()).
		Int("items", len(paths)).
		Msg("serving playlist")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- srv.Wait() }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-done:
		if err != nil {
			return err
		}
		return errors.New("server stopped unexpectedly")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	logger.Info().Msg("server stopped")
	return nil
}
