// Package server exposes the playlist over a local HTTP endpoint and acts as
// the server media backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/api"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playback"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/streaming"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg        config.ServerConfig
	assetsPath string
	fs         afero.Fs
	logger     zerolog.Logger
	httpServer *http.Server
	router     *chi.Mux
	playlist   *api.Playlist
	handler    *api.Handler
	workers    *semaphore.Weighted

	listener net.Listener
	group    *errgroup.Group
}

func New(cfg *config.Config, fs afero.Fs, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:        cfg.Server,
		assetsPath: cfg.AssetsPath,
		fs:         fs,
		logger:     logger.With().Str("backend", "server").Logger(),
		playlist:   api.NewPlaylist(nil),
		workers:    semaphore.NewWeighted(max(cfg.Server.WorkerLimit, 1)),
	}

	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Handler:     s.router,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(CORSMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	streamer := streaming.NewHandler(s.fs, s.logger)
	s.handler = api.NewHandler(s.playlist, streamer, s.logger)

	s.router.Get("/health", s.handler.Health)

	s.router.Route("/playlists", func(r chi.Router) {
		r.Get("/", s.handler.ListPlaylists)
		r.Get("/{id}", s.handler.GetPlaylist)
		r.With(WorkerLimit(s.workers)).Get("/{id}/stream", s.handler.StreamPlaylist)
		r.With(WorkerLimit(s.workers)).Get("/{id}/thumbnail", s.handler.GetThumbnail)
	})

	s.router.NotFound(StaticHandler(s.fs, s.assetsPath))
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) SetThumbnailService(service *media.ThumbnailService) {
	s.handler.SetThumbnailService(service)
}

// Start binds the first free port of the configured range and serves in
// the background.
func (s *Server) Start() error {
	if s.listener != nil {
		return nil
	}

	ln, err := backend.Listen(s.cfg.Host, s.cfg.PortFrom, s.cfg.PortTo)
	if err != nil {
		return err
	}
	s.listener = ln

	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Msg("starting server")

	g := new(errgroup.Group)
	g.Go(func() error {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("server stopped")
			return err
		}
		return nil
	})
	s.group = g
	return nil
}

// Addr is the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	s.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	if waitErr := s.group.Wait(); err == nil {
		err = waitErr
	}
	s.listener = nil
	return err
}

// Wait blocks until the HTTP server stops.
func (s *Server) Wait() error {
	if s.group == nil {
		return nil
	}
	return s.group.Wait()
}

func (s *Server) IsLoaded() bool {
	return s.listener != nil
}

// IsEnd is always false; the server never finishes an item.
func (s *Server) IsEnd() bool {
	return false
}

func (s *Server) Reload(_ string, state *playback.State) error {
	if err := s.Start(); err != nil {
		return err
	}
	s.Sync(state)
	return nil
}

func (s *Server) Sync(state *playback.State) {
	if state == nil {
		return
	}
	s.playlist.Replace(state.Paths)
}

func (s *Server) Present(surface backend.Surface, _ bool) {
	if s.listener == nil {
		surface.DrawStatus("Server is not running")
		return
	}
	surface.DrawStatus(fmt.Sprintf("Serving %d items at http://%s", s.playlist.Len(), s.Addr()))
}

func (s *Server) SupportedExtensions() []string {
	return media.Extensions(config.MediaKindServer)
}

func (s *Server) Close() error {
	return s.Shutdown(context.Background())
}
