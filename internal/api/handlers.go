package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/streaming"
)

const Version = "0.4.0"

type Handler struct {
	playlist         *Playlist
	logger           zerolog.Logger
	streamer         *streaming.Handler
	thumbnailService *media.ThumbnailService
}

func NewHandler(playlist *Playlist, streamer *streaming.Handler, logger zerolog.Logger) *Handler {
	return &Handler{
		playlist: playlist,
		logger:   logger,
		streamer: streamer,
	}
}

func (h *Handler) SetThumbnailService(service *media.ThumbnailService) {
	h.thumbnailService = service
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
		Items:   h.playlist.Len(),
	})
}

func (h *Handler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	query, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	data, count := h.playlist.List(query)
	writeJSON(w, http.StatusOK, ListResponse{
		Data:  data,
		Count: count,
	})
}

func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	item, ok := h.resolve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) StreamPlaylist(w http.ResponseWriter, r *http.Request) {
	item, ok := h.resolve(w, r)
	if !ok {
		return
	}
	h.streamer.ServeFile(w, r, item.Path)
}

func (h *Handler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	if h.thumbnailService == nil {
		writeError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Thumbnail service not available")
		return
	}

	item, ok := h.resolve(w, r)
	if !ok {
		return
	}

	data, err := h.thumbnailService.Thumbnail(r.Context(), item.Path)
	if err != nil {
		h.logger.Debug().Err(err).Int("id", item.ID).Msg("failed to get thumbnail")
		writeError(w, http.StatusNotFound, "THUMBNAIL_NOT_FOUND", "Thumbnail not available")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (Item, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Playlist item not found")
		return Item{}, false
	}

	item, err := h.playlist.Get(id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Playlist item not found")
		return Item{}, false
	}
	if err != nil {
		h.logger.Error().Err(err).Int("id", id).Msg("failed to resolve item")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve item")
		return Item{}, false
	}
	return item, true
}

func parseListQuery(r *http.Request) (ListQuery, error) {
	values := r.URL.Query()
	q := ListQuery{
		Length: -1,
		Search: values.Get("search"),
	}

	if v := values.Get("offset"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ListQuery{}, errors.New("offset must be an unsigned integer")
		}
		q.Offset = int(n)
	}
	if v := values.Get("length"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ListQuery{}, errors.New("length must be an unsigned integer")
		}
		q.Length = int(n)
	}
	for _, f := range strings.Split(values.Get("filter"), ",") {
		if f = strings.TrimSpace(f); f != "" {
			q.Filter = append(q.Filter, f)
		}
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
