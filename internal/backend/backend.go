// Package backend defines the contract every media backend fulfils and the
// host surface they render onto.
package backend

import (
	"errors"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playback"
)

var (
	// ErrUnavailable means the backend could not acquire its resources:
	// a player that would not spawn or a port that would not bind.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrTransientRemote means a remote player is not answering yet.
	ErrTransientRemote = errors.New("remote player not responding")
	ErrDecode          = media.ErrDecode
)

type Backend interface {
	IsLoaded() bool
	IsEnd() bool
	// Reload switches to path, the current item of state.
	Reload(path string, state *playback.State) error
	// Sync pushes a changed playlist to backends that serve the whole list.
	Sync(state *playback.State)
	Present(s Surface, canInput bool)
	SupportedExtensions() []string
	Close() error
}

// Repainter asks the host for a redraw from any goroutine.
type Repainter interface {
	RequestRepaint()
}
