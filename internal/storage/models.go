package storage

import (
	"time"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playback"
)

// Session is the last playback state of one source: a scanned root
// directory or a playlist file.
type Session struct {
	ID        string           `json:"id"`
	Source    string           `json:"source"`
	MediaKind config.MediaKind `json:"media_kind"`
	State     *playback.State  `json:"state"`
	UpdatedAt time.Time        `json:"updated_at"`
}
