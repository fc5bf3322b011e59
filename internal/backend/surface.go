package backend

import (
	"image"
	"time"
)

type Key int

const (
	KeySpace Key = iota
	KeyForward
	KeyBackward
	KeyVolumeUp
	KeyVolumeDown
	KeyFullscreen
)

// Texture is a host-owned handle to uploaded pixels.
type Texture interface {
	Size() image.Point
}

type Rect struct {
	X, Y, W, H float64
}

type Controls struct {
	Playing    bool
	Position   time.Duration
	Duration   time.Duration
	Volume     float64
	Fullscreen bool
	Status     string
}

// Surface is what the host hands to Present each frame.
type Surface interface {
	Repainter
	Size() image.Point
	UploadTexture(name string, img *image.RGBA) Texture
	DrawTexture(tex Texture, r Rect)
	DrawStatus(text string)
	DrawControls(c Controls)
	KeyPressed(k Key) bool
}
