// Package backendtest provides a recording Surface for backend tests.
package backendtest

import (
	"image"
	"sync"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
)

type Texture struct {
	Name string
	Img  *image.RGBA
}

func (t *Texture) Size() image.Point {
	return t.Img.Bounds().Size()
}

type Draw struct {
	Texture *Texture
	Rect    backend.Rect
}

// Surface records every call made on it.
type Surface struct {
	mu sync.Mutex

	Bounds   image.Point
	Pressed  map[backend.Key]bool
	Uploads  []*Texture
	Draws    []Draw
	Statuses []string
	Controls []backend.Controls
	Repaints int
}

func NewSurface(w, h int) *Surface {
	return &Surface{
		Bounds:  image.Pt(w, h),
		Pressed: map[backend.Key]bool{},
	}
}

func (s *Surface) Size() image.Point { return s.Bounds }

func (s *Surface) UploadTexture(name string, img *image.RGBA) backend.Texture {
	s.mu.Lock()
	defer s.mu.Unlock()
	tex := &Texture{Name: name, Img: img}
	s.Uploads = append(s.Uploads, tex)
	return tex
}

func (s *Surface) DrawTexture(tex backend.Texture, r backend.Rect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Draws = append(s.Draws, Draw{Texture: tex.(*Texture), Rect: r})
}

func (s *Surface) DrawStatus(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Statuses = append(s.Statuses, text)
}

func (s *Surface) DrawControls(c backend.Controls) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Controls = append(s.Controls, c)
}

func (s *Surface) KeyPressed(k backend.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Pressed[k]
}

func (s *Surface) RequestRepaint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Repaints++
}

func (s *Surface) RepaintCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Repaints
}

// Reset clears recorded calls and pressed keys.
func (s *Surface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pressed = map[backend.Key]bool{}
	s.Uploads = nil
	s.Draws = nil
	s.Statuses = nil
	s.Controls = nil
}
