package tui

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
)

// Pixels are half-block cells: one column wide, half a row tall.
const pixelsPerRow = 2

type texture struct {
	name string
	img  *image.RGBA
}

func (t *texture) Size() image.Point {
	return t.img.Bounds().Size()
}

type draw struct {
	tex  *texture
	rect backend.Rect
}

// frame is the Surface handed to the backend for one tick. It records what
// the backend drew and serves the keys pressed since the previous tick.
type frame struct {
	size     image.Point
	pressed  map[backend.Key]bool
	draws    []draw
	status   string
	controls *backend.Controls

	repainter *Repainter
}

func newFrame(r *Repainter) *frame {
	return &frame{
		pressed:   map[backend.Key]bool{},
		repainter: r,
	}
}

// begin clears the previous tick's drawing. Pressed keys survive until end.
func (f *frame) begin(size image.Point) {
	f.size = size
	f.draws = f.draws[:0]
	f.status = ""
	f.controls = nil
}

func (f *frame) end() {
	clear(f.pressed)
}

func (f *frame) press(k backend.Key) {
	f.pressed[k] = true
}

func (f *frame) Size() image.Point { return f.size }

func (f *frame) UploadTexture(name string, img *image.RGBA) backend.Texture {
	return &texture{name: name, img: img}
}

func (f *frame) DrawTexture(tex backend.Texture, r backend.Rect) {
	t, ok := tex.(*texture)
	if !ok {
		return
	}
	f.draws = append(f.draws, draw{tex: t, rect: r})
}

func (f *frame) DrawStatus(text string) {
	f.status = text
}

func (f *frame) DrawControls(c backend.Controls) {
	f.controls = &c
}

func (f *frame) KeyPressed(k backend.Key) bool {
	return f.pressed[k]
}

func (f *frame) RequestRepaint() {
	f.repainter.RequestRepaint()
}

type repaintMsg struct{}

// Repainter wakes the program from any goroutine. Requests made while one
// is already pending are merged. Hand it to the controller before Run.
type Repainter struct {
	program atomic.Pointer[tea.Program]
	pending atomic.Bool
}

func (r *Repainter) attach(p *tea.Program) {
	r.program.Store(p)
}

func (r *Repainter) RequestRepaint() {
	p := r.program.Load()
	if p == nil || !r.pending.CompareAndSwap(false, true) {
		return
	}
	go p.Send(repaintMsg{})
}

func (r *Repainter) done() {
	r.pending.Store(false)
}

// canvas renders the recorded draws as half-block rows. The last rendering
// is kept and reused while the draws and size are unchanged.
type canvas struct {
	key    string
	output string
	styles map[[2]color.RGBA]lipgloss.Style
}

func newCanvas() *canvas {
	return &canvas{styles: map[[2]color.RGBA]lipgloss.Style{}}
}

func (c *canvas) render(size image.Point, draws []draw) string {
	if size.X <= 0 || size.Y <= 0 || len(draws) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d", size.X, size.Y)
	for _, d := range draws {
		fmt.Fprintf(&sb, "|%s %p %v", d.tex.name, d.tex.img, d.rect)
	}
	if sb.String() == c.key {
		return c.output
	}
	c.key = sb.String()

	rows := make([]string, 0, size.Y/pixelsPerRow)
	var line strings.Builder
	for y := 0; y+1 < size.Y; y += pixelsPerRow {
		line.Reset()
		for x := 0; x < size.X; x++ {
			top := sample(draws, x, y)
			bottom := sample(draws, x, y+1)
			line.WriteString(c.style(top, bottom).Render("▀"))
		}
		rows = append(rows, line.String())
	}
	c.output = strings.Join(rows, "\n")
	return c.output
}

func (c *canvas) style(top, bottom color.RGBA) lipgloss.Style {
	pair := [2]color.RGBA{top, bottom}
	if s, ok := c.styles[pair]; ok {
		return s
	}
	s := colored(hex(top), hex(bottom))
	c.styles[pair] = s
	return s
}

// sample picks the nearest texel of the topmost draw covering (x, y),
// blended over black.
func sample(draws []draw, x, y int) color.RGBA {
	px, py := float64(x)+0.5, float64(y)+0.5
	for i := len(draws) - 1; i >= 0; i-- {
		d := draws[i]
		r := d.rect
		if r.W <= 0 || r.H <= 0 || px < r.X || py < r.Y || px >= r.X+r.W || py >= r.Y+r.H {
			continue
		}
		b := d.tex.img.Bounds()
		tx := b.Min.X + int((px-r.X)*float64(b.Dx())/r.W)
		ty := b.Min.Y + int((py-r.Y)*float64(b.Dy())/r.H)
		c := d.tex.img.RGBAAt(min(tx, b.Max.X-1), min(ty, b.Max.Y-1))
		// premultiplied: over black the channels stay as they are
		c.A = 0xff
		return c
	}
	return color.RGBA{A: 0xff}
}

func hex(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
