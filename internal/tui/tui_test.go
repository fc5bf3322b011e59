package tui

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/controller"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playback"
)

type fakeBackend struct {
	reloads []string
	pressed []backend.Key
	closed  bool
	tex     backend.Texture
	full    bool
}

func (f *fakeBackend) IsLoaded() bool { return len(f.reloads) > 0 }
func (f *fakeBackend) IsEnd() bool    { return false }

func (f *fakeBackend) Reload(path string, _ *playback.State) error {
	f.reloads = append(f.reloads, path)
	f.tex = nil
	return nil
}

func (f *fakeBackend) Sync(*playback.State) {}

func (f *fakeBackend) Present(s backend.Surface, canInput bool) {
	if f.tex == nil {
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		for x := range 2 {
			for y := range 2 {
				img.SetRGBA(x, y, color.RGBA{R: 0xff, A: 0xff})
			}
		}
		f.tex = s.UploadTexture("item", img)
	}
	s.DrawTexture(f.tex, backend.FitRect(f.tex.Size(), s.Size()))
	s.DrawControls(backend.Controls{Playing: true, Position: 65 * time.Second, Duration: 2 * time.Minute, Volume: 0.5, Fullscreen: f.full})
	if !canInput {
		return
	}
	for _, k := range []backend.Key{backend.KeySpace, backend.KeyForward, backend.KeyVolumeUp} {
		if s.KeyPressed(k) {
			f.pressed = append(f.pressed, k)
		}
	}
}

func (f *fakeBackend) SupportedExtensions() []string { return nil }

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel(t *testing.T) {
	Convey("Given a playing picture session", t, func() {
		fs := afero.NewMemMapFs()
		for _, name := range []string{"a.png", "b.png", "c.png"} {
			So(afero.WriteFile(fs, "/pics/"+name, []byte("x"), 0o644), ShouldBeNil)
		}

		fake := &fakeBackend{}
		factory := controller.FactoryFunc(func(*config.Config, backend.Repainter) (backend.Backend, error) {
			return fake, nil
		})
		rep := &Repainter{}
		ctrl := controller.New(fs, factory, zerolog.Nop(), controller.WithRepainter(rep))

		cfg := config.Default()
		cfg.MediaKind = config.MediaKindImage
		cfg.RootPath = "/pics"
		cfg.AutoInterval = 1
		So(ctrl.Commit(cfg), ShouldBeNil)
		defer ctrl.Close()

		m := New(ctrl, Options{SavePath: "/pics/saved", Repainter: rep})
		m.Update(tea.WindowSizeMsg{Width: 20, Height: 10})

		_, cmd := m.Update(tickMsg{})
		So(cmd, ShouldNotBeNil)

		Convey("The view shows the item, the flags and the drawn frame", func() {
			view := m.View()
			So(view, ShouldContainSubstring, "a.png")
			So(view, ShouldContainSubstring, "1/3")
			So(view, ShouldContainSubstring, "repeat")
			So(view, ShouldContainSubstring, "01:05 / 02:00")
			So(view, ShouldContainSubstring, "vol 50%")
			So(view, ShouldContainSubstring, "▀")
			So(m.frame.Size(), ShouldResemble, image.Pt(20, 12))
			So(view, ShouldNotContainSubstring, "fullscreen")
		})

		Convey("A fullscreen player is marked in the status line", func() {
			fake.full = true
			m.Update(tickMsg{})
			So(m.View(), ShouldContainSubstring, "fullscreen")
		})

		Convey("Arrow keys move through the list", func() {
			m.Update(tea.KeyMsg{Type: tea.KeyRight})
			m.Update(tickMsg{})
			So(fake.reloads[len(fake.reloads)-1], ShouldEqual, "/pics/b.png")

			m.Update(tea.KeyMsg{Type: tea.KeyLeft})
			m.Update(tickMsg{})
			So(fake.reloads[len(fake.reloads)-1], ShouldEqual, "/pics/a.png")
		})

		Convey("Number keys toggle the flags", func() {
			m.Update(runes("1"))
			m.Update(runes("3"))
			m.Update(tickMsg{})
			So(ctrl.State().Repeat, ShouldBeTrue)
			So(ctrl.State().Loop, ShouldBeTrue)
			So(ctrl.State().Auto, ShouldBeFalse)
		})

		Convey("Playback keys reach the backend for one frame only", func() {
			m.Update(tea.KeyMsg{Type: tea.KeySpace})
			m.Update(runes("f"))
			m.Update(tickMsg{})
			So(fake.pressed, ShouldResemble, []backend.Key{backend.KeySpace, backend.KeyForward})

			m.Update(tickMsg{})
			So(fake.pressed, ShouldHaveLength, 2)
		})

		Convey("Interval keys stay within bounds and report errors", func() {
			m.Update(runes("+"))
			m.Update(tickMsg{})
			So(ctrl.State().AutoInterval, ShouldEqual, 2)

			m.Update(runes("-"))
			m.Update(tickMsg{})
			So(ctrl.State().AutoInterval, ShouldEqual, 1)
			So(m.View(), ShouldNotContainSubstring, "error")

			m.Update(runes("-"))
			m.Update(tickMsg{})
			So(ctrl.State().AutoInterval, ShouldEqual, 1)
			So(m.View(), ShouldContainSubstring, "error")
		})

		Convey("Save writes the playlist next to the pictures", func() {
			m.Update(runes("s"))
			m.Update(tickMsg{})
			ok, err := afero.Exists(fs, "/pics/saved.fappl")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("Load reads back the playlist saved earlier", func() {
			m.Update(runes("s"))
			m.Update(tickMsg{})
			m.Update(tea.KeyMsg{Type: tea.KeyRight})
			m.Update(tickMsg{})
			So(ctrl.State().Index, ShouldEqual, 1)

			m.Update(runes("o"))
			m.Update(tickMsg{})
			So(ctrl.State().Index, ShouldEqual, 0)
			So(ctrl.State().Count(), ShouldEqual, 3)
			So(fake.reloads[len(fake.reloads)-1], ShouldEqual, "/pics/a.png")
			So(m.View(), ShouldNotContainSubstring, "error")
		})

		Convey("Load without a saved playlist does nothing", func() {
			m.savePath = ""
			reloads := len(fake.reloads)
			m.Update(runes("o"))
			m.Update(tickMsg{})
			So(fake.reloads, ShouldHaveLength, reloads)
			So(m.View(), ShouldNotContainSubstring, "error")
		})

		Convey("Quit ends the session and the program", func() {
			m.Update(runes("q"))
			_, cmd := m.Update(tickMsg{})
			So(cmd(), ShouldHaveSameTypeAs, tea.QuitMsg{})
			So(m.Result(), ShouldEqual, ResultQuit)
			So(m.Err(), ShouldBeNil)
			So(ctrl.Mode(), ShouldEqual, controller.ModeConfigure)
			So(fake.closed, ShouldBeTrue)
			So(m.View(), ShouldEqual, "")
		})

		Convey("Home asks to configure again", func() {
			m.Update(runes("h"))
			_, cmd := m.Update(tickMsg{})
			So(cmd(), ShouldHaveSameTypeAs, tea.QuitMsg{})
			So(m.Result(), ShouldEqual, ResultHome)
		})
	})
}

func TestCanvas(t *testing.T) {
	Convey("Given a two by two texture", t, func() {
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		img.SetRGBA(0, 0, color.RGBA{R: 0xff, A: 0xff})
		img.SetRGBA(1, 1, color.RGBA{G: 0x80, B: 0x80, A: 0x80})
		tex := &texture{name: "t", img: img}

		Convey("Pixels sample the nearest texel inside the rect", func() {
			draws := []draw{{tex: tex, rect: backend.Rect{X: 2, Y: 0, W: 4, H: 4}}}
			So(sample(draws, 2, 0), ShouldResemble, color.RGBA{R: 0xff, A: 0xff})
			So(sample(draws, 5, 3), ShouldResemble, color.RGBA{G: 0x80, B: 0x80, A: 0xff})
			So(sample(draws, 0, 0), ShouldResemble, color.RGBA{A: 0xff})
			So(sample(draws, 6, 0), ShouldResemble, color.RGBA{A: 0xff})
		})

		Convey("Rendering packs two pixel rows per line and is cached", func() {
			c := newCanvas()
			draws := []draw{{tex: tex, rect: backend.Rect{W: 4, H: 4}}}
			out := c.render(image.Pt(4, 4), draws)
			lines := strings.Split(out, "\n")
			So(lines, ShouldHaveLength, 2)
			So(strings.Count(lines[0], "▀"), ShouldEqual, 4)
			So(c.render(image.Pt(4, 4), draws), ShouldEqual, out)
			So(c.key, ShouldContainSubstring, "4x4")
		})

		Convey("Nothing drawn renders nothing", func() {
			So(newCanvas().render(image.Pt(4, 4), nil), ShouldEqual, "")
			So(newCanvas().render(image.Pt(0, 0), []draw{{tex: tex}}), ShouldEqual, "")
		})
	})

	Convey("Clock formats minutes and hours", t, func() {
		So(clock(0), ShouldEqual, "00:00")
		So(clock(65*time.Second), ShouldEqual, "01:05")
		So(clock(time.Hour+2*time.Minute+3*time.Second), ShouldEqual, "1:02:03")
	})
}

type scriptedPrompter struct {
	answers []string
	asked   []string
	err     error
}

func (p *scriptedPrompter) next(message string) (string, error) {
	p.asked = append(p.asked, message)
	if p.err != nil {
		return "", p.err
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer, nil
}

func (p *scriptedPrompter) Select(message string, _ []string) (string, error) {
	return p.next(message)
}

func (p *scriptedPrompter) Input(message, _ string) (string, error) {
	return p.next(message)
}

func TestPrompt(t *testing.T) {
	Convey("Prompting fills in missing fields", t, func() {
		cfg := config.Default()

		Convey("A bare config asks for everything a vlc session needs", func() {
			p := &scriptedPrompter{answers: []string{"video", "/movies", "vlc", "/usr/bin/vlc"}}
			So(Prompt(cfg, p), ShouldBeNil)
			So(p.asked, ShouldHaveLength, 4)
			So(cfg.MediaKind, ShouldEqual, config.MediaKindVideo)
			So(cfg.RootPath, ShouldEqual, "/movies")
			So(cfg.VideoBackend, ShouldEqual, config.VideoBackendExternal)
			So(cfg.VideoBackendPath, ShouldEqual, "/usr/bin/vlc")
			So(cfg.CanPlay(), ShouldBeTrue)
		})

		Convey("Images only need a root", func() {
			cfg.MediaKind = config.MediaKindImage
			p := &scriptedPrompter{answers: []string{"/pics"}}
			So(Prompt(cfg, p), ShouldBeNil)
			So(p.asked, ShouldResemble, []string{"Root directory"})
		})

		Convey("A playlist needs nothing", func() {
			cfg.PlaylistPath = "/lists/a.fappl"
			p := &scriptedPrompter{}
			So(Prompt(cfg, p), ShouldBeNil)
			So(p.asked, ShouldBeEmpty)
		})

		Convey("An aborted prompt stops early", func() {
			p := &scriptedPrompter{err: ErrAborted}
			So(errors.Is(Prompt(cfg, p), ErrAborted), ShouldBeTrue)
			So(p.asked, ShouldHaveLength, 1)
			So(cfg.MediaKind, ShouldEqual, config.MediaKindUnset)
		})
	})
}
