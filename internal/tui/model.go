package tui

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"
	"github.com/samber/lo"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/controller"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playlist"
)

const (
	frameInterval = 16 * time.Millisecond
	// title, flags, controls, help
	chromeRows    = 4
	maxErrorLines = 3
)

type tickMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

// Result tells the caller how the program ended.
type Result int

const (
	// ResultQuit means the user asked to leave the application.
	ResultQuit Result = iota
	// ResultHome means the session ended and the user wants to configure
	// another one.
	ResultHome
)

// Model hosts one playback session. It owns the frame loop: each tick runs
// the controller against a fresh frame and renders what the backend drew.
type Model struct {
	ctrl     *controller.Controller
	keymap   *keymap
	help     help.Model
	frame    *frame
	canvas   *canvas
	repaint  *Repainter
	savePath string
	// lastSaved is the file the save key last wrote.
	lastSaved string

	width, height int

	errs   []string
	err    error
	result Result
}

func New(ctrl *controller.Controller, opts Options) *Model {
	r := opts.Repainter
	if r == nil {
		r = &Repainter{}
	}
	return &Model{
		ctrl:     ctrl,
		keymap:   newKeymap(),
		help:     help.New(),
		frame:    newFrame(r),
		canvas:   newCanvas(),
		repaint:  r,
		savePath: opts.SavePath,
		result:   ResultQuit,
	}
}

// Err is the failure that ended the program, if any.
func (m *Model) Err() error {
	return m.err
}

func (m *Model) Result() Result {
	return m.result
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		m.handleKey(msg)
		return m, nil
	case repaintMsg:
		m.repaint.done()
		return m, m.step()
	case tickMsg:
		if cmd := m.step(); cmd != nil {
			return m, cmd
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) {
	k := m.keymap
	switch {
	case key.Matches(msg, k.quit):
		m.result = ResultQuit
		m.ctrl.Dispatch(controller.Home())
	case key.Matches(msg, k.home):
		m.result = ResultHome
		m.ctrl.Dispatch(controller.Home())
	case key.Matches(msg, k.next):
		m.ctrl.Dispatch(controller.Next())
	case key.Matches(msg, k.prev):
		m.ctrl.Dispatch(controller.Prev())
	case key.Matches(msg, k.random):
		m.ctrl.Dispatch(controller.RandomNext())
	case key.Matches(msg, k.repeat):
		m.ctrl.Dispatch(controller.ToggleRepeat())
	case key.Matches(msg, k.auto):
		m.ctrl.Dispatch(controller.ToggleAuto())
	case key.Matches(msg, k.loop):
		m.ctrl.Dispatch(controller.ToggleLoop())
	case key.Matches(msg, k.shuffle):
		m.ctrl.Dispatch(controller.ToggleRandom())
	case key.Matches(msg, k.slower):
		if st := m.ctrl.State(); st != nil {
			m.ctrl.Dispatch(controller.SetInterval(st.AutoInterval + 1))
		}
	case key.Matches(msg, k.faster):
		if st := m.ctrl.State(); st != nil && st.AutoInterval > 0 {
			m.ctrl.Dispatch(controller.SetInterval(st.AutoInterval - 1))
		}
	case key.Matches(msg, k.save):
		target := m.saveTarget()
		m.lastSaved = playlist.EnsureExtension(target)
		m.ctrl.Dispatch(controller.Save(target))
	case key.Matches(msg, k.load):
		if target := m.loadTarget(); target != "" {
			m.ctrl.Dispatch(controller.Load(target))
		}
	case key.Matches(msg, k.showHelp):
		m.help.ShowAll = !m.help.ShowAll
	default:
		if bk, ok := k.backendKey(msg); ok {
			m.frame.press(bk)
		}
	}
}

// step runs one controller frame. It returns tea.Quit once the session is
// over.
func (m *Model) step() tea.Cmd {
	m.frame.begin(m.previewSize())
	err := m.ctrl.Tick(m.frame)
	m.frame.end()

	m.errs = append(m.errs, m.ctrl.Errors()...)
	if len(m.errs) > maxErrorLines {
		m.errs = m.errs[len(m.errs)-maxErrorLines:]
	}

	if err != nil {
		m.err = err
		return tea.Quit
	}
	if m.ctrl.Mode() != controller.ModePlay {
		return tea.Quit
	}
	return nil
}

// previewSize is the drawable area in pixels.
func (m *Model) previewSize() image.Point {
	rows := max(m.height-chromeRows-len(m.errs), 0)
	return image.Pt(max(m.width, 0), rows*pixelsPerRow)
}

func (m *Model) saveTarget() string {
	if m.savePath != "" {
		return m.savePath
	}
	name := "abyss-" + time.Now().Format("20060102-150405")
	if cfg := m.ctrl.Config(); cfg != nil && cfg.RootPath != "" {
		return filepath.Join(cfg.RootPath, name)
	}
	return name
}

// loadTarget is the playlist the save key last wrote, else the save path,
// else the playlist the session started from.
func (m *Model) loadTarget() string {
	switch {
	case m.lastSaved != "":
		return m.lastSaved
	case m.savePath != "":
		return playlist.EnsureExtension(m.savePath)
	}
	if cfg := m.ctrl.Config(); cfg != nil {
		return cfg.PlaylistPath
	}
	return ""
}

func (m *Model) View() string {
	st := m.ctrl.State()
	if st == nil {
		return ""
	}

	var lines []string

	title := "(empty)"
	if path, ok := st.CurrentPath(); ok {
		title = filepath.Base(path)
	}
	lines = append(lines, titleStyle.Render(title)+" "+faint(fmt.Sprintf("%d/%d", st.Index+1, st.Count())))

	lines = append(lines, strings.Join([]string{
		flag("repeat", st.Repeat),
		flag("auto", st.Auto),
		flag("loop", st.Loop),
		flag("random", st.Random),
		faint(fmt.Sprintf("every %ds", st.AutoInterval)),
	}, "  "))

	if preview := m.canvas.render(m.frame.size, m.frame.draws); preview != "" {
		lines = append(lines, preview)
	} else if rows := m.frame.size.Y / pixelsPerRow; rows > 0 {
		lines = append(lines, strings.Repeat("\n", rows-1))
	}

	lines = append(lines, m.statusLine())

	for _, e := range m.errs {
		lines = append(lines, wrap.String(errorStyle.Render("error")+" "+e, max(m.width, 20)))
	}

	lines = append(lines, m.help.View(m.keymap))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) statusLine() string {
	c := m.frame.controls
	if c == nil {
		return bold(m.frame.status)
	}
	parts := []string{
		playing(c.Playing),
		fmt.Sprintf("%s / %s", clock(c.Position), clock(c.Duration)),
		fmt.Sprintf("vol %d%%", int(c.Volume*100+0.5)),
	}
	if c.Fullscreen {
		parts = append(parts, faint("fullscreen"))
	}
	parts = append(parts, lo.Compact([]string{c.Status, m.frame.status})...)
	return strings.Join(parts, "  ")
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)
	h, m, s := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
