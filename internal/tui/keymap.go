package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
)

type keymap struct {
	next, prev, random,
	repeat, auto, loop, shuffle,
	faster, slower,
	save, load, home, quit, showHelp key.Binding

	// forwarded to the backend
	playPause, forward, backward,
	volumeUp, volumeDown, fullscreen key.Binding
}

func newKeymap() *keymap {
	return &keymap{
		next: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next"),
		),
		prev: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "prev"),
		),
		random: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "random"),
		),
		repeat: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "repeat"),
		),
		auto: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "auto"),
		),
		loop: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "loop"),
		),
		shuffle: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "random order"),
		),
		faster: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "shorter interval"),
		),
		slower: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "longer interval"),
		),
		save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save playlist"),
		),
		load: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "load playlist"),
		),
		home: key.NewBinding(
			key.WithKeys("h", "esc"),
			key.WithHelp("h", "home"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		playPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		forward: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "forward"),
		),
		backward: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "back"),
		),
		volumeUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "volume up"),
		),
		volumeDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "volume down"),
		),
		fullscreen: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "fullscreen"),
		),
	}
}

// backendKey maps a key press to the backend key it forwards, if any.
func (k *keymap) backendKey(msg tea.KeyMsg) (backend.Key, bool) {
	switch {
	case key.Matches(msg, k.playPause):
		return backend.KeySpace, true
	case key.Matches(msg, k.forward):
		return backend.KeyForward, true
	case key.Matches(msg, k.backward):
		return backend.KeyBackward, true
	case key.Matches(msg, k.volumeUp):
		return backend.KeyVolumeUp, true
	case key.Matches(msg, k.volumeDown):
		return backend.KeyVolumeDown, true
	case key.Matches(msg, k.fullscreen):
		return backend.KeyFullscreen, true
	}
	return 0, false
}

func (k *keymap) ShortHelp() []key.Binding {
	return []key.Binding{k.next, k.prev, k.playPause, k.save, k.home, k.quit, k.showHelp}
}

func (k *keymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.next, k.prev, k.random},
		{k.repeat, k.auto, k.loop, k.shuffle},
		{k.faster, k.slower, k.save, k.load},
		{k.playPause, k.forward, k.backward},
		{k.volumeUp, k.volumeDown, k.fullscreen},
		{k.home, k.quit, k.showHelp},
	}
}
