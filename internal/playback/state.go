// Package playback holds the playlist cursor and the rules that move it.
package playback

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"golang.org/x/exp/constraints"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// Rand picks an index in [0, n).
type Rand interface {
	IntN(n int) int
}

type defaultRand struct{}

func (defaultRand) IntN(n int) int { return rand.IntN(n) }

type State struct {
	Paths        []string `json:"paths"`
	Index        int      `json:"index"`
	Repeat       bool     `json:"repeat"`
	Auto         bool     `json:"auto"`
	AutoInterval uint32   `json:"auto_interval"`
	Loop         bool     `json:"loop"`
	Random       bool     `json:"random"`

	rng Rand
}

// New builds a state at index 0 with the flags of cfg.
func New(paths []string, cfg *config.Config) *State {
	return &State{
		Paths:        paths,
		Repeat:       cfg.Repeat,
		Auto:         cfg.Auto,
		AutoInterval: clamp(cfg.AutoInterval, config.MinAutoInterval, config.MaxAutoInterval),
		Loop:         cfg.Loop,
		Random:       cfg.Random,
	}
}

// WithRand swaps the random source, mostly for tests.
func (s *State) WithRand(r Rand) *State {
	s.rng = r
	return s
}

func (s *State) rand() Rand {
	if s.rng == nil {
		return defaultRand{}
	}
	return s.rng
}

func (s *State) Count() int {
	return len(s.Paths)
}

func (s *State) CurrentPath() (string, bool) {
	if s.Index < 0 || s.Index >= len(s.Paths) {
		return "", false
	}
	return s.Paths[s.Index], true
}

// SetPaths replaces the list and pulls the index back inside it.
func (s *State) SetPaths(paths []string) {
	s.Paths = paths
	if len(paths) == 0 {
		s.Index = 0
		return
	}
	s.Index = clamp(s.Index, 0, len(paths)-1)
}

func (s *State) SetIndex(i int) error {
	if i < 0 || i >= len(s.Paths) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.Paths))
	}
	s.Index = i
	return nil
}

func (s *State) SetAutoInterval(seconds uint32) error {
	if seconds < config.MinAutoInterval || seconds > config.MaxAutoInterval {
		return fmt.Errorf("%w: auto interval %d", config.ErrInvalidConfig, seconds)
	}
	s.AutoInterval = seconds
	return nil
}

func (s *State) ToggleRepeat() { s.Repeat = !s.Repeat }
func (s *State) ToggleAuto()   { s.Auto = !s.Auto }
func (s *State) ToggleLoop()   { s.Loop = !s.Loop }
func (s *State) ToggleRandom() { s.Random = !s.Random }

// Clone returns a copy that shares no slice memory with s.
func (s *State) Clone() *State {
	c := *s
	c.Paths = append([]string(nil), s.Paths...)
	return &c
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
