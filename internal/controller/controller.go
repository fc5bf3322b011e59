// Package controller drives a playback session: it turns a committed config
// into playback state and a backend, then advances them once per host frame.
package controller

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playback"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playlist"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/storage"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/timer"
)

// ErrDisconnected means the auto-advance timer died underneath the session.
var ErrDisconnected = errors.New("controller: timer disconnected")

const (
	intentQueue = 64
	maxErrors   = 8
)

type Mode int

const (
	ModeConfigure Mode = iota
	ModePlay
)

func (m Mode) String() string {
	if m == ModePlay {
		return "play"
	}
	return "configure"
}

// SessionStore persists the playback state per source.
type SessionStore interface {
	SaveSession(sess *storage.Session) error
	GetSession(source string) (*storage.Session, error)
}

type Controller struct {
	fs        afero.Fs
	factory   Factory
	scanner   *media.Scanner
	sessions  SessionStore
	repainter backend.Repainter
	timerOpts []timer.Option
	now       func() time.Time
	logger    zerolog.Logger

	mode    Mode
	cfg     *config.Config
	state   *playback.State
	backend backend.Backend
	timer   *timer.Timer
	intents chan Intent
	errs    []string
}

type Option func(*Controller)

func WithSessions(store SessionStore) Option {
	return func(c *Controller) { c.sessions = store }
}

func WithRepainter(r backend.Repainter) Option {
	return func(c *Controller) { c.repainter = r }
}

func WithTimerOptions(opts ...timer.Option) Option {
	return func(c *Controller) { c.timerOpts = opts }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func New(fs afero.Fs, factory Factory, logger zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		fs:      fs,
		factory: factory,
		scanner: media.NewScanner(fs, logger),
		now:     time.Now,
		logger:  logger.With().Str("component", "controller").Logger(),
		intents: make(chan Intent, intentQueue),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Mode() Mode {
	return c.mode
}

// Config is the snapshot of the running session, nil in Configure.
func (c *Controller) Config() *config.Config {
	return c.cfg
}

// State is the live playback state, nil in Configure. Callers must not
// modify it.
func (c *Controller) State() *playback.State {
	return c.state
}

func (c *Controller) Backend() backend.Backend {
	return c.backend
}

// Errors returns and clears the messages queued for the user.
func (c *Controller) Errors() []string {
	errs := c.errs
	c.errs = nil
	return errs
}

func (c *Controller) report(err error) {
	c.errs = append(c.errs, err.Error())
	if len(c.errs) > maxErrors {
		c.errs = c.errs[len(c.errs)-maxErrors:]
	}
}

// Dispatch queues an intent for the next Tick. It never blocks; intents
// beyond the queue are dropped.
func (c *Controller) Dispatch(in Intent) {
	select {
	case c.intents <- in:
	default:
		c.logger.Warn().Stringer("intent", in.Kind).Msg("intent queue full")
	}
}

// Commit leaves Configure with a copy of cfg. On failure the controller
// stays in Configure and the error is also queued for the user.
func (c *Controller) Commit(cfg *config.Config) error {
	if c.mode == ModePlay {
		return errors.New("already playing")
	}
	if !cfg.CanPlay() {
		err := fmt.Errorf("%w: nothing to play", config.ErrInvalidConfig)
		c.report(err)
		return err
	}

	session := *cfg
	paths, err := c.collect(&session)
	if err != nil {
		c.report(err)
		return err
	}

	state := playback.New(paths, &session)
	c.restore(&session, state)

	be, err := c.factory.New(&session, c.repainter)
	if err != nil {
		c.logger.Error().Err(err).Str("media_kind", session.MediaKind.String()).Msg("backend unavailable")
		c.report(err)
		return err
	}

	c.cfg = &session
	c.state = state
	c.backend = be
	c.mode = ModePlay

	opts := c.timerOpts
	if c.repainter != nil {
		opts = append(slices.Clone(opts), timer.WithRepainter(c.repainter))
	}
	c.timer = timer.New(c.logger, opts...)
	c.timer.Go()
	if state.Auto {
		c.timer.Send(timer.Signal{Kind: timer.Start, Interval: state.AutoInterval})
	}

	c.logger.Info().
		Str("source", session.Source()).
		Str("media_kind", session.MediaKind.String()).
		Int("items", state.Count()).
		Msg("playback started")

	c.backend.Sync(c.state)
	c.reload()
	return nil
}

func (c *Controller) collect(cfg *config.Config) ([]string, error) {
	if path, ok := cfg.Playlist().Get(); ok {
		p, err := playlist.Load(c.fs, path)
		if err != nil {
			return nil, err
		}
		if !p.Header.Version.Supported() {
			return nil, fmt.Errorf("%w: %s", playlist.ErrUnsupportedVersion, p.Header.Version)
		}
		p.Header.Apply(cfg)
		return p.Body, nil
	}
	return c.scanner.Scan(cfg.RootPath, cfg.MediaKind)
}

// restore picks up index and flags from the last session of the same
// source, as long as it played the same list.
func (c *Controller) restore(cfg *config.Config, state *playback.State) {
	if c.sessions == nil {
		return
	}
	sess, err := c.sessions.GetSession(cfg.Source())
	if err != nil {
		c.logger.Warn().Err(err).Str("source", cfg.Source()).Msg("session lookup failed")
		return
	}
	if sess == nil || sess.MediaKind != cfg.MediaKind || !slices.Equal(sess.State.Paths, state.Paths) {
		return
	}

	diff, err := playback.Diff(state, sess.State)
	if err == nil {
		err = playback.ApplyDiff(state, diff)
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("session restore failed")
		return
	}
	state.SetPaths(state.Paths)
	if err := state.SetAutoInterval(state.AutoInterval); err != nil {
		state.AutoInterval = cfg.AutoInterval
	}
	c.logger.Debug().Int("index", state.Index).Msg("session restored")
}

// Tick runs one host frame: timer ticks, then intents, then presentation.
// It returns ErrDisconnected once the timer has failed.
func (c *Controller) Tick(surface backend.Surface) error {
	if c.mode != ModePlay {
		return nil
	}

	select {
	case <-c.timer.Done():
		if err := c.timer.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
	default:
	}

	for ticks := true; ticks; {
		select {
		case <-c.timer.Ticks():
			if !c.state.Repeat && c.backend.IsEnd() {
				c.state.Next()
				c.reload()
			}
		default:
			ticks = false
		}
	}

	for pending := true; pending && c.mode == ModePlay; {
		select {
		case in := <-c.intents:
			c.apply(in)
		default:
			pending = false
		}
	}

	if c.mode == ModePlay {
		c.backend.Present(surface, true)
	}
	return nil
}

func (c *Controller) apply(in Intent) {
	switch in.Kind {
	case IntentNext:
		c.state.Next()
		c.reload()
	case IntentPrev:
		c.state.Prev()
		c.reload()
	case IntentRandomNext:
		c.state.RandomNext()
		c.reload()
	case IntentToggleRepeat:
		c.state.ToggleRepeat()
	case IntentToggleAuto:
		c.state.ToggleAuto()
		if c.state.Auto {
			c.timer.Send(timer.Signal{Kind: timer.Start, Interval: c.state.AutoInterval})
		} else {
			c.timer.Send(timer.Signal{Kind: timer.Stop})
		}
	case IntentToggleLoop:
		c.state.ToggleLoop()
	case IntentToggleRandom:
		c.state.ToggleRandom()
	case IntentSetInterval:
		if err := c.state.SetAutoInterval(in.Interval); err != nil {
			c.report(err)
			return
		}
		c.timer.Send(timer.Signal{Kind: timer.Update, Interval: in.Interval})
	case IntentSetIndex:
		if err := c.state.SetIndex(in.Index); err != nil {
			c.report(err)
			return
		}
		c.reload()
	case IntentSave:
		if err := c.save(in.Path); err != nil {
			c.logger.Error().Err(err).Msg("save playlist")
			c.report(err)
		}
	case IntentLoad:
		if err := c.load(in.Path); err != nil {
			c.logger.Error().Err(err).Msg("load playlist")
			c.report(err)
		}
	case IntentHome:
		c.home()
	}
}

// reload shows the current item. Items that fail to decode are skipped, at
// most once around the list.
func (c *Controller) reload() {
	for attempts := 0; attempts <= c.state.Count(); attempts++ {
		path, ok := c.state.CurrentPath()
		if !ok {
			return
		}
		err := c.backend.Reload(path, c.state)
		if err == nil {
			return
		}
		if !errors.Is(err, backend.ErrDecode) {
			c.logger.Error().Err(err).Str("path", path).Msg("reload failed")
			c.report(err)
			return
		}

		c.logger.Warn().Err(err).Str("path", path).Msg("skipping undecodable item")
		before := c.state.Index
		c.state.Next()
		if c.state.Index == before {
			c.report(err)
			return
		}
	}
}

func (c *Controller) save(path string) error {
	path = playlist.EnsureExtension(path)
	p := playlist.Playlist{
		Header: playlist.NewHeader(c.cfg, c.now()),
		Body:   slices.Clone(c.state.Paths),
	}
	if err := playlist.Save(c.fs, path, p); err != nil {
		return err
	}
	c.logger.Info().Str("path", path).Int("items", len(p.Body)).Msg("playlist saved")
	return nil
}

// load swaps in the paths of another playlist of the same media kind.
// The state is untouched on any error.
func (c *Controller) load(path string) error {
	p, err := playlist.Load(c.fs, path)
	if err != nil {
		return err
	}
	if !p.Header.Version.Supported() {
		return fmt.Errorf("%w: %s", playlist.ErrUnsupportedVersion, p.Header.Version)
	}
	if p.Header.MediaKind != c.cfg.MediaKind {
		return fmt.Errorf("playlist %s holds %s, playing %s", path, p.Header.MediaKind, c.cfg.MediaKind)
	}

	c.state.SetPaths(p.Body)
	c.state.Index = 0
	c.backend.Sync(c.state)
	c.reload()

	c.logger.Info().Str("path", path).Int("items", len(p.Body)).Msg("playlist loaded")
	return nil
}

// home persists the session and tears it down, backend first.
func (c *Controller) home() {
	if c.mode != ModePlay {
		return
	}

	if c.sessions != nil && c.cfg.Source() != "" {
		sess := &storage.Session{
			Source:    c.cfg.Source(),
			MediaKind: c.cfg.MediaKind,
			State:     c.state.Clone(),
		}
		if err := c.sessions.SaveSession(sess); err != nil {
			c.logger.Warn().Err(err).Msg("session not saved")
		}
	}

	if err := c.backend.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("backend close")
	}
	c.backend = nil

	c.timer.Close()
	c.timer = nil

	c.state = nil
	c.cfg = nil
	c.mode = ModeConfigure

	for drained := false; !drained; {
		select {
		case <-c.intents:
		default:
			drained = true
		}
	}
	c.logger.Info().Msg("back to configure")
}

// Close ends any running session.
func (c *Controller) Close() {
	c.home()
}
