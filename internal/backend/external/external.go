// Package external plays videos in a VLC child process controlled over
// VLC's HTTP interface.
package external

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playback"
)

const (
	WaitingStatus = "Waiting for the stream..."

	pollInterval  = 300 * time.Millisecond
	seekStep      = 5
	volumeStep    = 16
	passwordLen   = 16
	exitWait      = 2 * time.Second
	statusPath    = "/requests/status.xml"
	controlHost   = "127.0.0.1"
	requestExpiry = 2 * time.Second
)

type Backend struct {
	playerPath string
	repainter  backend.Repainter
	logger     zerolog.Logger
	client     *http.Client
	endpoint   func(port int) string

	mu         sync.RWMutex
	status     Status
	statusErr  error
	playedOnce bool
	current    *player
}

// player is one spawned process and the address of its control interface.
type player struct {
	path     string
	password string
	baseURL  string
	cmd      *exec.Cmd
	exited   chan struct{}
	cancel   context.CancelFunc
	pollDone chan struct{}
}

func (p *player) alive() bool {
	if p == nil {
		return false
	}
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

type Option func(*Backend)

// WithEndpoint overrides where the control interface of a spawned player is
// reached.
func WithEndpoint(fn func(port int) string) Option {
	return func(b *Backend) { b.endpoint = fn }
}

func New(playerPath string, repainter backend.Repainter, logger zerolog.Logger, opts ...Option) *Backend {
	b := &Backend{
		playerPath: playerPath,
		repainter:  repainter,
		logger:     logger.With().Str("backend", "external").Logger(),
		client:     &http.Client{Timeout: requestExpiry},
		endpoint: func(port int) string {
			return "http://" + controlHost + ":" + strconv.Itoa(port)
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) IsLoaded() bool {
	return b.player().alive()
}

func (b *Backend) player() *player {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

func (b *Backend) IsEnd() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.playedOnce && b.status.Stopped()
}

// Status returns the last status read from the player and the error of the
// last poll, if any.
func (b *Backend) Status() (Status, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status, b.statusErr
}

// Reload replaces the running player with one playing path.
func (b *Backend) Reload(path string, _ *playback.State) error {
	if p := b.player(); p.alive() && p.path == path {
		return nil
	}

	b.stop()

	port, err := backend.FindAvailablePort(controlHost, backend.PortFrom, backend.PortTo)
	if err != nil {
		return err
	}
	password := lo.RandomString(passwordLen, lo.AlphanumericCharset)

	args := []string{
		"--extraintf", "http",
		"--http-host", controlHost,
		"--http-port", strconv.Itoa(port),
		"--http-password", password,
		path,
	}

	cmd := exec.Command(b.playerPath, args...)
	cmd.SysProcAttr = backend.ProcAttr()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %v", backend.ErrUnavailable, b.playerPath, err)
	}

	exited := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	p := &player{
		path:     path,
		password: password,
		baseURL:  b.endpoint(port),
		cmd:      cmd,
		exited:   exited,
		cancel:   cancel,
		pollDone: make(chan struct{}),
	}

	b.mu.Lock()
	b.status = Status{}
	b.statusErr = fmt.Errorf("%w: starting", backend.ErrTransientRemote)
	b.playedOnce = false
	b.current = p
	b.mu.Unlock()

	b.logger.Info().
		Str("path", path).
		Int("port", port).
		Int("pid", cmd.Process.Pid).
		Msg("player started")

	go b.poll(ctx, p.baseURL, password, p.pollDone)
	return nil
}

func (b *Backend) poll(ctx context.Context, baseURL, password string, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := b.fetch(ctx, baseURL, password, nil)

		b.mu.Lock()
		if err != nil {
			if ctx.Err() != nil {
				b.mu.Unlock()
				return
			}
			b.statusErr = fmt.Errorf("%w: %v", backend.ErrTransientRemote, err)
		} else {
			b.status = st
			b.statusErr = nil
			if st.Playing() {
				b.playedOnce = true
			}
		}
		b.mu.Unlock()

		if b.repainter != nil {
			b.repainter.RequestRepaint()
		}
	}
}

func (b *Backend) fetch(ctx context.Context, baseURL, password string, params url.Values) (Status, error) {
	u := baseURL + statusPath
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Status{}, err
	}
	req.SetBasicAuth("", password)

	resp, err := b.client.Do(req)
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("status endpoint answered %s", resp.Status)
	}

	var st Status
	if err := xml.NewDecoder(resp.Body).Decode(&st); err != nil {
		return Status{}, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}

// command sends params to p. Callers capture p up front so a command never
// reaches a player started after it was issued.
func (b *Backend) command(p *player, params url.Values) error {
	if !p.alive() {
		return fmt.Errorf("%w: no player running", backend.ErrUnavailable)
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestExpiry)
	defer cancel()

	_, err := b.fetch(ctx, p.baseURL, p.password, params)
	if err != nil {
		b.logger.Debug().Err(err).Str("command", params.Get("command")).Msg("player command failed")
	}
	return err
}

func pauseCommand() url.Values {
	return url.Values{"command": {"pl_pause"}}
}

func resumeCommand() url.Values {
	return url.Values{"command": {"pl_forceresume"}}
}

func seekCommand(delta int) url.Values {
	val := strconv.Itoa(delta)
	if delta >= 0 {
		val = "+" + val
	}
	return url.Values{"command": {"seek"}, "val": {val}}
}

func volumeCommand(volume int) url.Values {
	return url.Values{"command": {"volume"}, "val": {strconv.Itoa(max(volume, 0))}}
}

func fullscreenCommand() url.Values {
	return url.Values{"command": {"fullscreen"}}
}

func (b *Backend) Pause() error {
	return b.command(b.player(), pauseCommand())
}

func (b *Backend) Resume() error {
	return b.command(b.player(), resumeCommand())
}

// Seek moves by delta seconds relative to the current position.
func (b *Backend) Seek(delta int) error {
	return b.command(b.player(), seekCommand(delta))
}

// SetVolume takes VLC's scale, where 256 is 100%.
func (b *Backend) SetVolume(volume int) error {
	return b.command(b.player(), volumeCommand(volume))
}

func (b *Backend) ToggleFullscreen() error {
	return b.command(b.player(), fullscreenCommand())
}

func (b *Backend) Sync(*playback.State) {}

func (b *Backend) Present(s backend.Surface, canInput bool) {
	st, err := b.Status()
	if err != nil {
		s.DrawStatus(WaitingStatus)
		return
	}

	s.DrawControls(backend.Controls{
		Playing:    st.Playing(),
		Position:   st.Position(),
		Duration:   st.Duration(),
		Volume:     float64(st.Volume) / 256,
		Fullscreen: st.IsFullscreen(),
		Status:     st.Title(),
	})

	if !canInput {
		return
	}

	var params url.Values
	switch {
	case s.KeyPressed(backend.KeySpace):
		if st.Playing() {
			params = pauseCommand()
		} else {
			params = resumeCommand()
		}
	case s.KeyPressed(backend.KeyForward):
		params = seekCommand(seekStep)
	case s.KeyPressed(backend.KeyBackward):
		params = seekCommand(-seekStep)
	case s.KeyPressed(backend.KeyVolumeUp):
		params = volumeCommand(st.Volume + volumeStep)
	case s.KeyPressed(backend.KeyVolumeDown):
		params = volumeCommand(st.Volume - volumeStep)
	case s.KeyPressed(backend.KeyFullscreen):
		params = fullscreenCommand()
	}
	if params != nil {
		p := b.player()
		go b.command(p, params)
	}
}

func (b *Backend) SupportedExtensions() []string {
	return media.Extensions(config.MediaKindVideo)
}

func (b *Backend) Close() error {
	b.stop()
	return nil
}

func (b *Backend) stop() {
	b.mu.Lock()
	p := b.current
	b.current = nil
	b.mu.Unlock()
	if p == nil {
		return
	}

	p.cancel()
	<-p.pollDone
	if err := backend.KillProcess(p.cmd); err != nil {
		b.logger.Debug().Err(err).Msg("kill player")
	}
	select {
	case <-p.exited:
	case <-time.After(exitWait):
		b.logger.Warn().Int("pid", p.cmd.Process.Pid).Msg("player did not exit")
	}
}
