// Package native decodes videos in-process and renders their frames onto
// the host surface.
package native

import (
	"image"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/playback"
)

const (
	seekStep     = 5 * time.Second
	volumeStep   = 0.1
	loopInterval = 10 * time.Millisecond
	stopWait     = 3 * time.Second
	textureName  = "native-frame"
	commandQueue = 16
)

type commandKind int

const (
	commandState commandKind = iota
	commandSeek
	commandVolume
)

type command struct {
	kind     commandKind
	state    State
	position time.Duration
	volume   float64
}

// Snapshot is what the pipeline thread publishes after every iteration.
type Snapshot struct {
	State    State
	Position time.Duration
	Duration time.Duration
	Volume   float64
	Frame    *image.RGBA
	// Played latches once the pipeline has reached playing.
	Played bool
	// Failed is set when the pipeline stopped on an error.
	Failed bool
}

type Backend struct {
	factory   PipelineFactory
	repainter backend.Repainter
	logger    zerolog.Logger

	path      string
	commands  chan command
	snapshots chan Snapshot
	done      chan struct{}
	last      Snapshot

	frame   *image.RGBA
	texture backend.Texture
}

func New(factory PipelineFactory, repainter backend.Repainter, logger zerolog.Logger) *Backend {
	return &Backend{
		factory:   factory,
		repainter: repainter,
		logger:    logger.With().Str("backend", "native").Logger(),
	}
}

func (b *Backend) IsLoaded() bool {
	return b.done != nil
}

// IsEnd reports a pipeline that returned to null after playing or after
// failing.
func (b *Backend) IsEnd() bool {
	b.refresh()
	return b.last.State == StateNull && (b.last.Played || b.last.Failed)
}

// Snapshot returns the latest published pipeline state.
func (b *Backend) Snapshot() Snapshot {
	b.refresh()
	return b.last
}

func (b *Backend) Reload(path string, _ *playback.State) error {
	if path == b.path && b.IsLoaded() {
		return nil
	}
	b.stop()

	frames := make(chan *image.RGBA, 1)
	sink := func(frame *image.RGBA) {
		publish(frames, frame)
		if b.repainter != nil {
			b.repainter.RequestRepaint()
		}
	}

	graph := BuildGraph(path)
	p, err := b.factory(path, graph, sink)
	if err != nil {
		return err
	}

	b.path = path
	b.commands = make(chan command, commandQueue)
	b.snapshots = make(chan Snapshot, 1)
	b.done = make(chan struct{})
	b.last = Snapshot{State: StateReady, Volume: 1}
	b.frame, b.texture = nil, nil

	go b.run(p, b.commands, b.snapshots, frames, b.done)
	b.send(command{kind: commandState, state: StatePlaying})

	b.logger.Info().
		Str("path", path).
		Str("demux", Demuxer(path)).
		Msg("pipeline started")
	return nil
}

// run owns the pipeline. It stays on one OS thread for the pipeline's life.
func (b *Backend) run(p Pipeline, commands <-chan command, snapshots chan Snapshot, frames <-chan *image.RGBA, done chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(done)
	defer p.Close()

	state := StateReady
	played, failed := false, false
	var frame *image.RGBA

	snapshot := func() Snapshot {
		return Snapshot{
			State:    state,
			Position: p.Position(),
			Duration: p.Duration(),
			Volume:   p.Volume(),
			Frame:    frame,
			Played:   played,
			Failed:   failed,
		}
	}
	exit := func(onError bool) {
		failed = onError
		_ = p.SetState(StateNull)
		state = StateNull
		publish(snapshots, snapshot())
		if b.repainter != nil {
			b.repainter.RequestRepaint()
		}
	}

	for {
		for drained := false; !drained; {
			select {
			case cmd, ok := <-commands:
				if !ok {
					exit(false)
					return
				}
				if err := b.apply(p, cmd); err != nil {
					b.logger.Error().Err(err).Msg("pipeline command failed")
					exit(true)
					return
				}
			default:
				drained = true
			}
		}

		if msg, ok := p.PopMessage(); ok {
			switch msg.Kind {
			case MessageError:
				b.logger.Error().Err(msg.Err).Msg("pipeline error")
				exit(true)
				return
			case MessageEOS:
				b.logger.Debug().Msg("end of stream")
				exit(false)
				return
			case MessageStateChanged:
				state = msg.State
				played = played || state == StatePlaying
			}
		}

		select {
		case f := <-frames:
			frame = f
		default:
		}

		publish(snapshots, snapshot())
		time.Sleep(loopInterval)
	}
}

func (b *Backend) apply(p Pipeline, cmd command) error {
	switch cmd.kind {
	case commandState:
		return p.SetState(cmd.state)
	case commandSeek:
		return p.Seek(cmd.position)
	case commandVolume:
		p.SetVolume(cmd.volume)
	}
	return nil
}

// publish replaces whatever is buffered in ch with v. ch has capacity one
// and a single producer.
func publish[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

func (b *Backend) refresh() {
	if b.snapshots == nil {
		return
	}
	select {
	case s := <-b.snapshots:
		b.last = s
	default:
		select {
		case <-b.done:
			b.last.State = StateNull
		default:
		}
	}
}

func (b *Backend) send(cmd command) {
	if b.done == nil {
		return
	}
	select {
	case b.commands <- cmd:
	case <-b.done:
	}
}

func (b *Backend) Play() {
	b.send(command{kind: commandState, state: StatePlaying})
}

func (b *Backend) Pause() {
	b.send(command{kind: commandState, state: StatePaused})
}

func (b *Backend) Seek(position time.Duration) {
	b.send(command{kind: commandSeek, position: max(position, 0)})
}

// FastForward stops at the end of the video.
func (b *Backend) FastForward() {
	s := b.Snapshot()
	b.Seek(min(s.Position+seekStep, s.Duration))
}

// Rewind stops at the start of the video.
func (b *Backend) Rewind() {
	s := b.Snapshot()
	b.Seek(max(s.Position-seekStep, 0))
}

func (b *Backend) SetVolume(volume float64) {
	b.send(command{kind: commandVolume, volume: min(max(volume, 0), 1)})
}

func (b *Backend) Sync(*playback.State) {}

func (b *Backend) Present(s backend.Surface, canInput bool) {
	snap := b.Snapshot()

	if snap.Frame != nil {
		if snap.Frame != b.frame || b.texture == nil {
			b.frame = snap.Frame
			b.texture = s.UploadTexture(textureName, snap.Frame)
		}
		s.DrawTexture(b.texture, backend.FitRect(b.texture.Size(), s.Size()))
	}

	s.DrawControls(backend.Controls{
		Playing:  snap.State == StatePlaying,
		Position: snap.Position,
		Duration: snap.Duration,
		Volume:   snap.Volume,
		Status:   snap.State.String(),
	})

	if snap.State == StatePlaying {
		s.RequestRepaint()
	}

	if !canInput {
		return
	}

	switch {
	case s.KeyPressed(backend.KeySpace):
		if snap.State == StatePlaying {
			b.Pause()
		} else {
			b.Play()
		}
	case s.KeyPressed(backend.KeyForward):
		b.FastForward()
	case s.KeyPressed(backend.KeyBackward):
		b.Rewind()
	case s.KeyPressed(backend.KeyVolumeUp):
		b.SetVolume(snap.Volume + volumeStep)
	case s.KeyPressed(backend.KeyVolumeDown):
		b.SetVolume(snap.Volume - volumeStep)
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
	if b.done == nil {
		return
	}
	close(b.commands)
	select {
	case <-b.done:
	case <-time.After(stopWait):
		b.logger.Warn().Str("path", b.path).Msg("pipeline thread did not stop")
	}
	b.path = ""
	b.commands = nil
	b.snapshots = nil
	b.done = nil
	b.last = Snapshot{}
	b.frame, b.texture = nil, nil
}
