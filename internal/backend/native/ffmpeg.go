package native

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
)

// ProbeFunc reports the dimensions and duration of a video.
type ProbeFunc func(ctx context.Context, path string) (*media.Metadata, error)

type FFmpegOptions struct {
	FFmpegPath string
	// AudioPath is an ffplay binary for the audio branch. Empty disables audio.
	AudioPath string
	Probe     ProbeFunc
	// MaxWidth bounds decoded frames; larger videos are scaled down.
	MaxWidth int
	Logger   zerolog.Logger
}

const (
	defaultMaxWidth = 1920
	probeTimeout    = 10 * time.Second
	busCapacity     = 16
)

var formatByDemuxer = map[string]string{
	"avidemux":      "avi",
	"matroskademux": "matroska",
	"qtdemux":       "mov",
}

// NewFFmpegFactory builds pipelines that decode through ffmpeg child
// processes writing raw RGBA frames to a pipe.
func NewFFmpegFactory(opts FFmpegOptions) PipelineFactory {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = defaultMaxWidth
	}
	return func(path string, graph Graph, sink FrameSink) (Pipeline, error) {
		return newFFmpegPipeline(path, graph, sink, opts)
	}
}

type ffmpegPipeline struct {
	opts   FFmpegOptions
	path   string
	format string
	sink   FrameSink
	logger zerolog.Logger

	width, height int
	duration      time.Duration

	state    State
	volume   float64
	offset   time.Duration
	started  time.Time
	video    *exec.Cmd
	audio    *exec.Cmd
	readDone chan struct{}

	busMu sync.Mutex
	bus   []Message
	// generation discards messages from readers of replaced processes.
	generation int
}

func newFFmpegPipeline(path string, graph Graph, sink FrameSink, opts FFmpegOptions) (*ffmpegPipeline, error) {
	if _, err := exec.LookPath(opts.FFmpegPath); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", backend.ErrUnavailable, opts.FFmpegPath, err)
	}
	if opts.Probe == nil {
		return nil, fmt.Errorf("%w: no probe configured", backend.ErrUnavailable)
	}

	demux, _ := graph.Element("demux")
	format, ok := formatByDemuxer[demux.Factory]
	if !ok {
		return nil, fmt.Errorf("%w: unknown demuxer %q", backend.ErrDecode, demux.Factory)
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	meta, err := opts.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: probe %s: %v", backend.ErrDecode, path, err)
	}
	if meta == nil || !meta.HasVideo() {
		return nil, fmt.Errorf("%w: %s has no video stream", backend.ErrDecode, path)
	}

	w, h := meta.Width, meta.Height
	if w > opts.MaxWidth {
		h = h * opts.MaxWidth / w
		w = opts.MaxWidth
	}
	// rawvideo scaling wants even dimensions
	w, h = max(w&^1, 2), max(h&^1, 2)

	return &ffmpegPipeline{
		opts:     opts,
		path:     path,
		format:   format,
		sink:     sink,
		logger:   opts.Logger.With().Str("pipeline", path).Logger(),
		width:    w,
		height:   h,
		duration: meta.Duration,
		volume:   1,
		state:    StateReady,
	}, nil
}

func (p *ffmpegPipeline) push(gen int, msg Message) {
	p.busMu.Lock()
	defer p.busMu.Unlock()
	if gen != p.generation || len(p.bus) >= busCapacity {
		return
	}
	p.bus = append(p.bus, msg)
}

func (p *ffmpegPipeline) PopMessage() (Message, bool) {
	p.busMu.Lock()
	defer p.busMu.Unlock()
	if len(p.bus) == 0 {
		return Message{}, false
	}
	msg := p.bus[0]
	p.bus = p.bus[1:]
	return msg, true
}

func (p *ffmpegPipeline) SetState(s State) error {
	if s == p.state {
		return nil
	}
	switch s {
	case StatePlaying:
		if err := p.start(); err != nil {
			return err
		}
	case StatePaused, StateReady:
		p.offset = p.Position()
		p.kill()
	case StateNull:
		p.kill()
		p.offset = 0
	}
	p.state = s
	p.push(p.generation, Message{Kind: MessageStateChanged, State: s})
	return nil
}

func (p *ffmpegPipeline) Seek(position time.Duration) error {
	position = min(max(position, 0), p.duration)
	if p.state != StatePlaying {
		p.offset = position
		return nil
	}
	p.kill()
	p.offset = position
	return p.start()
}

func (p *ffmpegPipeline) SetVolume(volume float64) {
	p.volume = min(max(volume, 0), 1)
	if p.state == StatePlaying && p.opts.AudioPath != "" {
		p.stopAudio()
		p.startAudio(p.Position())
	}
}

func (p *ffmpegPipeline) Position() time.Duration {
	if p.state != StatePlaying {
		return p.offset
	}
	return min(p.offset+time.Since(p.started), p.duration)
}

func (p *ffmpegPipeline) Duration() time.Duration {
	return p.duration
}

func (p *ffmpegPipeline) Volume() float64 {
	return p.volume
}

func (p *ffmpegPipeline) Close() error {
	p.kill()
	p.state = StateNull
	return nil
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func (p *ffmpegPipeline) start() error {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-re",
		"-ss", seconds(p.offset),
		"-f", p.format,
		"-i", p.path,
		"-map", "0:v:0",
		"-vf", fmt.Sprintf("scale=%d:%d", p.width, p.height),
		"-pix_fmt", "rgba",
		"-f", "rawvideo",
		"pipe:1",
	}
	cmd := exec.Command(p.opts.FFmpegPath, args...)
	cmd.SysProcAttr = backend.ProcAttr()
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start ffmpeg: %v", backend.ErrUnavailable, err)
	}

	p.busMu.Lock()
	p.generation++
	gen := p.generation
	p.busMu.Unlock()

	p.video = cmd
	p.started = time.Now()
	p.readDone = make(chan struct{})
	go p.read(gen, cmd, stdout, p.readDone)

	p.startAudio(p.offset)
	return nil
}

func (p *ffmpegPipeline) read(gen int, cmd *exec.Cmd, stdout io.Reader, done chan struct{}) {
	defer close(done)

	r := bufio.NewReaderSize(stdout, p.width*p.height*4)
	frames := 0
	for {
		frame := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
		if _, err := io.ReadFull(r, frame.Pix); err != nil {
			waitErr := cmd.Wait()
			switch {
			case errors.Is(err, io.EOF) && waitErr == nil:
				p.push(gen, Message{Kind: MessageEOS})
			case waitErr != nil:
				p.push(gen, Message{Kind: MessageError, Err: fmt.Errorf("ffmpeg: %w", waitErr)})
			default:
				p.push(gen, Message{Kind: MessageError, Err: fmt.Errorf("read frame: %w", err)})
			}
			p.logger.Debug().Int("frames", frames).Msg("decoder stopped")
			return
		}
		frames++
		if p.sink != nil {
			p.sink(frame)
		}
	}
}

func (p *ffmpegPipeline) startAudio(from time.Duration) {
	if p.opts.AudioPath == "" {
		return
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-nodisp", "-autoexit",
		"-ss", seconds(from),
		"-volume", strconv.Itoa(int(p.volume * 100)),
		p.path,
	}
	cmd := exec.Command(p.opts.AudioPath, args...)
	cmd.SysProcAttr = backend.ProcAttr()
	if err := cmd.Start(); err != nil {
		p.logger.Warn().Err(err).Msg("audio output unavailable")
		return
	}
	go func() { _ = cmd.Wait() }()
	p.audio = cmd
}

func (p *ffmpegPipeline) stopAudio() {
	if p.audio == nil {
		return
	}
	if err := backend.KillProcess(p.audio); err != nil {
		p.logger.Debug().Err(err).Msg("kill audio")
	}
	p.audio = nil
}

func (p *ffmpegPipeline) kill() {
	p.stopAudio()
	if p.video == nil {
		return
	}

	p.busMu.Lock()
	p.generation++
	p.busMu.Unlock()

	if err := backend.KillProcess(p.video); err != nil {
		p.logger.Debug().Err(err).Msg("kill decoder")
	}
	<-p.readDone
	p.video = nil
}
