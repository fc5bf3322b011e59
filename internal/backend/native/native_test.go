package native

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend/backendtest"
)

type fakePipeline struct {
	mu       sync.Mutex
	state    State
	position time.Duration
	duration time.Duration
	volume   float64
	bus      []Message
	seeks    []time.Duration
	closed   bool
	sink     FrameSink
	playErr  error
}

func (f *fakePipeline) SetState(s State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s == StatePlaying && f.playErr != nil {
		return f.playErr
	}
	f.state = s
	f.bus = append(f.bus, Message{Kind: MessageStateChanged, State: s})
	return nil
}

func (f *fakePipeline) Seek(pos time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, pos)
	f.position = pos
	return nil
}

func (f *fakePipeline) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
}

func (f *fakePipeline) Position() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

func (f *fakePipeline) Duration() time.Duration { return f.duration }

func (f *fakePipeline) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

func (f *fakePipeline) PopMessage() (Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bus) == 0 {
		return Message{}, false
	}
	m := f.bus[0]
	f.bus = f.bus[1:]
	return m, true
}

func (f *fakePipeline) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakePipeline) post(m Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bus = append(f.bus, m)
}

func (f *fakePipeline) recordedSeeks() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.seeks...)
}

func (f *fakePipeline) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestGraph(t *testing.T) {
	Convey("Demuxer follows the container extension", t, func() {
		So(Demuxer("/v/a.avi"), ShouldEqual, "avidemux")
		So(Demuxer("/v/a.MKV"), ShouldEqual, "matroskademux")
		So(Demuxer("/v/a.webm"), ShouldEqual, "matroskademux")
		So(Demuxer("/v/a.mp4"), ShouldEqual, "qtdemux")
		So(Demuxer("/v/a.mov"), ShouldEqual, "qtdemux")
	})

	Convey("BuildGraph links both branches to the demuxer", t, func() {
		g := BuildGraph("/v/a.mkv")
		demux, ok := g.Element("demux")
		So(ok, ShouldBeTrue)
		So(demux.Factory, ShouldEqual, "matroskademux")

		sink, ok := g.Element("video_sink")
		So(ok, ShouldBeTrue)
		So(sink.Factory, ShouldEqual, "appsink")

		So(g.Links, ShouldContain, [2]string{"demux", "video_queue"})
		So(g.Links, ShouldContain, [2]string{"demux", "audio_queue"})
		So(g.Links, ShouldContain, [2]string{"volume", "audio_sink"})

		_, ok = g.Element("missing")
		So(ok, ShouldBeFalse)
	})
}

func TestNative(t *testing.T) {
	Convey("Native backend", t, func() {
		fake := &fakePipeline{duration: 60 * time.Second, volume: 1}
		var gotGraph Graph
		factory := func(path string, g Graph, sink FrameSink) (Pipeline, error) {
			gotGraph = g
			fake.sink = sink
			return fake, nil
		}
		surface := backendtest.NewSurface(320, 240)
		b := New(factory, surface, zerolog.Nop())
		defer b.Close()

		So(b.IsLoaded(), ShouldBeFalse)
		So(b.Reload("/v/clip.avi", nil), ShouldBeNil)
		So(b.IsLoaded(), ShouldBeTrue)
		demux, _ := gotGraph.Element("demux")
		So(demux.Factory, ShouldEqual, "avidemux")

		So(waitFor(func() bool { return b.Snapshot().State == StatePlaying }), ShouldBeTrue)
		So(b.IsEnd(), ShouldBeFalse)

		Convey("Frames reach the surface fitted to it", func() {
			fake.sink(image.NewRGBA(image.Rect(0, 0, 160, 60)))
			So(waitFor(func() bool { return b.Snapshot().Frame != nil }), ShouldBeTrue)

			b.Present(surface, false)
			So(surface.Uploads, ShouldHaveLength, 1)
			So(surface.Draws, ShouldHaveLength, 1)
			So(surface.Draws[0].Rect, ShouldResemble, backend.Rect{X: 0, Y: 60, W: 320, H: 120})
			So(surface.Controls[0].Playing, ShouldBeTrue)
			So(surface.Controls[0].Duration, ShouldEqual, 60*time.Second)
			So(surface.RepaintCount(), ShouldBeGreaterThan, 0)

			b.Present(surface, false)
			So(surface.Uploads, ShouldHaveLength, 1)
		})

		Convey("Fast forward clamps at the duration and rewind at zero", func() {
			fake.Seek(58 * time.Second)
			So(waitFor(func() bool { return b.Snapshot().Position == 58*time.Second }), ShouldBeTrue)
			b.FastForward()
			So(waitFor(func() bool { return b.Snapshot().Position == 60*time.Second }), ShouldBeTrue)

			fake.Seek(2 * time.Second)
			So(waitFor(func() bool { return b.Snapshot().Position == 2*time.Second }), ShouldBeTrue)
			b.Rewind()
			So(waitFor(func() bool { return b.Snapshot().Position == 0 }), ShouldBeTrue)

			seeks := fake.recordedSeeks()
			So(seeks, ShouldContain, 60*time.Second)
			So(seeks[len(seeks)-1], ShouldEqual, time.Duration(0))
		})

		Convey("Space pauses a playing video", func() {
			surface.Pressed[backend.KeySpace] = true
			b.Present(surface, true)
			So(waitFor(func() bool { return b.Snapshot().State == StatePaused }), ShouldBeTrue)
			So(b.IsEnd(), ShouldBeFalse)
		})

		Convey("Volume keys stay within range", func() {
			surface.Pressed[backend.KeyVolumeUp] = true
			b.Present(surface, true)
			So(waitFor(func() bool { return b.Snapshot().Volume == 1 }), ShouldBeTrue)
		})

		Convey("End of stream ends the item", func() {
			fake.post(Message{Kind: MessageEOS})
			So(waitFor(b.IsEnd), ShouldBeTrue)
			So(waitFor(fake.isClosed), ShouldBeTrue)
		})

		Convey("A pipeline error stops playback", func() {
			fake.post(Message{Kind: MessageError, Err: errors.New("decoder exploded")})
			So(waitFor(func() bool { return b.Snapshot().State == StateNull }), ShouldBeTrue)
			So(b.IsEnd(), ShouldBeTrue)
			So(b.Snapshot().Failed, ShouldBeTrue)
		})

		Convey("Close releases the pipeline", func() {
			So(b.Close(), ShouldBeNil)
			So(b.IsLoaded(), ShouldBeFalse)
			So(fake.isClosed(), ShouldBeTrue)
		})
	})

	Convey("A pipeline that fails before playing still ends", t, func() {
		Convey("when it refuses to start", func() {
			fake := &fakePipeline{volume: 1, playErr: errors.New("no decoder")}
			b := New(func(string, Graph, FrameSink) (Pipeline, error) { return fake, nil }, nil, zerolog.Nop())
			defer b.Close()

			So(b.Reload("/v/clip.mp4", nil), ShouldBeNil)
			So(waitFor(b.IsEnd), ShouldBeTrue)
			So(b.Snapshot().Played, ShouldBeFalse)
			So(waitFor(fake.isClosed), ShouldBeTrue)
		})

		Convey("when its bus reports an error first", func() {
			fake := &fakePipeline{volume: 1}
			fake.post(Message{Kind: MessageError, Err: errors.New("bad header")})
			b := New(func(string, Graph, FrameSink) (Pipeline, error) { return fake, nil }, nil, zerolog.Nop())
			defer b.Close()

			So(b.Reload("/v/clip.mp4", nil), ShouldBeNil)
			So(waitFor(b.IsEnd), ShouldBeTrue)
			So(b.Snapshot().Played, ShouldBeFalse)
		})
	})

	Convey("A factory failure leaves nothing loaded", t, func() {
		factory := func(string, Graph, FrameSink) (Pipeline, error) {
			return nil, backend.ErrUnavailable
		}
		b := New(factory, nil, zerolog.Nop())
		So(errors.Is(b.Reload("/v/clip.mp4", nil), backend.ErrUnavailable), ShouldBeTrue)
		So(b.IsLoaded(), ShouldBeFalse)
		So(b.IsEnd(), ShouldBeFalse)
	})
}
