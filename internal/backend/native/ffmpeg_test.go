//go:build !windows

package native

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
)

// writeDecoder installs a stand-in ffmpeg that emits two 2x2 RGBA frames.
func writeDecoder(t *testing.T) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "ffmpeg")
	body := "#!/bin/sh\nhead -c 32 /dev/zero\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	return script
}

func probe(w, h int, d time.Duration) ProbeFunc {
	return func(context.Context, string) (*media.Metadata, error) {
		return &media.Metadata{Width: w, Height: h, Duration: d, VideoCodec: "h264"}, nil
	}
}

func popUntil(t *testing.T, p Pipeline, kind MessageKind) Message {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if msg, ok := p.PopMessage(); ok && msg.Kind == kind {
			return msg
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no message of kind %d", kind)
	return Message{}
}

func TestFFmpegPipeline_DecodesFramesUntilEOS(t *testing.T) {
	var frames atomic.Int32
	var size image.Point
	sink := func(f *image.RGBA) {
		size = f.Bounds().Size()
		frames.Add(1)
	}

	factory := NewFFmpegFactory(FFmpegOptions{
		FFmpegPath: writeDecoder(t),
		Probe:      probe(2, 2, 10*time.Second),
		Logger:     zerolog.Nop(),
	})
	p, err := factory("/v/clip.mkv", BuildGraph("/v/clip.mkv"), sink)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	defer p.Close()

	if p.Duration() != 10*time.Second {
		t.Fatalf("want probed duration, got %v", p.Duration())
	}
	if err := p.SetState(StatePlaying); err != nil {
		t.Fatalf("play: %v", err)
	}
	if msg := popUntil(t, p, MessageStateChanged); msg.State != StatePlaying {
		t.Fatalf("want playing, got %v", msg.State)
	}
	popUntil(t, p, MessageEOS)

	if n := frames.Load(); n != 2 {
		t.Fatalf("want 2 frames, got %d", n)
	}
	if size != image.Pt(2, 2) {
		t.Fatalf("want 2x2 frames, got %v", size)
	}
}

func TestFFmpegPipeline_SeekWhilePausedMovesOffset(t *testing.T) {
	factory := NewFFmpegFactory(FFmpegOptions{
		FFmpegPath: writeDecoder(t),
		Probe:      probe(4, 4, 30*time.Second),
		Logger:     zerolog.Nop(),
	})
	p, err := factory("/v/clip.mp4", BuildGraph("/v/clip.mp4"), nil)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	defer p.Close()

	if err := p.SetState(StatePaused); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := p.Seek(45 * time.Second); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if p.Position() != 30*time.Second {
		t.Fatalf("seek past the end should clamp, got %v", p.Position())
	}
	p.SetVolume(2)
	if p.Volume() != 1 {
		t.Fatalf("volume should clamp to 1, got %v", p.Volume())
	}
}

func TestFFmpegPipeline_Errors(t *testing.T) {
	missing := NewFFmpegFactory(FFmpegOptions{
		FFmpegPath: filepath.Join(t.TempDir(), "no-ffmpeg"),
		Probe:      probe(2, 2, time.Second),
	})
	if _, err := missing("/v/a.mp4", BuildGraph("/v/a.mp4"), nil); !errors.Is(err, backend.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}

	audioOnly := NewFFmpegFactory(FFmpegOptions{
		FFmpegPath: writeDecoder(t),
		Probe: func(context.Context, string) (*media.Metadata, error) {
			return &media.Metadata{AudioCodec: "aac"}, nil
		},
	})
	if _, err := audioOnly("/v/a.mp4", BuildGraph("/v/a.mp4"), nil); !errors.Is(err, backend.ErrDecode) {
		t.Fatalf("want ErrDecode, got %v", err)
	}
}
