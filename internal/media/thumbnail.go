package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	xdraw "golang.org/x/image/draw"
)

var ErrNoThumbnail = errors.New("no thumbnail for this media type")

type ThumbnailGenerator struct {
	fs         afero.Fs
	ffmpegPath string
	width      int
	logger     zerolog.Logger
}

func NewThumbnailGenerator(fs afero.Fs, width int, logger zerolog.Logger) *ThumbnailGenerator {
	ffmpegPath := "ffmpeg"
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		ffmpegPath = path
	}

	return &ThumbnailGenerator{
		fs:         fs,
		ffmpegPath: ffmpegPath,
		width:      width,
		logger:     logger,
	}
}

func (t *ThumbnailGenerator) IsAvailable() bool {
	_, err := exec.LookPath(t.ffmpegPath)
	return err == nil
}

// Generate returns a JPEG preview of path. Images are scaled in process,
// videos go through ffmpeg.
func (t *ThumbnailGenerator) Generate(ctx context.Context, path string, duration time.Duration) ([]byte, error) {
	contentType, err := ContentType(path)
	if err != nil {
		return nil, err
	}

	switch {
	case IsImage(contentType):
		return t.fromImage(path)
	case strings.HasPrefix(contentType, "audio/"):
		return nil, ErrNoThumbnail
	default:
		return t.fromVideo(ctx, path, duration)
	}
}

func (t *ThumbnailGenerator) fromImage(path string) ([]byte, error) {
	src, err := DecodeImage(t.fs, path)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > t.width {
		h = h * t.width / w
		w = t.width
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *ThumbnailGenerator) fromVideo(ctx context.Context, path string, duration time.Duration) ([]byte, error) {
	// 10% in, capped at five seconds
	timestamp := 5 * time.Second
	if duration > 0 {
		if tenPercent := duration / 10; tenPercent < timestamp {
			timestamp = tenPercent
		}
	}

	args := []string{
		"-ss", fmt.Sprintf("%.3f", timestamp.Seconds()),
		"-i", path,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:-1", t.width),
		"-q:v", "2",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.logger.Debug().
			Err(err).
			Str("video", path).
			Str("output", stderr.String()).
			Msg("ffmpeg thumbnail generation failed")
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame for %s", path)
	}

	t.logger.Debug().
		Str("video", path).
		Int("size", stdout.Len()).
		Msg("thumbnail generated")

	return stdout.Bytes(), nil
}
