package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Metadata is what the players need to know about a media file before
// opening it.
type Metadata struct {
	Duration time.Duration
	// Width and Height are the displayed size, rotation applied.
	Width, Height int
	FrameRate     float64
	VideoCodec    string
	AudioCodec    string
	AudioChannels int
	Bitrate       int64
	Size          int64
}

func (m *Metadata) HasAudio() bool {
	return m.AudioCodec != ""
}

func (m *Metadata) HasVideo() bool {
	return m.VideoCodec != "" && m.Width > 0 && m.Height > 0
}

func (m *Metadata) durationOrZero() time.Duration {
	if m == nil {
		return 0
	}
	return m.Duration
}

// MetadataExtractor probes files with ffprobe.
type MetadataExtractor struct {
	ffprobePath string
	logger      zerolog.Logger
}

func NewMetadataExtractor(logger zerolog.Logger) *MetadataExtractor {
	ffprobePath := "ffprobe"
	if path, err := exec.LookPath(ffprobePath); err == nil {
		ffprobePath = path
	}
	return &MetadataExtractor{
		ffprobePath: ffprobePath,
		logger:      logger.With().Str("component", "ffprobe").Logger(),
	}
}

func (m *MetadataExtractor) IsAvailable() bool {
	_, err := exec.LookPath(m.ffprobePath)
	return err == nil
}

// Extract probes path. A file ffprobe cannot read is reported as ErrDecode.
func (m *MetadataExtractor) Extract(ctx context.Context, path string) (*Metadata, error) {
	out, err := exec.CommandContext(ctx, m.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	).Output()
	if err != nil {
		m.logger.Debug().Err(err).Str("path", path).Msg("probe failed")
		return nil, fmt.Errorf("%w: probe %s: %v", ErrDecode, path, err)
	}

	meta, err := m.parseOutput(out)
	if err != nil {
		return nil, fmt.Errorf("%w: probe %s: %v", ErrDecode, path, err)
	}
	return meta, nil
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
		Size     string `json:"size"`
	} `json:"format"`
}

type probeStream struct {
	CodecType    string            `json:"codec_type"`
	CodecName    string            `json:"codec_name"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	Channels     int               `json:"channels"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	Tags         map[string]string `json:"tags"`
	SideData     []struct {
		Rotation int `json:"rotation"`
	} `json:"side_data_list"`
}

// rotation is the display rotation in degrees, from the side data or the
// older rotate tag.
func (s probeStream) rotation() int {
	for _, sd := range s.SideData {
		if sd.Rotation != 0 {
			return sd.Rotation
		}
	}
	r, _ := strconv.Atoi(s.Tags["rotate"])
	return r
}

func (m *MetadataExtractor) parseOutput(out []byte) (*Metadata, error) {
	var probe probeResult
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, err
	}

	meta := &Metadata{
		Duration: time.Duration(parseFloat(probe.Format.Duration) * float64(time.Second)),
		Bitrate:  parseInt(probe.Format.BitRate),
		Size:     parseInt(probe.Format.Size),
	}

	if video, ok := lo.Find(probe.Streams, func(s probeStream) bool { return s.CodecType == "video" }); ok {
		meta.VideoCodec = strings.ToUpper(video.CodecName)
		meta.Width, meta.Height = video.Width, video.Height
		if r := video.rotation(); r%180 != 0 {
			meta.Width, meta.Height = meta.Height, meta.Width
		}
		meta.FrameRate = parseRate(video.AvgFrameRate)
	}
	if audio, ok := lo.Find(probe.Streams, func(s probeStream) bool { return s.CodecType == "audio" }); ok {
		meta.AudioCodec = strings.ToUpper(audio.CodecName)
		meta.AudioChannels = audio.Channels
	}

	return meta, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

// parseRate reads ffprobe's "num/den" rates; 0/0 and garbage give 0.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseFloat(s)
	}
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return parseFloat(num) / d
}
