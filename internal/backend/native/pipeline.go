package native

import (
	"image"
	"time"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
)

type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "null"
	}
}

type MessageKind int

const (
	MessageError MessageKind = iota
	MessageEOS
	MessageStateChanged
)

// Message is one entry of a pipeline's bus.
type Message struct {
	Kind  MessageKind
	State State
	Err   error
}

// FrameSink receives decoded RGBA frames from the pipeline's own goroutine.
type FrameSink func(frame *image.RGBA)

// Pipeline is a playable media graph. Every method except the sink callback
// is called from the backend's pipeline thread only.
type Pipeline interface {
	SetState(s State) error
	Seek(position time.Duration) error
	SetVolume(volume float64)
	Position() time.Duration
	Duration() time.Duration
	Volume() float64
	// PopMessage returns the next bus message without blocking.
	PopMessage() (Message, bool)
	Close() error
}

type PipelineFactory func(path string, graph Graph, sink FrameSink) (Pipeline, error)

type Element struct {
	Name    string
	Factory string
}

// Graph describes the element chain for one file: the source and demuxer,
// then a video branch ending in an RGBA sink and an audio branch ending in
// the volume stage and the audio output.
type Graph struct {
	Elements []Element
	Links    [][2]string
}

func Demuxer(path string) string {
	switch media.Extension(path) {
	case "avi":
		return "avidemux"
	case "mkv", "webm":
		return "matroskademux"
	default:
		return "qtdemux"
	}
}

func BuildGraph(path string) Graph {
	elements := []Element{
		{Name: "source", Factory: "filesrc"},
		{Name: "demux", Factory: Demuxer(path)},
		{Name: "video_queue", Factory: "queue"},
		{Name: "video_decode", Factory: "decodebin"},
		{Name: "video_convert", Factory: "videoconvert"},
		{Name: "video_scale", Factory: "videoscale"},
		{Name: "video_sink", Factory: "appsink"},
		{Name: "audio_queue", Factory: "queue"},
		{Name: "audio_decode", Factory: "decodebin"},
		{Name: "audio_convert", Factory: "audioconvert"},
		{Name: "audio_resample", Factory: "audioresample"},
		{Name: "volume", Factory: "volume"},
		{Name: "audio_sink", Factory: "autoaudiosink"},
	}
	links := [][2]string{
		{"source", "demux"},
		{"demux", "video_queue"},
		{"video_queue", "video_decode"},
		{"video_decode", "video_convert"},
		{"video_convert", "video_scale"},
		{"video_scale", "video_sink"},
		{"demux", "audio_queue"},
		{"audio_queue", "audio_decode"},
		{"audio_decode", "audio_convert"},
		{"audio_convert", "audio_resample"},
		{"audio_resample", "volume"},
		{"volume", "audio_sink"},
	}
	return Graph{Elements: elements, Links: links}
}

func (g Graph) Element(name string) (Element, bool) {
	for _, e := range g.Elements {
		if e.Name == name {
			return e, true
		}
	}
	return Element{}, false
}
