// Package streaming serves playlist media with bounded HTTP range responses.
package streaming

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
)

// MaxChunk bounds the body of one partial response.
const MaxChunk = 1_000_000

type Handler struct {
	fs     afero.Fs
	logger zerolog.Logger
}

func NewHandler(fs afero.Fs, logger zerolog.Logger) *Handler {
	return &Handler{
		fs:     fs,
		logger: logger,
	}
}

// ServeFile answers images with the whole file and video or audio with one
// capped chunk of the first requested range.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) {
	contentType, err := media.ContentType(filePath)
	if err != nil {
		http.Error(w, "Unsupported media", http.StatusInternalServerError)
		return
	}

	file, err := h.fs.Open(filePath)
	if err != nil {
		h.logger.Debug().Err(err).Str("path", filePath).Msg("open media")
		http.Error(w, "Cannot open file", http.StatusInternalServerError)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		http.Error(w, "Cannot read file", http.StatusInternalServerError)
		return
	}
	size := stat.Size()

	switch {
	case media.IsImage(contentType):
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, file); err != nil {
			h.logger.Debug().Err(err).Str("path", filePath).Msg("image write aborted")
		}

	case media.IsStreamable(contentType):
		rng, err := ParseRange(r.Header.Get("Range"), size)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if _, err := file.Seek(rng.Start, io.SeekStart); err != nil {
			http.Error(w, "Cannot seek file", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.FormatInt(rng.Length(), 10))
		w.Header().Set("Content-Range", rng.ContentRange(size))
		w.Header().Set("Accept-Ranges", "bytes")
		w.WriteHeader(http.StatusPartialContent)
		if _, err := io.CopyN(w, file, rng.Length()); err != nil {
			h.logger.Debug().Err(err).Str("path", filePath).Msg("chunk write aborted")
		}

	default:
		http.Error(w, "Unsupported media", http.StatusInternalServerError)
	}
}

var ErrRange = errors.New("invalid range")

// Range is an inclusive byte span.
type Range struct {
	Start, End int64
}

func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

func (r Range) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange takes the first range of a "bytes=" header, validates it
// against size and caps it at MaxChunk bytes.
func ParseRange(header string, size int64) (Range, error) {
	if header == "" {
		return Range{}, fmt.Errorf("%w: missing Range header", ErrRange)
	}
	ranges, err := parseByteRanges(header)
	if err != nil {
		return Range{}, err
	}

	first := ranges[0]
	var start, end int64
	switch {
	case first.start < 0:
		// suffix form: the last n bytes
		if first.end <= 0 {
			return Range{}, fmt.Errorf("%w: empty suffix", ErrRange)
		}
		start = max(size-first.end, 0)
		end = size - 1
	default:
		start = first.start
		end = size - 1
		if first.end >= 0 {
			end = min(first.end, size-1)
		}
	}

	if size == 0 || start >= size || start > end {
		return Range{}, fmt.Errorf("%w: %q not satisfiable for %d bytes", ErrRange, header, size)
	}

	end = min(end, start+MaxChunk-1)
	return Range{Start: start, End: end}, nil
}

type byteRange struct {
	// start is -1 for suffix ranges, end is -1 when open.
	start, end int64
}

func parseByteRanges(header string) ([]byteRange, error) {
	list, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRange, header)
	}

	var ranges []byteRange
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		startText, endText, ok := strings.Cut(part, "-")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrRange, part)
		}

		s := byteRange{start: -1, end: -1}
		if startText != "" {
			v, err := strconv.ParseInt(startText, 10, 64)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("%w: %q", ErrRange, part)
			}
			s.start = v
		}
		if endText != "" {
			v, err := strconv.ParseInt(endText, 10, 64)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("%w: %q", ErrRange, part)
			}
			s.end = v
		}
		if s.start < 0 && s.end < 0 || s.start >= 0 && s.end >= 0 && s.end < s.start {
			return nil, fmt.Errorf("%w: %q", ErrRange, part)
		}
		ranges = append(ranges, s)
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrRange, header)
	}
	return ranges, nil
}
