package streaming

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

func newHandler(t *testing.T, files map[string][]byte) *Handler {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, data := range files {
		if err := afero.WriteFile(fs, name, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewHandler(fs, zerolog.Nop())
}

func serve(h *Handler, path, rangeHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeFile(rec, req, path)
	return rec
}

func TestServeFile_CapsOpenRange(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, 2_500_000)
	h := newHandler(t, map[string][]byte{"/v/big.mp4": data})

	rec := serve(h, "/v/big.mp4", "bytes=0-")

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("want 206, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Length"); got != "1000000" {
		t.Fatalf("want Content-Length 1000000, got %s", got)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 0-999999/2500000" {
		t.Fatalf("unexpected Content-Range %s", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Fatalf("unexpected Accept-Ranges %s", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Fatalf("unexpected Content-Type %s", got)
	}
	if rec.Body.Len() != MaxChunk {
		t.Fatalf("want %d body bytes, got %d", MaxChunk, rec.Body.Len())
	}
}

func TestServeFile_RangeLengthMatchesContentRange(t *testing.T) {
	data := make([]byte, 2_500_000)
	for i := range data {
		data[i] = byte(i)
	}
	h := newHandler(t, map[string][]byte{"/a/song.wav": data})

	cases := []string{
		"bytes=0-",
		"bytes=10-20",
		"bytes=1999999-",
		"bytes=2400000-2600000",
		"bytes=-100",
		"bytes=5-9, 20-30",
	}
	for _, header := range cases {
		rec := serve(h, "/a/song.wav", header)
		if rec.Code != http.StatusPartialContent {
			t.Fatalf("%s: want 206, got %d", header, rec.Code)
		}
		length, _ := strconv.ParseInt(rec.Header().Get("Content-Length"), 10, 64)
		if length > MaxChunk {
			t.Fatalf("%s: chunk %d exceeds cap", header, length)
		}

		rng, err := ParseRange(header, int64(len(data)))
		if err != nil {
			t.Fatalf("%s: %v", header, err)
		}
		if rng.End != rng.Start+length-1 {
			t.Fatalf("%s: range %+v does not match length %d", header, rng, length)
		}
		if !bytes.Equal(rec.Body.Bytes(), data[rng.Start:rng.End+1]) {
			t.Fatalf("%s: body does not match the file slice", header)
		}
	}
}

func TestServeFile_ImagesAreWhole(t *testing.T) {
	png := []byte("\x89PNG fake image bytes")
	h := newHandler(t, map[string][]byte{"/p/a.PNG": png})

	rec := serve(h, "/p/a.PNG", "bytes=0-3")

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("unexpected Content-Type %s", got)
	}
	if got := rec.Header().Get("Content-Length"); got != strconv.Itoa(len(png)) {
		t.Fatalf("unexpected Content-Length %s", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if !bytes.Equal(body, png) {
		t.Fatalf("image body mismatch")
	}
}

func TestServeFile_Failures(t *testing.T) {
	h := newHandler(t, map[string][]byte{
		"/v/clip.webm": make([]byte, 100),
		"/v/notes.txt": []byte("hello"),
	})

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing range", "/v/clip.webm", "", http.StatusBadRequest},
		{"malformed range", "/v/clip.webm", "items=0-1", http.StatusBadRequest},
		{"start past end", "/v/clip.webm", "bytes=100-", http.StatusBadRequest},
		{"inverted range", "/v/clip.webm", "bytes=50-10", http.StatusBadRequest},
		{"unknown mime", "/v/notes.txt", "bytes=0-", http.StatusInternalServerError},
		{"missing file", "/v/gone.mp4", "bytes=0-", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, tc.path, tc.header)
			if rec.Code != tc.want {
				t.Fatalf("want %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	rng, err := ParseRange("bytes=-10", 100)
	if err != nil || rng != (Range{Start: 90, End: 99}) {
		t.Fatalf("suffix range: got %+v, %v", rng, err)
	}

	rng, err = ParseRange("bytes=0-5000", 100)
	if err != nil || rng != (Range{Start: 0, End: 99}) {
		t.Fatalf("end clamps to size: got %+v, %v", rng, err)
	}

	if _, err := ParseRange("bytes=0-", 0); !errors.Is(err, ErrRange) {
		t.Fatalf("empty file should not satisfy a range, got %v", err)
	}
	if _, err := ParseRange("bytes=abc-", 10); !errors.Is(err, ErrRange) {
		t.Fatalf("want ErrRange, got %v", err)
	}
	if _, err := ParseRange("bytes=-", 10); !errors.Is(err, ErrRange) {
		t.Fatalf("want ErrRange, got %v", err)
	}
}
