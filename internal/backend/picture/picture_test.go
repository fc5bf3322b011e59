package picture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend"
	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/backend/backendtest"
)

func writePNG(fs afero.Fs, path string, w, h int) {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0o644); err != nil {
		panic(err)
	}
}

func TestPicture(t *testing.T) {
	Convey("Picture backend", t, func() {
		fs := afero.NewMemMapFs()
		writePNG(fs, "/pics/wide.png", 200, 100)
		writePNG(fs, "/pics/tall.png", 50, 100)
		So(afero.WriteFile(fs, "/pics/broken.png", []byte("not a png"), 0o644), ShouldBeNil)

		b := New(fs, zerolog.Nop())
		surface := backendtest.NewSurface(400, 400)

		So(b.IsLoaded(), ShouldBeFalse)
		So(b.IsEnd(), ShouldBeFalse)

		Convey("Reload decodes and Present fits the image", func() {
			So(b.Reload("/pics/wide.png", nil), ShouldBeNil)
			So(b.IsLoaded(), ShouldBeTrue)
			So(b.IsEnd(), ShouldBeTrue)

			b.Present(surface, true)
			So(surface.Uploads, ShouldHaveLength, 1)
			So(surface.Draws, ShouldHaveLength, 1)
			So(surface.Draws[0].Rect, ShouldResemble, backend.Rect{X: 0, Y: 100, W: 400, H: 200})

			Convey("A second present reuses the texture", func() {
				b.Present(surface, true)
				So(surface.Uploads, ShouldHaveLength, 1)
				So(surface.Draws, ShouldHaveLength, 2)
			})

			Convey("Reloading the same path is a no-op", func() {
				So(b.Reload("/pics/wide.png", nil), ShouldBeNil)
				b.Present(surface, true)
				So(surface.Uploads, ShouldHaveLength, 1)
			})

			Convey("Switching paths uploads again", func() {
				So(b.Reload("/pics/tall.png", nil), ShouldBeNil)
				b.Present(surface, true)
				So(surface.Uploads, ShouldHaveLength, 2)
				So(surface.Draws[1].Rect, ShouldResemble, backend.Rect{X: 100, Y: 0, W: 200, H: 400})
			})
		})

		Convey("Broken files report a decode error and unload", func() {
			So(b.Reload("/pics/wide.png", nil), ShouldBeNil)
			err := b.Reload("/pics/broken.png", nil)
			So(errors.Is(err, backend.ErrDecode), ShouldBeTrue)
			So(b.IsLoaded(), ShouldBeFalse)
		})

		Convey("Close unloads", func() {
			So(b.Reload("/pics/wide.png", nil), ShouldBeNil)
			So(b.Close(), ShouldBeNil)
			So(b.IsLoaded(), ShouldBeFalse)
		})

		So(b.SupportedExtensions(), ShouldContain, "png")
	})
}
