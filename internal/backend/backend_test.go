package backend

import (
	"errors"
	"image"
	"net"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFit(t *testing.T) {
	Convey("FitRect", t, func() {
		Convey("Wide content is letterboxed", func() {
			r := FitRect(image.Pt(200, 100), image.Pt(100, 100))
			So(r, ShouldResemble, Rect{X: 0, Y: 25, W: 100, H: 50})
		})

		Convey("Tall content is pillarboxed and upscaled", func() {
			r := FitRect(image.Pt(10, 20), image.Pt(100, 100))
			So(r, ShouldResemble, Rect{X: 25, Y: 0, W: 50, H: 100})
		})

		Convey("Empty content has no scale", func() {
			So(FitScale(image.Point{}, image.Pt(10, 10)), ShouldEqual, 0)
		})
	})
}

func TestListen(t *testing.T) {
	Convey("Port search", t, func() {
		first, err := Listen("127.0.0.1", PortFrom, PortTo)
		So(err, ShouldBeNil)
		defer first.Close()
		taken := first.Addr().(*net.TCPAddr).Port

		Convey("Skips ports that are taken", func() {
			second, err := Listen("127.0.0.1", taken, PortTo)
			So(err, ShouldBeNil)
			defer second.Close()
			So(second.Addr().(*net.TCPAddr).Port, ShouldBeGreaterThan, taken)
		})

		Convey("Fails when the range is exhausted", func() {
			_, err := Listen("127.0.0.1", taken, taken)
			So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
		})

		Convey("FindAvailablePort releases the port", func() {
			port, err := FindAvailablePort("127.0.0.1", PortFrom, PortTo)
			So(err, ShouldBeNil)
			So(port, ShouldBeBetweenOrEqual, PortFrom, PortTo)
		})
	})
}
