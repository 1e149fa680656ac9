package util

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSanitizeFilename(t *testing.T) {
	Convey("SanitizeFilename", t, func() {
		Convey("Should replace unsafe characters", func() {
			So(SanitizeFilename(`some/unsafe: name?`), ShouldEqual, "some_unsafe_name")
		})

		Convey("Should collapse repeated separators", func() {
			So(SanitizeFilename("a   b"), ShouldEqual, "a_b")
		})

		Convey("Should trim leading and trailing separators", func() {
			So(SanitizeFilename("___x___"), ShouldEqual, "x")
		})
	})
}

func TestQuantify(t *testing.T) {
	Convey("Quantify", t, func() {
		So(Quantify(1, "engine", "engines"), ShouldEqual, "1 engine")
		So(Quantify(2, "engine", "engines"), ShouldEqual, "2 engines")
		So(Quantify(0, "engine", "engines"), ShouldEqual, "0 engines")
	})
}

func TestFormatDuration(t *testing.T) {
	Convey("FormatDuration", t, func() {
		So(FormatDuration(0), ShouldEqual, "0:00")
		So(FormatDuration(65), ShouldEqual, "1:05")
		So(FormatDuration(3600), ShouldEqual, "1:00:00")
		So(FormatDuration(7325), ShouldEqual, "2:02:05")
		So(FormatDuration(-5), ShouldEqual, "0:00")
	})
}

func TestClamp(t *testing.T) {
	Convey("Clamp", t, func() {
		So(Clamp(5, 0, 10), ShouldEqual, 5)
		So(Clamp(-1, 0, 10), ShouldEqual, 0)
		So(Clamp(11, 0, 10), ShouldEqual, 10)
		So(Clamp(1.5, 0.0, 1.0), ShouldEqual, 1.0)
	})
}

func TestMinMax(t *testing.T) {
	Convey("Min and Max", t, func() {
		So(Max(1, 3, 2), ShouldEqual, 3)
		So(Min(1, 3, 2), ShouldEqual, 1)
		So(Max[int](), ShouldEqual, 0)
	})
}
