package scrobble

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/vireo-cli/vireo/key"
	"github.com/vireo-cli/vireo/stream"
)

func TestNew(t *testing.T) {
	Convey("Given scrobbling is disabled", t, func() {
		viper.Set(key.ScrobbleEnable, false)

		Convey("New returns the no-op coordinator", func() {
			_, ok := New().(noop)
			So(ok, ShouldBeTrue)
		})
	})

	Convey("Given scrobbling is enabled", t, func() {
		viper.Set(key.ScrobbleEnable, true)
		viper.Set(key.ScrobbleEndpoint, "http://tracker.local/scrobble")

		Convey("New returns the remote coordinator with the configured endpoint", func() {
			coordinator, ok := New().(*remote)
			So(ok, ShouldBeTrue)
			So(coordinator.endpoint, ShouldEqual, "http://tracker.local/scrobble")
		})
	})
}

func TestNotifyGuards(t *testing.T) {
	Convey("Given a remote coordinator", t, func() {
		coordinator := &remote{endpoint: "http://tracker.local/scrobble"}

		Convey("A nil stream is ignored without panicking", func() {
			So(func() { coordinator.Start(nil, 0) }, ShouldNotPanic)
			So(func() { coordinator.Stop(nil, 0.5) }, ShouldNotPanic)
		})
	})

	Convey("Given a coordinator with no endpoint", t, func() {
		coordinator := &remote{}

		Convey("Notifications are dropped without panicking", func() {
			s := &stream.Stream{MediaID: "tt0000001"}
			So(func() { coordinator.Start(s, 0.5) }, ShouldNotPanic)
		})
	})
}

func TestMediaType(t *testing.T) {
	Convey("Media type classification", t, func() {
		Convey("A stream with an episode identifier is an episode", func() {
			So(mediaType(&stream.Stream{MediaID: "tt1", EpisodeID: "s01e02"}), ShouldEqual, "episode")
		})

		Convey("A stream without one is a movie", func() {
			So(mediaType(&stream.Stream{MediaID: "tt1"}), ShouldEqual, "movie")
		})
	})
}
