package engine

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/vireo-cli/vireo/key"
	"github.com/vireo-cli/vireo/stream"
)

func TestReadinessBudget(t *testing.T) {
	Convey("Given a configured base budget of 10s", t, func() {
		viper.Set(key.PlayerReadinessTimeout, 10)

		Convey("A local stream gets the base budget", func() {
			s := &stream.Stream{URL: "/media/show.mkv"}
			So(ReadinessBudget(s), ShouldEqual, 10*time.Second)
		})

		Convey("A remote stream gets twice the base budget", func() {
			s := &stream.Stream{URL: "https://cdn.example/show.mkv"}
			So(ReadinessBudget(s), ShouldEqual, 20*time.Second)
		})

		Convey("A remote 2160p stream gets an additional half", func() {
			s := &stream.Stream{URL: "https://cdn.example/show.mkv", Quality: "2160p"}
			So(ReadinessBudget(s), ShouldEqual, 30*time.Second)
		})

		Convey("A nil stream falls back to the base budget", func() {
			So(ReadinessBudget(nil), ShouldEqual, 10*time.Second)
		})

		Convey("A zero configured budget falls back to the built-in default", func() {
			viper.Set(key.PlayerReadinessTimeout, 0)
			So(ReadinessBudget(nil), ShouldEqual, 15*time.Second)
		})
	})
}

func TestTypedErrors(t *testing.T) {
	Convey("Engine errors", t, func() {
		Convey("InitError carries the engine identity and unwraps its cause", func() {
			cause := errors.New("missing decoder session")
			err := &InitError{Engine: MPVEngine, Cause: cause}
			So(err.Error(), ShouldContainSubstring, "mpv")
			So(err.Error(), ShouldContainSubstring, "missing decoder session")
			So(errors.Unwrap(err), ShouldEqual, cause)
		})

		Convey("ReadyTimeoutError carries the engine identity and the budget", func() {
			err := &ReadyTimeoutError{Engine: NativeEngine, Timeout: 15 * time.Second}
			So(err.Error(), ShouldContainSubstring, "native")
			So(err.Error(), ShouldContainSubstring, "15s")
		})
	})
}

func TestSanitizeMediaTarget(t *testing.T) {
	Convey("sanitizeMediaTarget", t, func() {
		Convey("Accepts http and https URLs", func() {
			out, err := sanitizeMediaTarget("https://cdn.example/v.mkv")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "https://cdn.example/v.mkv")
		})

		Convey("Rejects empty input", func() {
			_, err := sanitizeMediaTarget("  ")
			So(err, ShouldNotBeNil)
		})

		Convey("Rejects flag-like input", func() {
			_, err := sanitizeMediaTarget("--vo=null")
			So(err, ShouldNotBeNil)
		})

		Convey("Rejects control characters", func() {
			_, err := sanitizeMediaTarget("https://cdn.example/v.mkv\n--vo=null")
			So(err, ShouldNotBeNil)
		})

		Convey("Rejects non-http schemes", func() {
			_, err := sanitizeMediaTarget("ftp://cdn.example/v.mkv")
			So(err, ShouldNotBeNil)
		})

		Convey("Cleans local paths", func() {
			out, err := sanitizeMediaTarget("/media//show/./ep1.mkv")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "/media/show/ep1.mkv")
		})
	})
}

func drainOne(events <-chan Event) (Event, bool) {
	select {
	case e, ok := <-events:
		return e, ok
	default:
		return Event{}, false
	}
}

func TestProcessEvent(t *testing.T) {
	Convey("Given an mpv adapter", t, func() {
		m := NewMPV()

		Convey("file-loaded closes the readiness gate and emits ready", func() {
			m.processEvent(`{"event":"file-loaded"}`, 0)

			select {
			case <-m.ready:
			default:
				t.Fatal("readiness gate still open")
			}

			e, ok := drainOne(m.events)
			So(ok, ShouldBeTrue)
			So(e.Kind, ShouldEqual, EventReady)
		})

		Convey("duration updates are stamped onto position samples", func() {
			dur := m.processEvent(`{"event":"property-change","name":"duration","data":7200.0}`, 0)
			So(dur, ShouldEqual, 7200.0)

			m.processEvent(`{"event":"property-change","name":"time-pos","data":42.5}`, dur)
			e, ok := drainOne(m.events)
			So(ok, ShouldBeTrue)
			So(e.Kind, ShouldEqual, EventPosition)
			So(e.Position, ShouldEqual, 42.5)
			So(e.Duration, ShouldEqual, 7200.0)
		})

		Convey("cache stalls map to buffering and recovery to playing", func() {
			m.processEvent(`{"event":"property-change","name":"paused-for-cache","data":true}`, 0)
			e, _ := drainOne(m.events)
			So(e.Kind, ShouldEqual, EventBuffering)

			m.processEvent(`{"event":"property-change","name":"paused-for-cache","data":false}`, 0)
			e, _ = drainOne(m.events)
			So(e.Kind, ShouldEqual, EventPlaying)
		})

		Convey("pause transitions map to paused and playing", func() {
			m.processEvent(`{"event":"property-change","name":"pause","data":true}`, 0)
			e, _ := drainOne(m.events)
			So(e.Kind, ShouldEqual, EventPaused)

			m.processEvent(`{"event":"property-change","name":"pause","data":false}`, 0)
			e, _ = drainOne(m.events)
			So(e.Kind, ShouldEqual, EventPlaying)
		})

		Convey("end-file with an error reason records a terminal failure", func() {
			m.processEvent(`{"event":"end-file","reason":"error","file_error":"unsupported codec"}`, 0)

			e, ok := drainOne(m.events)
			So(ok, ShouldBeTrue)
			So(e.Kind, ShouldEqual, EventFailed)
			So(e.Err, ShouldNotBeNil)
			So(e.Err.Error(), ShouldContainSubstring, "unsupported codec")
			So(m.terminalFailure(), ShouldNotBeNil)
		})

		Convey("end-file with reason eof is not a failure", func() {
			m.processEvent(`{"event":"end-file","reason":"eof"}`, 0)
			_, ok := drainOne(m.events)
			So(ok, ShouldBeFalse)
			So(m.terminalFailure(), ShouldBeNil)
		})

		Convey("eof-reached maps to ended", func() {
			m.processEvent(`{"event":"property-change","name":"eof-reached","data":true}`, 0)
			e, _ := drainOne(m.events)
			So(e.Kind, ShouldEqual, EventEnded)
		})

		Convey("unparseable lines are skipped", func() {
			So(func() { m.processEvent(`{not json`, 0) }, ShouldNotPanic)
			_, ok := drainOne(m.events)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestMPVTeardownIdempotent(t *testing.T) {
	Convey("Teardown on a never-prepared adapter", t, func() {
		m := NewMPV()

		So(m.Teardown(), ShouldBeNil)

		Convey("Closes the event channel", func() {
			_, open := <-m.events
			So(open, ShouldBeFalse)
		})

		Convey("Is idempotent", func() {
			So(m.Teardown(), ShouldBeNil)
			So(m.Teardown(), ShouldBeNil)
		})
	})
}

func TestNativeTeardownIdempotent(t *testing.T) {
	Convey("Native teardown without a launch", t, func() {
		n := NewNative()
		So(n.Teardown(), ShouldBeNil)
		So(n.Teardown(), ShouldBeNil)

		_, open := <-n.events
		So(open, ShouldBeFalse)
	})
}

func TestNew(t *testing.T) {
	Convey("New maps identities to adapters", t, func() {
		So(New(MPVEngine).ID(), ShouldEqual, MPVEngine)
		So(New(NativeEngine).ID(), ShouldEqual, NativeEngine)
		So(New("unknown").ID(), ShouldEqual, MPVEngine)
	})
}
