package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/spf13/viper"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/vireo-cli/vireo/engine"
	"github.com/vireo-cli/vireo/filesystem"
	"github.com/vireo-cli/vireo/history"
	"github.com/vireo-cli/vireo/key"
	"github.com/vireo-cli/vireo/stream"
)

func init() {
	filesystem.SetMemMapFs()
	viper.Set(key.PlayerEngineStrategy, "compatibility-first")
	viper.Set(key.PlayerReadinessTimeout, 1)
	viper.Set(key.ProgressSaveOnPlay, true)
	viper.Set(key.ProgressSaveInterval, 1)
	viper.Set(key.ProgressCompletionThreshold, 0.9)
	viper.Set(key.SubtitlesAutoSearch, false)
	viper.Set(key.ScrobbleEnable, false)
}

// fakeEngine is a scriptable adapter for exercising the orchestrator loop.
type fakeEngine struct {
	mu sync.Mutex

	id         engine.ID
	prepareErr error
	readyErr   error
	blockReady bool
	playErr    error
	audio      []engine.TrackOption
	subtitles  []engine.TrackOption

	events    chan engine.Event
	eventsOne sync.Once

	calls     []string
	seeks     []float64
	chapters  []engine.Chapter
	teardowns int
}

func newFake(id engine.ID) *fakeEngine {
	return &fakeEngine{id: id, events: make(chan engine.Event, 16)}
}

func (f *fakeEngine) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeEngine) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeEngine) ID() engine.ID { return f.id }

func (f *fakeEngine) Prepare(ctx context.Context, s *stream.Stream) error {
	f.record("prepare")
	if f.prepareErr != nil {
		return &engine.InitError{Engine: f.id, Cause: f.prepareErr}
	}
	return nil
}

func (f *fakeEngine) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	f.record("wait")
	if f.blockReady {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(timeout):
			return &engine.ReadyTimeoutError{Engine: f.id, Timeout: timeout}
		}
	}
	return f.readyErr
}

func (f *fakeEngine) Play() error {
	f.record("play")
	return f.playErr
}

func (f *fakeEngine) Pause() error {
	f.record("pause")
	return nil
}

func (f *fakeEngine) Seek(seconds float64) error {
	f.record("seek")
	f.mu.Lock()
	f.seeks = append(f.seeks, seconds)
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) SetRate(rate float64) error { f.record("rate"); return nil }

func (f *fakeEngine) Tracks(ctx context.Context) ([]engine.TrackOption, []engine.TrackOption, error) {
	f.record("tracks")
	return f.audio, f.subtitles, nil
}

func (f *fakeEngine) SelectAudio(handle string) error    { f.record("audio:" + handle); return nil }
func (f *fakeEngine) SelectSubtitle(handle string) error { f.record("sub:" + handle); return nil }
func (f *fakeEngine) LoadSubtitleFile(path string) error { f.record("subfile"); return nil }
func (f *fakeEngine) SetChapters(chapters []engine.Chapter) error {
	f.mu.Lock()
	f.chapters = append([]engine.Chapter(nil), chapters...)
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Events() <-chan engine.Event { return f.events }

func (f *fakeEngine) Teardown() error {
	f.mu.Lock()
	f.teardowns++
	f.mu.Unlock()
	f.eventsOne.Do(func() { close(f.events) })
	return nil
}

func (f *fakeEngine) emit(ev engine.Event) { f.events <- ev }

// progressStore is an in-memory stand-in for the history package.
type progressStore struct {
	mu      sync.Mutex
	record  mo.Option[history.Record]
	writes  []history.Record
	fetches int
}

func (p *progressStore) fetch(mediaID, episodeID string) (mo.Option[history.Record], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetches++
	return p.record, nil
}

func (p *progressStore) write(record history.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, record)
	return nil
}

func (p *progressStore) writeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.writes)
}

// fakeScrobbler records the progress values reported on lifecycle transitions.
type fakeScrobbler struct {
	mu     sync.Mutex
	starts []float64
	stops  []float64
}

func (f *fakeScrobbler) Start(_ *stream.Stream, progress float64) {
	f.mu.Lock()
	f.starts = append(f.starts, progress)
	f.mu.Unlock()
}

func (f *fakeScrobbler) Pause(*stream.Stream, float64)  {}
func (f *fakeScrobbler) Resume(*stream.Stream, float64) {}

func (f *fakeScrobbler) Stop(_ *stream.Stream, progress float64) {
	f.mu.Lock()
	f.stops = append(f.stops, progress)
	f.mu.Unlock()
}

func (f *fakeScrobbler) startLog() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.starts...)
}

func sampleStream() *stream.Stream {
	return &stream.Stream{
		ID:        "s1",
		URL:       "https://cdn.example.com/expedition.mkv",
		Quality:   "1080p",
		Codec:     "h264",
		Container: "mkv",
		Audio:     "aac",
		Filename:  "The.Expedition.2021.1080p.mkv",
		Service:   "realdebrid",
		MediaID:   "tt0000001",
		Title:     "The Expedition",
	}
}

// harness wires an orchestrator to scriptable engines and an in-memory store.
func harness(store *progressStore, engines map[engine.ID]*fakeEngine) *Orchestrator {
	if store == nil {
		store = &progressStore{record: mo.None[history.Record]()}
	}
	return New(Options{
		Queue: stream.NewQueue([]*stream.Stream{sampleStream()}),
		NewEngine: func(id engine.ID) engine.Engine {
			if eng, ok := engines[id]; ok {
				return eng
			}
			return newFake(id)
		},
		FetchProgress: store.fetch,
		WriteProgress: store.write,
	})
}

func eventually(condition func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}

func TestPrepareSuccess(t *testing.T) {
	Convey("Given the first engine succeeds", t, func() {
		mpv := newFake(engine.MPVEngine)
		native := newFake(engine.NativeEngine)
		o := harness(nil, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv, engine.NativeEngine: native})
		defer o.Teardown()

		Convey("When playback is prepared", func() {
			err := o.PreparePlayback(context.Background(), sampleStream())

			Convey("The machine reaches playing on that engine", func() {
				So(err, ShouldBeNil)
				So(o.State(), ShouldEqual, StatePlaying)
				So(o.Snapshot().Engine, ShouldEqual, engine.MPVEngine)
			})

			Convey("Later engines in the order are never attempted", func() {
				So(native.callLog(), ShouldBeEmpty)
			})

			Convey("No failure diagnostic is kept", func() {
				So(o.Diagnostic(), ShouldBeEmpty)
			})
		})
	})
}

func TestPrepareFallback(t *testing.T) {
	Convey("Given the first engine fails to initialize and the second succeeds", t, func() {
		mpv := newFake(engine.MPVEngine)
		mpv.prepareErr = errors.New("no decoder session")
		native := newFake(engine.NativeEngine)
		o := harness(nil, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv, engine.NativeEngine: native})
		defer o.Teardown()

		Convey("When playback is prepared", func() {
			err := o.PreparePlayback(context.Background(), sampleStream())

			Convey("The second engine is armed", func() {
				So(err, ShouldBeNil)
				So(o.State(), ShouldEqual, StatePlaying)
				So(o.Snapshot().Engine, ShouldEqual, engine.NativeEngine)
			})

			Convey("The failed adapter was torn down before the next attempt", func() {
				mpv.mu.Lock()
				defer mpv.mu.Unlock()
				So(mpv.teardowns, ShouldBeGreaterThanOrEqualTo, 1)
			})

			Convey("The first failure is retained in the attempt log", func() {
				attempts := o.Attempts()
				So(attempts, ShouldHaveLength, 2)
				So(attempts[0].Engine, ShouldEqual, engine.MPVEngine)
				So(attempts[0].Outcome, ShouldEqual, OutcomeFailure)
				So(attempts[1].Outcome, ShouldEqual, OutcomeSuccess)
			})
		})
	})
}

func TestPrepareExhaustion(t *testing.T) {
	Convey("Given every engine fails", t, func() {
		mpv := newFake(engine.MPVEngine)
		mpv.prepareErr = errors.New("no decoder session")
		native := newFake(engine.NativeEngine)
		native.readyErr = &engine.ReadyTimeoutError{Engine: engine.NativeEngine, Timeout: time.Second}
		o := harness(nil, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv, engine.NativeEngine: native})

		Convey("When playback is prepared", func() {
			err := o.PreparePlayback(context.Background(), sampleStream())

			Convey("The machine reaches failed", func() {
				So(err, ShouldNotBeNil)
				So(o.State(), ShouldEqual, StateFailed)
			})

			Convey("The diagnostic holds one entry per engine, in attempt order", func() {
				diagnostic := o.Diagnostic()
				So(diagnostic, ShouldContainSubstring, "mpv")
				So(diagnostic, ShouldContainSubstring, "no decoder session")
				So(diagnostic, ShouldContainSubstring, "native")
				So(diagnostic, ShouldContainSubstring, "not ready after")

				attempts := o.Attempts()
				So(attempts, ShouldHaveLength, 2)
				So(attempts[0].Engine, ShouldEqual, engine.MPVEngine)
				So(attempts[1].Engine, ShouldEqual, engine.NativeEngine)
			})
		})
	})
}

func TestResumeTarget(t *testing.T) {
	Convey("Given a prior progress record halfway through the title", t, func() {
		store := &progressStore{record: mo.Some(history.Record{
			MediaID: "tt0000001", Position: 3600, Duration: 7200,
		})}
		mpv := newFake(engine.MPVEngine)
		o := harness(store, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv})
		defer o.Teardown()

		Convey("When playback is prepared", func() {
			err := o.PreparePlayback(context.Background(), sampleStream())

			Convey("Exactly one seek to the stored position happens before play", func() {
				So(err, ShouldBeNil)
				So(mpv.seeks, ShouldResemble, []float64{3600})

				calls := mpv.callLog()
				seekAt, playAt := -1, -1
				for i, call := range calls {
					switch call {
					case "seek":
						seekAt = i
					case "play":
						playAt = i
					}
				}
				So(seekAt, ShouldBeGreaterThanOrEqualTo, 0)
				So(seekAt, ShouldBeLessThan, playAt)
			})

			Convey("The store was consulted once", func() {
				store.mu.Lock()
				defer store.mu.Unlock()
				So(store.fetches, ShouldEqual, 1)
			})
		})
	})

	Convey("Given the prior record is already completed", t, func() {
		store := &progressStore{record: mo.Some(history.Record{
			MediaID: "tt0000001", Position: 7000, Duration: 7200, Completed: true,
		})}
		mpv := newFake(engine.MPVEngine)
		o := harness(store, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv})
		defer o.Teardown()

		Convey("Playback starts at zero with no seek", func() {
			So(o.PreparePlayback(context.Background(), sampleStream()), ShouldBeNil)
			So(mpv.seeks, ShouldBeEmpty)
		})
	})

	Convey("Given no prior record exists", t, func() {
		mpv := newFake(engine.MPVEngine)
		o := harness(nil, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv})
		defer o.Teardown()

		Convey("Playback starts at zero with no seek", func() {
			So(o.PreparePlayback(context.Background(), sampleStream()), ShouldBeNil)
			So(mpv.seeks, ShouldBeEmpty)
		})
	})
}

func TestScrobbleStartProgress(t *testing.T) {
	armWith := func(store *progressStore) *fakeScrobbler {
		scrobbler := &fakeScrobbler{}
		mpv := newFake(engine.MPVEngine)
		o := New(Options{
			Queue:     stream.NewQueue([]*stream.Stream{sampleStream()}),
			Scrobbler: scrobbler,
			NewEngine: func(id engine.ID) engine.Engine {
				return mpv
			},
			FetchProgress: store.fetch,
			WriteProgress: store.write,
		})
		defer o.Teardown()

		So(o.PreparePlayback(context.Background(), sampleStream()), ShouldBeNil)
		return scrobbler
	}

	Convey("Given a session resumed at the halfway point", t, func() {
		store := &progressStore{record: mo.Some(history.Record{
			MediaID: "tt0000001", Position: 3600, Duration: 7200,
		})}

		Convey("The start notification carries the resume fraction", func() {
			So(armWith(store).startLog(), ShouldResemble, []float64{0.5})
		})
	})

	Convey("Given a fresh viewing", t, func() {
		store := &progressStore{record: mo.None[history.Record]()}

		Convey("The start notification reports zero progress", func() {
			So(armWith(store).startLog(), ShouldResemble, []float64{0})
		})
	})
}

func TestCancellation(t *testing.T) {
	Convey("Given an engine that never becomes ready", t, func() {
		mpv := newFake(engine.MPVEngine)
		mpv.blockReady = true
		native := newFake(engine.NativeEngine)
		native.blockReady = true
		o := harness(nil, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv, engine.NativeEngine: native})

		Convey("When the prepare call is cancelled mid-attempt", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- o.PreparePlayback(ctx, sampleStream()) }()

			So(eventually(func() bool { return len(mpv.callLog()) >= 2 }), ShouldBeTrue)
			cancel()
			err := <-done

			Convey("The call unwinds with the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})

			Convey("The state machine never reaches failed", func() {
				So(o.State(), ShouldEqual, StateIdle)
			})

			Convey("The in-flight adapter was torn down", func() {
				mpv.mu.Lock()
				defer mpv.mu.Unlock()
				So(mpv.teardowns, ShouldBeGreaterThanOrEqualTo, 1)
			})
		})
	})
}

func TestFreshSession(t *testing.T) {
	Convey("Given a session with discovered tracks and a live position", t, func() {
		first := newFake(engine.MPVEngine)
		first.audio = []engine.TrackOption{{Handle: "1", Name: "Track 1", Language: "en"}}
		first.subtitles = []engine.TrackOption{{Handle: "2", Name: "Track 2", Language: "de"}}
		o := harness(nil, map[engine.ID]*fakeEngine{engine.MPVEngine: first})
		defer o.Teardown()

		So(o.PreparePlayback(context.Background(), sampleStream()), ShouldBeNil)
		first.emit(engine.Event{Kind: engine.EventPosition, Position: 120, Duration: 7200})
		So(eventually(func() bool { return o.Snapshot().Position == 120 }), ShouldBeTrue)

		Convey("When a different stream replaces it", func() {
			second := sampleStream()
			second.ID = "s2"
			second.Filename = "The.Expedition.2021.720p.mkv"

			replacement := newFake(engine.MPVEngine)
			o.newEngine = func(id engine.ID) engine.Engine { return replacement }
			So(o.PreparePlayback(context.Background(), second), ShouldBeNil)

			Convey("The session is rebuilt wholesale", func() {
				snapshot := o.Snapshot()
				So(snapshot.Stream.ID, ShouldEqual, "s2")
				So(snapshot.Position, ShouldEqual, 0)
				So(snapshot.Subtitles, ShouldBeEmpty)
				So(snapshot.Audio, ShouldHaveLength, 1)
				So(snapshot.Audio[0].Name, ShouldEqual, "Auto")
			})

			Convey("The previous adapter was torn down", func() {
				first.mu.Lock()
				defer first.mu.Unlock()
				So(first.teardowns, ShouldBeGreaterThanOrEqualTo, 1)
			})
		})
	})
}

func TestSyntheticAudioTrack(t *testing.T) {
	Convey("Given a container exposing no explicit audio group", t, func() {
		mpv := newFake(engine.MPVEngine)
		o := harness(nil, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv})
		defer o.Teardown()

		Convey("An Auto track is synthesized from the declared audio tag", func() {
			So(o.PreparePlayback(context.Background(), sampleStream()), ShouldBeNil)

			snapshot := o.Snapshot()
			So(snapshot.Audio, ShouldHaveLength, 1)
			So(snapshot.Audio[0].Name, ShouldEqual, "Auto")
			So(snapshot.Audio[0].Language, ShouldEqual, "aac")
			So(snapshot.SelectedAudio, ShouldEqual, "auto")
		})
	})
}

func TestMidPlaybackTransitions(t *testing.T) {
	Convey("Given an armed session", t, func() {
		mpv := newFake(engine.MPVEngine)
		o := harness(nil, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv})
		defer o.Teardown()
		So(o.PreparePlayback(context.Background(), sampleStream()), ShouldBeNil)

		Convey("A backend stall maps to buffering, recovery back to playing", func() {
			mpv.emit(engine.Event{Kind: engine.EventBuffering})
			So(eventually(func() bool { return o.State() == StateBuffering }), ShouldBeTrue)

			mpv.emit(engine.Event{Kind: engine.EventPlaying})
			So(eventually(func() bool { return o.State() == StatePlaying }), ShouldBeTrue)
		})

		Convey("Position samples update the session", func() {
			mpv.emit(engine.Event{Kind: engine.EventPosition, Position: 42, Duration: 3600})
			So(eventually(func() bool {
				snapshot := o.Snapshot()
				return snapshot.Position == 42 && snapshot.Duration == 3600
			}), ShouldBeTrue)
		})

		Convey("A terminal backend error surfaces as failed with a single diagnostic", func() {
			mpv.emit(engine.Event{Kind: engine.EventFailed, Err: errors.New("stream dropped")})
			So(eventually(func() bool { return o.State() == StateFailed }), ShouldBeTrue)

			So(o.Attempts(), ShouldHaveLength, 1)
			So(o.Diagnostic(), ShouldContainSubstring, "stream dropped")
		})
	})
}

func TestTeardownIdempotent(t *testing.T) {
	Convey("Given an armed session with live progress", t, func() {
		viper.Set(key.ProgressSaveInterval, 3600)
		defer viper.Set(key.ProgressSaveInterval, 1)

		store := &progressStore{record: mo.None[history.Record]()}
		mpv := newFake(engine.MPVEngine)
		o := harness(store, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv})

		So(o.PreparePlayback(context.Background(), sampleStream()), ShouldBeNil)
		mpv.emit(engine.Event{Kind: engine.EventPosition, Position: 100, Duration: 7200})
		So(eventually(func() bool { return o.Snapshot().Position == 100 }), ShouldBeTrue)

		Convey("When teardown runs twice in a row", func() {
			o.Teardown()
			writesAfterFirst := store.writeCount()
			o.Teardown()

			Convey("The second call changes nothing", func() {
				So(writesAfterFirst, ShouldEqual, 1)
				So(store.writeCount(), ShouldEqual, 1)
				So(o.State(), ShouldEqual, StateIdle)
			})
		})
	})
}

func TestTeardownJoinsPeriodicWriter(t *testing.T) {
	Convey("Given a store whose writes take a while", t, func() {
		store := &progressStore{record: mo.None[history.Record]()}

		var inFlight atomic.Int32
		var overlapped atomic.Bool
		slowWrite := func(record history.Record) error {
			if inFlight.Add(1) > 1 {
				overlapped.Store(true)
			}
			time.Sleep(500 * time.Millisecond)
			inFlight.Add(-1)
			return store.write(record)
		}

		mpv := newFake(engine.MPVEngine)
		o := New(Options{
			Queue: stream.NewQueue([]*stream.Stream{sampleStream()}),
			NewEngine: func(id engine.ID) engine.Engine {
				return mpv
			},
			FetchProgress: store.fetch,
			WriteProgress: slowWrite,
		})

		So(o.PreparePlayback(context.Background(), sampleStream()), ShouldBeNil)
		mpv.emit(engine.Event{Kind: engine.EventPosition, Position: 100, Duration: 7200})

		Convey("When teardown runs while a periodic write is in flight", func() {
			So(eventually(func() bool { return inFlight.Load() > 0 }), ShouldBeTrue)
			o.Teardown()

			Convey("The final write waits for the periodic one", func() {
				So(overlapped.Load(), ShouldBeFalse)
				So(inFlight.Load(), ShouldEqual, 0)
				So(store.writeCount(), ShouldBeGreaterThanOrEqualTo, 2)
			})
		})
	})
}

func TestPeriodicPersistence(t *testing.T) {
	Convey("Given an armed session observed over several save intervals", t, func() {
		store := &progressStore{record: mo.None[history.Record]()}
		mpv := newFake(engine.MPVEngine)
		o := harness(store, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv})

		So(o.PreparePlayback(context.Background(), sampleStream()), ShouldBeNil)
		mpv.emit(engine.Event{Kind: engine.EventPosition, Position: 100, Duration: 7200})

		Convey("Periodic writes accumulate and teardown adds exactly one more", func() {
			deadline := time.Now().Add(6 * time.Second)
			for time.Now().Before(deadline) && store.writeCount() < 3 {
				time.Sleep(50 * time.Millisecond)
			}
			So(store.writeCount(), ShouldBeGreaterThanOrEqualTo, 3)

			before := store.writeCount()
			o.Teardown()
			So(store.writeCount(), ShouldEqual, before+1)
		})
	})
}

func TestFailoverAdvance(t *testing.T) {
	Convey("Given a three-stream failover queue and a failing first stream", t, func() {
		first := sampleStream()
		second := sampleStream()
		second.ID = "s2"
		second.Quality = "720p"
		third := sampleStream()
		third.ID = "s3"
		third.Quality = "480p"
		queue := stream.NewQueue([]*stream.Stream{first, second, third})

		attempted := 0
		o := New(Options{
			Queue: queue,
			NewEngine: func(id engine.ID) engine.Engine {
				attempted++
				eng := newFake(id)
				if attempted <= 2 {
					eng.prepareErr = errors.New("source unreachable")
				}
				return eng
			},
			FetchProgress: (&progressStore{record: mo.None[history.Record]()}).fetch,
			WriteProgress: (&progressStore{}).write,
		})
		defer o.Teardown()

		Convey("When both engines fail and the caller advances the queue", func() {
			So(o.PreparePlayback(context.Background(), first), ShouldNotBeNil)
			So(o.State(), ShouldEqual, StateFailed)

			err := o.NextStream(context.Background())

			Convey("The second stream of the queue plays", func() {
				So(err, ShouldBeNil)
				So(o.State(), ShouldEqual, StatePlaying)
				So(o.Snapshot().Stream.ID, ShouldEqual, "s2")
			})
		})
	})

	Convey("Given the current stream is last in the queue", t, func() {
		only := sampleStream()
		mpv := newFake(engine.MPVEngine)
		mpv.prepareErr = errors.New("source unreachable")
		native := newFake(engine.NativeEngine)
		native.prepareErr = errors.New("source unreachable")
		o := harness(nil, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv, engine.NativeEngine: native})

		So(o.PreparePlayback(context.Background(), only), ShouldNotBeNil)

		Convey("Advancing reports there is nothing left", func() {
			So(o.NextStream(context.Background()), ShouldNotBeNil)
		})
	})
}

func TestRetry(t *testing.T) {
	Convey("Given a failed prepare whose cause has since cleared", t, func() {
		failures := 2
		o := New(Options{
			Queue: stream.NewQueue([]*stream.Stream{sampleStream()}),
			NewEngine: func(id engine.ID) engine.Engine {
				eng := newFake(id)
				if failures > 0 {
					failures--
					eng.prepareErr = errors.New("transient")
				}
				return eng
			},
			FetchProgress: (&progressStore{record: mo.None[history.Record]()}).fetch,
			WriteProgress: (&progressStore{}).write,
		})
		defer o.Teardown()

		So(o.PreparePlayback(context.Background(), sampleStream()), ShouldNotBeNil)
		So(o.State(), ShouldEqual, StateFailed)

		Convey("Retry restarts the full engine loop on the same stream", func() {
			So(o.Retry(context.Background()), ShouldBeNil)
			So(o.State(), ShouldEqual, StatePlaying)
		})
	})
}

func TestTrackSelection(t *testing.T) {
	Convey("Given an armed session with discovered tracks", t, func() {
		mpv := newFake(engine.MPVEngine)
		mpv.audio = []engine.TrackOption{
			{Handle: "1", Name: "Track 1", Language: "en"},
			{Handle: "2", Name: "Track 2", Language: "de"},
		}
		mpv.subtitles = []engine.TrackOption{{Handle: "3", Name: "Track 3", Language: "en"}}
		o := harness(nil, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv})
		defer o.Teardown()
		So(o.PreparePlayback(context.Background(), sampleStream()), ShouldBeNil)

		Convey("Selecting audio delegates to the adapter and marks the session", func() {
			So(o.SelectAudio("2"), ShouldBeNil)
			So(o.Snapshot().SelectedAudio, ShouldEqual, "2")
			So(mpv.callLog(), ShouldContain, "audio:2")
		})

		Convey("Selecting a subtitle track marks the session", func() {
			So(o.SelectSubtitle("3"), ShouldBeNil)
			So(o.Snapshot().SelectedSubtitle, ShouldEqual, "3")
		})

		Convey("An empty subtitle handle turns subtitles off", func() {
			So(o.SelectSubtitle(""), ShouldBeNil)
			So(o.Snapshot().SelectedSubtitle, ShouldBeEmpty)
			So(mpv.callLog(), ShouldContain, "sub:")
		})
	})

	Convey("Given no session is armed", t, func() {
		o := harness(nil, nil)

		Convey("Control operations report the missing engine", func() {
			So(o.Pause(), ShouldEqual, ErrNoActiveEngine)
			So(o.Seek(10), ShouldEqual, ErrNoActiveEngine)
			So(o.SelectAudio("1"), ShouldEqual, ErrNoActiveEngine)
		})
	})
}

func TestCapabilityWarnings(t *testing.T) {
	Convey("Given a stream in a container with limited backend support", t, func() {
		s := sampleStream()
		s.Container = "avi"
		mpv := newFake(engine.MPVEngine)
		o := harness(nil, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv})
		defer o.Teardown()

		Convey("The session snapshot exposes the advisory warnings", func() {
			So(o.PreparePlayback(context.Background(), s), ShouldBeNil)
			So(o.Snapshot().Warnings, ShouldNotBeEmpty)
		})
	})
}

func TestChapterMarkers(t *testing.T) {
	Convey("Given a stream carrying upstream timeline markers", t, func() {
		s := sampleStream()
		s.Chapters = []stream.Chapter{
			{Title: "Intro", Time: 0},
			{Title: "Credits", Time: 5100},
		}
		mpv := newFake(engine.MPVEngine)
		o := harness(nil, map[engine.ID]*fakeEngine{engine.MPVEngine: mpv})
		defer o.Teardown()

		Convey("The markers reach the backend and the snapshot", func() {
			So(o.PreparePlayback(context.Background(), s), ShouldBeNil)

			mpv.mu.Lock()
			pushed := append([]engine.Chapter(nil), mpv.chapters...)
			mpv.mu.Unlock()
			So(pushed, ShouldHaveLength, 2)
			So(pushed[1].Title, ShouldEqual, "Credits")

			So(o.Snapshot().Chapters, ShouldHaveLength, 2)
		})
	})
}
