package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
	"github.com/vireo-cli/vireo/engine"
	"github.com/vireo-cli/vireo/history"
	"github.com/vireo-cli/vireo/key"
	"github.com/vireo-cli/vireo/log"
	"github.com/vireo-cli/vireo/scrobble"
	"github.com/vireo-cli/vireo/stream"
	"github.com/vireo-cli/vireo/util"
)

// Options carries the collaborators of an Orchestrator. Zero-value fields
// fall back to the production implementations.
type Options struct {
	// Queue is the same-title failover queue for this playback session.
	Queue *stream.Queue

	// Scrobbler receives start/pause/resume/stop notifications.
	Scrobbler scrobble.Coordinator

	// NewEngine constructs the adapter for a backend identity.
	NewEngine func(id engine.ID) engine.Engine

	// FetchProgress reads the persisted progress record for a title.
	FetchProgress func(mediaID, episodeID string) (mo.Option[history.Record], error)

	// WriteProgress persists a progress snapshot.
	WriteProgress func(record history.Record) error
}

// Orchestrator drives the playback state machine for one session at a time.
// It exclusively owns the active engine adapter: no other component calls
// the adapter's control methods directly.
type Orchestrator struct {
	mu       sync.Mutex
	state    State
	session  *session
	attempts []AttemptResult
	warnings []string
	active   engine.Engine

	queue     *stream.Queue
	scrobbler scrobble.Coordinator
	newEngine func(id engine.ID) engine.Engine
	fetch     func(mediaID, episodeID string) (mo.Option[history.Record], error)
	write     func(record history.Record) error

	loopCancel  context.CancelFunc
	persistDone chan struct{}
	updates     chan struct{}
}

// New constructs an orchestrator for one playback session.
func New(options Options) *Orchestrator {
	o := &Orchestrator{
		queue:     options.Queue,
		scrobbler: options.Scrobbler,
		newEngine: options.NewEngine,
		fetch:     options.FetchProgress,
		write:     options.WriteProgress,
		updates:   make(chan struct{}, 1),
	}

	if o.scrobbler == nil {
		o.scrobbler = scrobble.New()
	}
	if o.newEngine == nil {
		o.newEngine = engine.New
	}
	if o.fetch == nil {
		o.fetch = history.Fetch
	}
	if o.write == nil {
		o.write = history.Write
	}

	return o
}

// PreparePlayback tears down any previous session and runs the engine attempt
// loop for the given stream. It returns nil once an engine reaches playing,
// the context error on cancellation, or the joined diagnostic when every
// engine failed. Cancellation restores the state that was current before the
// call; it never produces StateFailed.
func (o *Orchestrator) PreparePlayback(ctx context.Context, s *stream.Stream) error {
	o.teardownSession()

	o.mu.Lock()
	prior := o.state
	o.state = StatePreparing
	o.session = newSession(s)
	o.attempts = nil
	o.warnings = stream.Warnings(s)
	o.mu.Unlock()
	o.notify()

	// The resume lookup and the engine-order computation are independent,
	// so they run concurrently.
	resumeCh := make(chan resumePoint, 1)
	go func() { resumeCh <- o.resumeTarget(s) }()

	strategy := engine.ParseStrategy(viper.GetString(key.PlayerEngineStrategy))
	order := engine.Order(strategy)

	var target resumePoint
	select {
	case target = <-resumeCh:
	case <-ctx.Done():
		o.restore(prior)
		return ctx.Err()
	}

	for _, id := range order {
		if err := ctx.Err(); err != nil {
			o.recordAttempt(AttemptResult{Engine: id, Outcome: OutcomeCancelled})
			o.restore(prior)
			return err
		}

		eng := o.newEngine(id)
		err := o.attempt(ctx, eng, s, target)
		if err == nil {
			o.recordAttempt(AttemptResult{Engine: id, Outcome: OutcomeSuccess})
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			o.recordAttempt(AttemptResult{Engine: id, Outcome: OutcomeCancelled, Reason: err})
			o.restore(prior)
			return err
		}

		log.Warnf("playback: engine %s failed for %s: %v", id, s, err)
		o.recordAttempt(AttemptResult{Engine: id, Outcome: OutcomeFailure, Reason: err})
	}

	o.mu.Lock()
	o.state = StateFailed
	diagnostic := joinDiagnostic(o.attempts)
	o.mu.Unlock()
	o.notify()

	log.Errorf("playback: all engines exhausted for %s: %s", s, diagnostic)
	return fmt.Errorf("all engines failed: %s", diagnostic)
}

// attempt arms a single engine: prepare, bounded readiness wait, track
// discovery, resume seek, play. On any failure the adapter is fully torn
// down before the error is returned so the next attempt starts clean.
func (o *Orchestrator) attempt(ctx context.Context, eng engine.Engine, s *stream.Stream, target resumePoint) error {
	if err := eng.Prepare(ctx, s); err != nil {
		util.Ignore(eng.Teardown)
		return err
	}

	if err := eng.WaitUntilReady(ctx, engine.ReadinessBudget(s)); err != nil {
		util.Ignore(eng.Teardown)
		return err
	}

	if err := ctx.Err(); err != nil {
		util.Ignore(eng.Teardown)
		return err
	}

	audio, subs, err := eng.Tracks(ctx)
	if err != nil {
		log.Warnf("playback: track discovery on %s failed: %v", eng.ID(), err)
		audio, subs = nil, nil
	}
	if len(audio) == 0 {
		audio = []engine.TrackOption{syntheticAudio(s)}
	}

	if chapters := chapterMarkers(s); len(chapters) > 0 {
		if err := eng.SetChapters(chapters); err != nil {
			log.Warnf("playback: chapter markers on %s rejected: %v", eng.ID(), err)
		}
	}

	if seconds, ok := target.position.Get(); ok {
		if err := eng.Seek(seconds); err != nil {
			util.Ignore(eng.Teardown)
			return err
		}
	}

	if err := eng.Play(); err != nil {
		util.Ignore(eng.Teardown)
		return err
	}

	rate := defaultRate()
	if rate != 1.0 {
		if err := eng.SetRate(rate); err != nil {
			log.Warnf("playback: default rate on %s rejected: %v", eng.ID(), err)
			rate = 1.0
		}
	}

	o.arm(eng, s, audio, subs, rate, target.ratio)
	return nil
}

// arm wires the successfully prepared adapter into the session and starts
// the background event drain, persistence and subtitle tasks.
func (o *Orchestrator) arm(eng engine.Engine, s *stream.Stream, audio, subs []engine.TrackOption, rate, startProgress float64) {
	loopCtx, cancel := context.WithCancel(context.Background())
	persistDone := make(chan struct{})

	o.mu.Lock()
	o.active = eng
	o.loopCancel = cancel
	o.persistDone = persistDone
	o.state = StatePlaying
	o.session.engineID = eng.ID()
	o.session.audio = audio
	o.session.subtitles = subs
	o.session.chapters = chapterMarkers(s)
	o.session.selectedAudio = audio[0].Handle
	o.session.rate = rate
	o.session.played = true
	o.mu.Unlock()
	o.notify()

	o.scrobbler.Start(s, startProgress)

	go o.drainEvents(loopCtx, eng)
	go o.persistLoop(loopCtx, persistDone)
	go o.autoSearchSubtitles(loopCtx)
}

// syntheticAudio builds the fallback "Auto" track for containers that expose
// no explicit audio group.
func syntheticAudio(s *stream.Stream) engine.TrackOption {
	return engine.TrackOption{Handle: "auto", Name: "Auto", Language: s.Audio}
}

// chapterMarkers converts the stream's upstream timeline markers into the
// engine representation.
func chapterMarkers(s *stream.Stream) []engine.Chapter {
	return lo.Map(s.Chapters, func(c stream.Chapter, _ int) engine.Chapter {
		return engine.Chapter{Title: c.Title, Time: c.Time}
	})
}

// resumePoint is the outcome of the history lookup: the seek target when a
// resumable record exists, and the corresponding completion fraction reported
// to the scrobbler as the session's starting progress.
type resumePoint struct {
	position mo.Option[float64]
	ratio    float64
}

// resumeTarget computes the position playback should start at, None when no
// history exists or the prior viewing already crossed the completion threshold.
func (o *Orchestrator) resumeTarget(s *stream.Stream) resumePoint {
	none := resumePoint{position: mo.None[float64]()}

	record, err := o.fetch(s.MediaID, s.EpisodeID)
	if err != nil {
		log.Warnf("playback: resume lookup for %s failed: %v", s, err)
		return none
	}

	r, ok := record.Get()
	if !ok {
		return none
	}

	if r.Completed || r.Ratio() > completionThreshold() {
		return none
	}
	if r.Position <= 0 {
		return none
	}

	return resumePoint{position: mo.Some(r.Position), ratio: r.Ratio()}
}

func completionThreshold() float64 {
	threshold := viper.GetFloat64(key.ProgressCompletionThreshold)
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.9
	}
	return threshold
}

func defaultRate() float64 {
	rate := viper.GetFloat64(key.PlayerDefaultRate)
	if rate <= 0 || rate > 3 {
		return 1.0
	}
	return rate
}

// restore puts the state machine back to its pre-call value after a
// cancelled prepare. Cancellation is not a failure.
func (o *Orchestrator) restore(prior State) {
	o.mu.Lock()
	o.state = prior
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) recordAttempt(attempt AttemptResult) {
	o.mu.Lock()
	o.attempts = append(o.attempts, attempt)
	o.mu.Unlock()
}

// persistLoop snapshots progress on the configured cadence while the session
// is armed. Writes are best-effort. Closing done signals that no periodic
// write is in flight anymore, which teardown waits for before the final write.
func (o *Orchestrator) persistLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	interval := time.Duration(viper.GetInt(key.ProgressSaveInterval)) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.persist()
		}
	}
}

// persist writes one progress snapshot. Failures are logged and swallowed:
// losing a resume point is non-fatal to the current session.
func (o *Orchestrator) persist() {
	if !viper.GetBool(key.ProgressSaveOnPlay) {
		return
	}

	o.mu.Lock()
	sess := o.session
	if sess == nil || !sess.played {
		o.mu.Unlock()
		return
	}
	s := sess.stream
	position := sess.position
	duration := sess.duration
	o.mu.Unlock()

	completed := duration > 0 && position/duration > completionThreshold()
	if err := o.write(history.NewRecord(s, position, duration, completed)); err != nil {
		log.Warnf("playback: progress write for %s failed: %v", s, err)
	}
}

// finalize performs the exactly-once closing work of an armed session: the
// synchronous teardown progress write and the scrobble stop notification.
func (o *Orchestrator) finalize(sess *session) {
	sess.finalWrite.Do(func() {
		o.persist()

		o.mu.Lock()
		s := sess.stream
		progress := 0.0
		if sess.duration > 0 {
			progress = sess.position / sess.duration
		}
		o.mu.Unlock()

		o.scrobbler.Stop(s, progress)
	})
}

// teardownSession releases the current session's resources: background loops,
// the active adapter, the subtitle scratch file, and the final progress write.
// Safe to call with no session active.
func (o *Orchestrator) teardownSession() {
	o.mu.Lock()
	eng := o.active
	cancel := o.loopCancel
	persistDone := o.persistDone
	sess := o.session
	o.active = nil
	o.loopCancel = nil
	o.persistDone = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if persistDone != nil {
		// Join the periodic writer so the final write never overlaps an
		// in-flight snapshot.
		<-persistDone
	}
	if sess != nil && sess.played {
		o.finalize(sess)
	}
	if eng != nil {
		util.Ignore(eng.Teardown)
	}
	if sess != nil && sess.subtitleScratch != "" {
		util.Ignore(func() error { return util.Delete(sess.subtitleScratch) })
	}
}

// Teardown closes the session entirely and returns the machine to idle.
// Idempotent: a second call observes no session and does nothing.
func (o *Orchestrator) Teardown() {
	o.teardownSession()

	o.mu.Lock()
	o.session = nil
	o.state = StateIdle
	o.mu.Unlock()
	o.notify()
}

// notify wakes the UI observer without blocking; a pending wakeup is enough.
func (o *Orchestrator) notify() {
	select {
	case o.updates <- struct{}{}:
	default:
	}
}
