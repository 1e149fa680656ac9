package playback

import (
	"context"
	"fmt"

	"github.com/vireo-cli/vireo/engine"
	"github.com/vireo-cli/vireo/stream"
)

// ErrNoActiveEngine is returned by control operations outside an armed session.
var ErrNoActiveEngine = fmt.Errorf("no active engine")

// State returns the current UI-facing playback state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Diagnostic returns the joined failure message of the last prepare loop,
// empty unless the machine is in StateFailed.
func (o *Orchestrator) Diagnostic() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return joinDiagnostic(o.attempts)
}

// Attempts returns a copy of the per-engine attempt records of the last
// prepare loop, in attempt order.
func (o *Orchestrator) Attempts() []AttemptResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	attempts := make([]AttemptResult, len(o.attempts))
	copy(attempts, o.attempts)
	return attempts
}

// Updates returns the wakeup channel the UI selects on; a receive means the
// observable state changed since the last Snapshot call.
func (o *Orchestrator) Updates() <-chan struct{} {
	return o.updates
}

// Snapshot copies the observable session state for lock-free reading.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshot := Snapshot{
		State:      o.state,
		Warnings:   o.warnings,
		Diagnostic: joinDiagnostic(o.attempts),
	}

	if sess := o.session; sess != nil {
		snapshot.Stream = sess.stream
		snapshot.Engine = sess.engineID
		snapshot.Position = sess.position
		snapshot.Duration = sess.duration
		snapshot.Buffered = sess.buffered
		snapshot.Rate = sess.rate
		snapshot.Paused = sess.paused
		snapshot.Audio = append([]engine.TrackOption(nil), sess.audio...)
		snapshot.Subtitles = append([]engine.TrackOption(nil), sess.subtitles...)
		snapshot.SelectedAudio = sess.selectedAudio
		snapshot.SelectedSubtitle = sess.selectedSubtitle
		snapshot.Chapters = append([]engine.Chapter(nil), sess.chapters...)
	}

	return snapshot
}

// Pause suspends playback on the active engine.
func (o *Orchestrator) Pause() error {
	eng, err := o.activeEngine()
	if err != nil {
		return err
	}
	return eng.Pause()
}

// Play starts or resumes playback on the active engine.
func (o *Orchestrator) Play() error {
	eng, err := o.activeEngine()
	if err != nil {
		return err
	}
	return eng.Play()
}

// Seek moves the active engine to an absolute position in seconds.
func (o *Orchestrator) Seek(seconds float64) error {
	eng, err := o.activeEngine()
	if err != nil {
		return err
	}
	return eng.Seek(seconds)
}

// SetRate adjusts the playback speed multiplier.
func (o *Orchestrator) SetRate(rate float64) error {
	eng, err := o.activeEngine()
	if err != nil {
		return err
	}
	if err := eng.SetRate(rate); err != nil {
		return err
	}

	o.mu.Lock()
	if o.session != nil {
		o.session.rate = rate
	}
	o.mu.Unlock()
	o.notify()
	return nil
}

// SelectAudio activates an audio track by its backend handle.
func (o *Orchestrator) SelectAudio(handle string) error {
	eng, err := o.activeEngine()
	if err != nil {
		return err
	}
	if err := eng.SelectAudio(handle); err != nil {
		return err
	}

	o.mu.Lock()
	if o.session != nil {
		o.session.selectedAudio = handle
	}
	o.mu.Unlock()
	o.notify()
	return nil
}

// SelectSubtitle activates a subtitle track by its backend handle.
// An empty handle disables subtitles.
func (o *Orchestrator) SelectSubtitle(handle string) error {
	eng, err := o.activeEngine()
	if err != nil {
		return err
	}
	if err := eng.SelectSubtitle(handle); err != nil {
		return err
	}

	o.mu.Lock()
	if o.session != nil {
		o.session.selectedSubtitle = handle
	}
	o.mu.Unlock()
	o.notify()
	return nil
}

// Retry restarts the full engine-order loop for the current stream.
// It is the user-visible recovery action on StateFailed.
func (o *Orchestrator) Retry(ctx context.Context) error {
	o.mu.Lock()
	sess := o.session
	o.mu.Unlock()

	if sess == nil {
		return fmt.Errorf("no stream to retry")
	}

	return o.PreparePlayback(ctx, sess.stream)
}

// NextStream advances to the next entry of the failover queue and prepares
// it. It returns an error when the current stream is the last in the queue.
func (o *Orchestrator) NextStream(ctx context.Context) error {
	o.mu.Lock()
	sess := o.session
	o.mu.Unlock()

	if sess == nil {
		return fmt.Errorf("no active stream")
	}

	next, ok := stream.Next(o.queue, sess.stream).Get()
	if !ok {
		return fmt.Errorf("no further streams to fail over to")
	}

	return o.PreparePlayback(ctx, next)
}

func (o *Orchestrator) activeEngine() (engine.Engine, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active == nil {
		return nil, ErrNoActiveEngine
	}
	return o.active, nil
}
