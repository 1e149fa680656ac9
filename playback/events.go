package playback

import (
	"context"

	"github.com/vireo-cli/vireo/engine"
	"github.com/vireo-cli/vireo/log"
	"github.com/vireo-cli/vireo/stream"
)

// drainEvents consumes the adapter's ordered notification channel until the
// session is torn down or the backend terminates.
func (o *Orchestrator) drainEvents(ctx context.Context, eng engine.Engine) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-eng.Events():
			if !ok {
				return
			}
			o.handleEvent(eng, ev)
		}
	}
}

func (o *Orchestrator) handleEvent(eng engine.Engine, ev engine.Event) {
	switch ev.Kind {
	case engine.EventPosition:
		o.mu.Lock()
		if o.session != nil {
			o.session.position = ev.Position
			if ev.Duration > 0 {
				o.session.duration = ev.Duration
			}
		}
		o.mu.Unlock()
		o.notify()

	case engine.EventBuffering:
		// Stalls after the first playing transition map to buffering,
		// never back to preparing.
		o.mu.Lock()
		if o.session != nil && o.session.played {
			o.state = StateBuffering
		}
		o.mu.Unlock()
		o.notify()

	case engine.EventPlaying:
		o.mu.Lock()
		wasPaused := o.session != nil && o.session.paused
		s := o.streamLocked()
		progress := o.progressLocked()
		if o.session != nil {
			o.session.paused = false
		}
		o.state = StatePlaying
		o.mu.Unlock()
		o.notify()

		if wasPaused {
			o.scrobbler.Resume(s, progress)
		}

	case engine.EventPaused:
		o.mu.Lock()
		s := o.streamLocked()
		progress := o.progressLocked()
		if o.session != nil {
			o.session.paused = true
		}
		o.mu.Unlock()
		o.notify()

		o.scrobbler.Pause(s, progress)

	case engine.EventEnded:
		log.Infof("playback: %s ended", eng.ID())
		o.Teardown()

	case engine.EventFailed:
		// A terminal error after playing surfaces as failed with a
		// single-engine diagnostic. Failover is a startup-only policy;
		// rearming a different backend mid-session is an explicit caller
		// action, never automatic.
		o.mu.Lock()
		o.attempts = []AttemptResult{{Engine: eng.ID(), Outcome: OutcomeFailure, Reason: ev.Err}}
		o.state = StateFailed
		o.mu.Unlock()
		o.notify()

		log.Errorf("playback: engine %s reported terminal error: %v", eng.ID(), ev.Err)
		o.teardownSession()
	}
}

func (o *Orchestrator) streamLocked() *stream.Stream {
	if o.session == nil {
		return nil
	}
	return o.session.stream
}

func (o *Orchestrator) progressLocked() float64 {
	if o.session == nil || o.session.duration <= 0 {
		return 0
	}
	return o.session.position / o.session.duration
}
