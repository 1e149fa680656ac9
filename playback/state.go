// Package playback implements the orchestration state machine that turns a
// requested stream into on-screen, resumable, fault-tolerant playback.
//
// The orchestrator owns one session at a time: it orders the available
// engines, attempts them sequentially with a bounded readiness wait, arms the
// first one that succeeds, and keeps the UI-facing state consistent while
// progress persistence, subtitle resolution and scrobble reporting run in the
// background.
package playback

// State is the UI-facing playback state.
type State int

const (
	// StateIdle means no session is active.
	StateIdle State = iota
	// StatePreparing means an engine attempt loop is in flight.
	StatePreparing
	// StateBuffering means the armed backend stalled after playback started.
	StateBuffering
	// StatePlaying means the armed backend is presenting the stream.
	StatePlaying
	// StateFailed is terminal: every engine was attempted and none reached
	// playing, or the armed backend reported an unrecoverable error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePreparing:
		return "preparing"
	case StateBuffering:
		return "buffering"
	case StatePlaying:
		return "playing"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}
