// Package engine defines a unified abstraction layer for media playback backends.
// Two implementations are provided: a broad-format decoder driven over mpv's
// JSON-IPC interface, and the narrower native OS media framework.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/vireo-cli/vireo/key"
	"github.com/vireo-cli/vireo/stream"
)

// ID identifies a playback backend implementation.
type ID string

const (
	// MPVEngine is the broad-format software/hardware hybrid decoder.
	MPVEngine ID = "mpv"
	// NativeEngine is the OS media framework integration.
	NativeEngine ID = "native"
)

// TrackOption describes one selectable audio or subtitle track discovered on the armed stream.
type TrackOption struct {
	// Handle is the opaque backend-specific selection token.
	Handle string `json:"handle"`
	// Name is the human-readable display label.
	Name string `json:"name"`
	// Language is the declared language tag, possibly empty.
	Language string `json:"language"`
}

// String returns the display representation of the track.
func (t TrackOption) String() string {
	if t.Language != "" {
		return fmt.Sprintf("%s (%s)", t.Name, t.Language)
	}
	return t.Name
}

// Chapter is a single named timeline marker.
type Chapter struct {
	Title string  `json:"title"`
	Time  float64 `json:"time"`
}

// EventKind enumerates backend notifications delivered on the per-adapter event channel.
type EventKind int

const (
	// EventReady signals that the backend reached a playable state.
	EventReady EventKind = iota
	// EventBuffering signals a backend stall (cache exhausted, network wait).
	EventBuffering
	// EventPlaying signals recovery from a stall or resumed playback.
	EventPlaying
	// EventPaused signals a playback suspension.
	EventPaused
	// EventPosition carries a periodic position/duration sample.
	EventPosition
	// EventEnded signals normal end of the media.
	EventEnded
	// EventFailed signals an unrecoverable backend error.
	EventFailed
)

// Event is one ordered backend notification.
// The channel replaces callback-based notifications so the orchestrator can
// drain events on its own goroutine without re-entrancy hazards.
type Event struct {
	Kind     EventKind
	Position float64
	Duration float64
	Err      error
}

// Engine encapsulates the required capabilities of a media playback backend.
// At most one engine is active at any time; switching engines requires a full
// Teardown of the previous one before the next is armed.
type Engine interface {
	// ID returns the backend identity, used only for display and diagnostics.
	ID() ID

	// Prepare arms the backend for the given stream without starting playback.
	// Failures are reported as *InitError.
	Prepare(ctx context.Context, s *stream.Stream) error

	// WaitUntilReady blocks until the backend reaches a playable state, the
	// timeout elapses (*ReadyTimeoutError), the backend reports a failure, or
	// the context is cancelled.
	WaitUntilReady(ctx context.Context, timeout time.Duration) error

	// Play starts or resumes playback.
	Play() error

	// Pause suspends playback.
	Pause() error

	// Seek transitions the playback position to an absolute timestamp in seconds.
	Seek(seconds float64) error

	// SetRate adjusts the playback speed multiplier.
	SetRate(rate float64) error

	// Tracks discovers the audio and subtitle tracks exposed by the armed stream.
	// Both lists may be empty without error; some containers expose no explicit group.
	Tracks(ctx context.Context) (audio, subtitle []TrackOption, err error)

	// SelectAudio activates the audio track identified by the opaque handle.
	SelectAudio(handle string) error

	// SelectSubtitle activates the subtitle track identified by the opaque handle.
	// An empty handle disables subtitles.
	SelectSubtitle(handle string) error

	// LoadSubtitleFile adds an external subtitle file to the armed stream and selects it.
	LoadSubtitleFile(path string) error

	// SetChapters publishes timeline markers to the backend UI.
	SetChapters(chapters []Chapter) error

	// Events returns the single ordered notification channel for this adapter.
	// The channel is closed when the backend terminates.
	Events() <-chan Event

	// Teardown releases all backend resources (process, sockets, observers).
	// Idempotent: safe to call multiple times and from failure branches.
	Teardown() error
}

// New constructs the adapter for the given backend identity.
func New(id ID) Engine {
	switch id {
	case NativeEngine:
		return NewNative()
	default:
		return NewMPV()
	}
}

// InitError is the typed initialization failure raised by Prepare.
type InitError struct {
	Engine ID
	Cause  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("engine %s: initialization failed: %v", e.Engine, e.Cause)
}

func (e *InitError) Unwrap() error {
	return e.Cause
}

// ReadyTimeoutError is the typed readiness expiry raised by WaitUntilReady.
type ReadyTimeoutError struct {
	Engine  ID
	Timeout time.Duration
}

func (e *ReadyTimeoutError) Error() string {
	return fmt.Sprintf("engine %s: not ready after %s", e.Engine, e.Timeout)
}

// ReadinessBudget derives the per-attempt readiness timeout from stream characteristics.
// Remote sources get twice the configured base budget; very high quality tiers
// get an additional half on top of that.
func ReadinessBudget(s *stream.Stream) time.Duration {
	base := time.Duration(viper.GetInt(key.PlayerReadinessTimeout)) * time.Second
	if base <= 0 {
		base = 15 * time.Second
	}

	budget := base
	if s != nil && s.Remote() {
		budget *= 2
	}
	if s != nil && (s.Quality == "2160p" || s.Quality == "4k") {
		budget += budget / 2
	}

	return budget
}
