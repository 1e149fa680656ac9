package engine

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/vireo-cli/vireo/constant"
	"github.com/vireo-cli/vireo/log"
	"github.com/vireo-cli/vireo/stream"
)

// Native implements the Engine interface over the OS media framework
// (IINA on macOS, launched through LaunchServices). The framework exposes
// no IPC surface, so the control methods degrade to best-effort stubs and
// liveness is derived from the launched process.
type Native struct {
	cmd    *exec.Cmd
	exited chan struct{}
	events chan Event
	torn   sync.Once
}

// NewNative creates a new native framework adapter (does not launch anything).
func NewNative() *Native {
	return &Native{
		exited: make(chan struct{}),
		events: make(chan Event, 8),
	}
}

// ID returns the backend identity.
func (n *Native) ID() ID {
	return NativeEngine
}

// Prepare launches the native player on the stream URL.
func (n *Native) Prepare(ctx context.Context, s *stream.Stream) error {
	if runtime.GOOS != constant.Darwin {
		return &InitError{Engine: NativeEngine, Cause: fmt.Errorf("native engine is only supported on macOS")}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	safeURL, err := sanitizeMediaTarget(s.URL)
	if err != nil {
		return &InitError{Engine: NativeEngine, Cause: fmt.Errorf("invalid media target: %w", err)}
	}

	title := sanitizeTitle(s.Title)
	args := []string{"-a", "IINA", "--args", fmt.Sprintf("--mpv-force-media-title=%s", title), safeURL}

	n.cmd = exec.Command("open", args...)
	if err := n.cmd.Start(); err != nil {
		return &InitError{Engine: NativeEngine, Cause: fmt.Errorf("LaunchServices failed to invoke IINA: %w", err)}
	}

	go func() {
		_ = n.cmd.Wait()
		close(n.exited)
	}()

	return nil
}

// WaitUntilReady treats a clean LaunchServices handoff as readiness.
// The framework reports no load progress, so the budget only guards
// against an immediate launch failure.
func (n *Native) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	grace := 500 * time.Millisecond
	if timeout < grace {
		grace = timeout
	}

	select {
	case <-n.exited:
		// `open` returns promptly on success; a nonzero exit means the handoff failed.
		if n.cmd != nil && n.cmd.ProcessState != nil && !n.cmd.ProcessState.Success() {
			return &InitError{Engine: NativeEngine, Cause: fmt.Errorf("launch handoff failed: %s", n.cmd.ProcessState)}
		}
	case <-time.After(grace):
	case <-ctx.Done():
		return ctx.Err()
	}

	n.emit(Event{Kind: EventReady})
	n.emit(Event{Kind: EventPlaying})
	return nil
}

// Playback control is owned by the native UI; the stubs only log.

func (n *Native) Play() error  { return nil }
func (n *Native) Pause() error { return nil }

func (n *Native) Seek(seconds float64) error {
	log.Debugf("native engine: seek to %.0fs not supported, ignoring", seconds)
	return nil
}

func (n *Native) SetRate(rate float64) error {
	log.Debugf("native engine: rate %.2f not supported, ignoring", rate)
	return nil
}

// Tracks returns empty lists: the native framework exposes no track group,
// so the orchestrator synthesizes an "Auto" entry from the stream's declared tags.
func (n *Native) Tracks(ctx context.Context) (audio, subtitle []TrackOption, err error) {
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	return nil, nil, nil
}

func (n *Native) SelectAudio(handle string) error {
	return fmt.Errorf("track selection is not supported by the native engine")
}

func (n *Native) SelectSubtitle(handle string) error {
	if handle == "" {
		return nil
	}
	return fmt.Errorf("track selection is not supported by the native engine")
}

func (n *Native) LoadSubtitleFile(path string) error {
	return fmt.Errorf("external subtitles are not supported by the native engine")
}

func (n *Native) SetChapters(chapters []Chapter) error { return nil }

// Events returns the adapter's notification channel.
func (n *Native) Events() <-chan Event {
	return n.events
}

// Teardown terminates the launcher process if it is still around.
// Safe to call multiple times.
func (n *Native) Teardown() error {
	n.torn.Do(func() {
		if n.cmd != nil && n.cmd.Process != nil {
			select {
			case <-n.exited:
			default:
				_ = n.cmd.Process.Kill()
			}
		}
		close(n.events)
	})
	return nil
}

func (n *Native) emit(e Event) {
	select {
	case n.events <- e:
	default:
	}
}
