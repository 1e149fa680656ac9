package engine

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vireo-cli/vireo/log"
	"github.com/vireo-cli/vireo/stream"
)

const (
	socketWaitDelay   = 300 * time.Millisecond
	teardownQuitGrace = 3 * time.Second
)

// MPV implements the Engine interface using mpv's JSON-IPC protocol.
// The process is armed paused so the orchestrator can apply a resume seek
// before issuing the first Play.
type MPV struct {
	socketPath string
	cmd        *exec.Cmd
	exited     chan struct{} // closed when the mpv process exits
	events     chan Event
	ready      chan struct{} // closed when mpv reports the file loaded
	readyOnce  sync.Once
	listener   *listener
	torn       sync.Once
	mu         sync.Mutex // protects socket writes

	failMu   sync.Mutex
	failWith error // first terminal backend error, if any
}

// NewMPV creates a new mpv adapter (does not start the process).
func NewMPV() *MPV {
	return &MPV{
		exited: make(chan struct{}),
		events: make(chan Event, 64),
		ready:  make(chan struct{}),
	}
}

// ID returns the backend identity.
func (m *MPV) ID() ID {
	return MPVEngine
}

// Prepare spawns mpv armed on the stream URL, paused, and wires the event listener.
// Every failure path tears down whatever was allocated so far.
func (m *MPV) Prepare(ctx context.Context, s *stream.Stream) error {
	safeURL, err := sanitizeMediaTarget(s.URL)
	if err != nil {
		return &InitError{Engine: MPVEngine, Cause: fmt.Errorf("invalid media target: %w", err)}
	}

	safeTitle := sanitizeTitle(s.Title)
	if safeTitle == "" {
		safeTitle = sanitizeTitle(s.Filename)
	}

	// Random socket path under os.TempDir() for cross-platform support
	// (macOS $TMPDIR is /var/folders/... not /tmp/).
	if m.socketPath == "" {
		randomBytes := make([]byte, 4)
		if _, err := rand.Read(randomBytes); err != nil {
			return &InitError{Engine: MPVEngine, Cause: fmt.Errorf("generate socket name: %w", err)}
		}
		m.socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("vireo-%x.sock", randomBytes))
	}

	// Pass ONLY the socket, title, pause state and URL.
	// Do NOT pass --vo, --profile, --hwdec; respect the user's mpv.conf.
	args := []string{
		"--no-terminal",
		"--really-quiet",
		fmt.Sprintf("--input-ipc-server=%s", m.socketPath),
		fmt.Sprintf("--force-media-title=%s", safeTitle),
		fmt.Sprintf("--title=%s", safeTitle), // some mpv builds only respect --title
		"--force-window=yes",
		"--idle=yes",
		"--pause=yes",
		safeURL,
	}

	m.cmd = exec.Command("mpv", args...)

	// Detach from parent process group to prevent cascading shell panics.
	m.cmd.SysProcAttr = sysProcAttr()

	// Disable standard pipes to prevent resource leaks.
	m.cmd.Stdout = nil
	m.cmd.Stderr = nil
	m.cmd.Stdin = nil

	if err := m.cmd.Start(); err != nil {
		return &InitError{Engine: MPVEngine, Cause: fmt.Errorf("start mpv: %w", err)}
	}

	// Reap the process in the background to prevent zombies.
	go func() {
		_ = m.cmd.Wait()
		close(m.exited)
	}()

	if err := m.waitForSocket(ctx); err != nil {
		// The socket never became ready; kill the orphaned process.
		select {
		case <-m.exited:
		default:
			log.Warnf("killing mpv: socket never became ready")
			_ = killProcess(m.cmd)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &InitError{Engine: MPVEngine, Cause: fmt.Errorf("mpv socket not ready: %w", err)}
	}

	lst, err := m.startListener()
	if err != nil {
		_ = m.Teardown()
		return &InitError{Engine: MPVEngine, Cause: fmt.Errorf("event listener: %w", err)}
	}
	m.listener = lst

	return nil
}

// waitForSocket polls until the mpv IPC socket is accepting connections.
func (m *MPV) waitForSocket(ctx context.Context) error {
	const attempts = 10
	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.exited:
			return fmt.Errorf("mpv exited before socket was ready")
		case <-time.After(socketWaitDelay):
		}

		conn, err := net.Dial("unix", m.socketPath)
		if err == nil {
			conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", m.socketPath, attempts)
}

// WaitUntilReady blocks until mpv reports the file loaded, the backend fails,
// the timeout elapses, or the context is cancelled.
func (m *MPV) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-m.ready:
		return nil
	case <-m.exited:
		if err := m.terminalFailure(); err != nil {
			return &InitError{Engine: MPVEngine, Cause: err}
		}
		return &InitError{Engine: MPVEngine, Cause: fmt.Errorf("mpv exited before reaching a playable state")}
	case <-timer.C:
		return &ReadyTimeoutError{Engine: MPVEngine, Timeout: timeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Play resumes playback.
func (m *MPV) Play() error {
	return m.setProperty("pause", false)
}

// Pause suspends playback.
func (m *MPV) Pause() error {
	return m.setProperty("pause", true)
}

// Seek moves playback to the given absolute position in seconds.
func (m *MPV) Seek(seconds float64) error {
	_, err := m.sendCommand([]interface{}{"seek", seconds, "absolute"})
	return err
}

// SetRate adjusts the playback speed multiplier.
func (m *MPV) SetRate(rate float64) error {
	return m.setProperty("speed", rate)
}

// Tracks queries mpv's track-list property and partitions it into audio and subtitle options.
func (m *MPV) Tracks(ctx context.Context) (audio, subtitle []TrackOption, err error) {
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	data, err := m.sendCommand([]interface{}{"get_property", "track-list"})
	if err != nil {
		return nil, nil, fmt.Errorf("track-list: %w", err)
	}

	entries, ok := data.([]interface{})
	if !ok {
		// No explicit track group; an empty result is not an error.
		return nil, nil, nil
	}

	for _, entry := range entries {
		fields, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		id, ok := fields["id"].(float64)
		if !ok {
			continue
		}

		option := TrackOption{
			Handle:   strconv.Itoa(int(id)),
			Language: stringField(fields, "lang"),
			Name:     stringField(fields, "title"),
		}

		kind := stringField(fields, "type")
		if option.Name == "" {
			option.Name = fmt.Sprintf("Track %d", int(id))
		}

		switch kind {
		case "audio":
			audio = append(audio, option)
		case "sub":
			subtitle = append(subtitle, option)
		}
	}

	return audio, subtitle, nil
}

// SelectAudio activates the audio track identified by the opaque handle.
func (m *MPV) SelectAudio(handle string) error {
	id, err := strconv.Atoi(handle)
	if err != nil {
		return fmt.Errorf("invalid audio track handle %q: %w", handle, err)
	}
	return m.setProperty("aid", id)
}

// SelectSubtitle activates the subtitle track identified by the opaque handle.
// An empty handle disables subtitles.
func (m *MPV) SelectSubtitle(handle string) error {
	if handle == "" {
		return m.setProperty("sid", "no")
	}

	id, err := strconv.Atoi(handle)
	if err != nil {
		return fmt.Errorf("invalid subtitle track handle %q: %w", handle, err)
	}
	return m.setProperty("sid", id)
}

// LoadSubtitleFile adds an external subtitle file and selects it immediately.
func (m *MPV) LoadSubtitleFile(path string) error {
	_, err := m.sendCommand([]interface{}{"sub-add", path, "select"})
	return err
}

// SetChapters publishes timeline markers to the mpv UI.
func (m *MPV) SetChapters(chapters []Chapter) error {
	list := make([]map[string]interface{}, 0, len(chapters))
	for _, c := range chapters {
		list = append(list, map[string]interface{}{"title": c.Title, "time": c.Time})
	}
	return m.setProperty("chapter-list", list)
}

// Events returns the ordered notification channel for this adapter.
func (m *MPV) Events() <-chan Event {
	return m.events
}

// Teardown shuts down the mpv process and cleans up resources.
// Safe to call multiple times; only the first call does any work.
func (m *MPV) Teardown() error {
	m.torn.Do(func() {
		if m.listener != nil {
			m.listener.stop()
		}

		if m.socketPath == "" {
			close(m.events)
			return
		}

		// Try graceful quit via IPC first.
		_, _ = m.sendCommand([]interface{}{"quit"})

		select {
		case <-m.exited:
		case <-time.After(teardownQuitGrace):
			_ = killProcess(m.cmd)
		}

		_ = os.Remove(m.socketPath)
		close(m.events)
	})

	return nil
}

// Socket returns the IPC socket path, for diagnostics.
func (m *MPV) Socket() string {
	return m.socketPath
}

func (m *MPV) setProperty(property string, value interface{}) error {
	_, err := m.sendCommand([]interface{}{"set_property", property, value})
	return err
}

// markReady closes the readiness gate exactly once.
func (m *MPV) markReady() {
	m.readyOnce.Do(func() {
		close(m.ready)
	})
}

// recordFailure remembers the first terminal backend error.
func (m *MPV) recordFailure(err error) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	if m.failWith == nil {
		m.failWith = err
	}
}

func (m *MPV) terminalFailure() error {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	return m.failWith
}

// emit pushes an event without blocking the read loop.
// Position samples are droppable under backpressure; ordering is preserved.
func (m *MPV) emit(e Event) {
	select {
	case m.events <- e:
	default:
		if e.Kind != EventPosition {
			// Make room by discarding the oldest entry.
			select {
			case <-m.events:
			default:
			}
			select {
			case m.events <- e:
			default:
			}
		}
	}
}

func stringField(fields map[string]interface{}, name string) string {
	v, _ := fields[name].(string)
	return v
}

// sanitizeMediaTarget validates that a URL is safe to pass to mpv.
// Prevents flag injection from untrusted stream manifests.
func sanitizeMediaTarget(link string) (string, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", fmt.Errorf("empty URL")
	}

	// Reject control characters
	if strings.ContainsAny(l, "\x00\n\r") {
		return "", fmt.Errorf("invalid control characters in URL")
	}

	// Prevent flag injection: URLs must not start with -
	if strings.HasPrefix(l, "-") {
		return "", fmt.Errorf("url must not start with '-' (looks like a flag)")
	}

	// If it contains "://", validate as URL
	if strings.Contains(l, "://") {
		u, err := url.Parse(l)
		if err != nil {
			return "", fmt.Errorf("invalid URL: %w", err)
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return l, nil
		default:
			return "", fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
		}
	}

	// Treat as local file path
	return filepath.Clean(l), nil
}

// sanitizeTitle cleans up the title for mpv's command line.
func sanitizeTitle(title string) string {
	t := strings.ReplaceAll(title, "\n", " ")
	t = strings.ReplaceAll(t, "\r", " ")
	t = strings.ReplaceAll(t, "\t", " ")
	t = strings.ReplaceAll(t, "\x00", "")
	return strings.TrimSpace(t)
}
