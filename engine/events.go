package engine

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/vireo-cli/vireo/log"
)

// listener owns the persistent IPC connection used for mpv property-change
// notifications. Backend callbacks are translated into the adapter's single
// ordered event channel so the orchestrator drains them on its own goroutine.
type listener struct {
	conn     net.Conn
	stopCh   chan struct{}
	stopOnce sync.Once
}

func (l *listener) stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		if l.conn != nil {
			_ = l.conn.Close()
		}
	})
}

// startListener subscribes to the property observers and starts the read loop.
func (m *MPV) startListener() (*listener, error) {
	// observe_property <id> <property>: mpv sends notifications when they change.
	properties := []struct {
		id   int
		name string
	}{
		{1, "time-pos"},         // position samples for progress persistence
		{2, "pause"},            // pause/resume transitions
		{3, "paused-for-cache"}, // stall detection
		{4, "eof-reached"},      // end-of-media detection
		{5, "duration"},         // duration becomes known after load
	}

	for _, prop := range properties {
		if _, err := doSendCommand(m.socketPath, []interface{}{"observe_property", prop.id, prop.name}); err != nil {
			return nil, fmt.Errorf("observe %s: %w", prop.name, err)
		}
	}

	conn, err := net.Dial("unix", m.socketPath)
	if err != nil {
		return nil, fmt.Errorf("event listener connect: %w", err)
	}

	l := &listener{conn: conn, stopCh: make(chan struct{})}
	go m.readLoop(l)

	log.Infof("mpv event listener started on %s", m.socketPath)
	return l, nil
}

// readLoop continuously reads newline-delimited JSON events from the persistent connection.
func (m *MPV) readLoop(l *listener) {
	buf := make([]byte, 8192)
	var remainder []byte

	// Event-local playback clock; only this goroutine writes it.
	var duration float64

	for {
		select {
		case <-l.stopCh:
			return
		case <-m.exited:
			return
		default:
		}

		// Bounded read so the stop channel is observed promptly.
		if err := l.conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
			return
		}

		n, err := l.conn.Read(buf)
		if err != nil {
			if strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline") {
				continue
			}
			select {
			case <-l.stopCh:
			case <-m.exited:
			default:
				log.Warnf("event listener read error: %v", err)
			}
			return
		}

		// mpv sends multiple JSON objects separated by newlines.
		data := append(remainder, buf[:n]...)
		remainder = nil

		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			// Last incomplete line goes to remainder for the next read.
			if i == len(lines)-1 && !strings.HasSuffix(string(data), "\n") {
				remainder = []byte(line)
				continue
			}

			duration = m.processEvent(line, duration)
		}
	}
}

// processEvent parses one mpv event line and forwards it on the event channel.
// It returns the updated duration so the read loop can stamp position samples.
func (m *MPV) processEvent(line string, duration float64) float64 {
	var event map[string]interface{}
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return duration // skip unparseable lines
	}

	kind, _ := event["event"].(string)
	switch kind {
	case "file-loaded":
		m.markReady()
		m.emit(Event{Kind: EventReady, Duration: duration})

	case "end-file":
		if reason, _ := event["reason"].(string); reason == "error" {
			cause := fmt.Errorf("mpv terminated the stream")
			if detail, _ := event["file_error"].(string); detail != "" {
				cause = fmt.Errorf("mpv terminated the stream: %s", detail)
			}
			m.recordFailure(cause)
			m.emit(Event{Kind: EventFailed, Err: cause})
		}

	case "property-change":
		name, _ := event["name"].(string)
		switch name {
		case "time-pos":
			if pos, ok := event["data"].(float64); ok {
				m.emit(Event{Kind: EventPosition, Position: pos, Duration: duration})
			}
		case "duration":
			if d, ok := event["data"].(float64); ok {
				duration = d
			}
		case "pause":
			if paused, ok := event["data"].(bool); ok {
				if paused {
					m.emit(Event{Kind: EventPaused})
				} else {
					m.emit(Event{Kind: EventPlaying})
				}
			}
		case "paused-for-cache":
			if stalled, ok := event["data"].(bool); ok {
				if stalled {
					m.emit(Event{Kind: EventBuffering})
				} else {
					m.emit(Event{Kind: EventPlaying})
				}
			}
		case "eof-reached":
			if eof, ok := event["data"].(bool); ok && eof {
				m.emit(Event{Kind: EventEnded})
			}
		}
	}

	return duration
}
