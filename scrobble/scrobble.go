// Package scrobble notifies an external tracking service about playback
// lifecycle transitions. Notifications are fire-and-forget: a tracker outage
// never surfaces into the playback path.
package scrobble

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"github.com/vireo-cli/vireo/constant"
	"github.com/vireo-cli/vireo/internal/sync"
	"github.com/vireo-cli/vireo/key"
	"github.com/vireo-cli/vireo/log"
	"github.com/vireo-cli/vireo/network"
	"github.com/vireo-cli/vireo/stream"
)

// Action is a playback lifecycle transition reported to the tracker.
type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
)

// Coordinator reports playback transitions for a stream. Progress is the
// fraction of the media watched so far, in [0, 1]; for Start it is the
// resume point the session begins at, 0 for a fresh viewing.
type Coordinator interface {
	Start(s *stream.Stream, progress float64)
	Pause(s *stream.Stream, progress float64)
	Resume(s *stream.Stream, progress float64)
	Stop(s *stream.Stream, progress float64)
}

// New returns the configured coordinator. Scrobbling disabled in config
// yields a no-op implementation.
func New() Coordinator {
	if !viper.GetBool(key.ScrobbleEnable) {
		return noop{}
	}

	return &remote{endpoint: viper.GetString(key.ScrobbleEndpoint)}
}

type noop struct{}

func (noop) Start(*stream.Stream, float64)  {}
func (noop) Pause(*stream.Stream, float64)  {}
func (noop) Resume(*stream.Stream, float64) {}
func (noop) Stop(*stream.Stream, float64)   {}

type remote struct {
	endpoint string
}

func (r *remote) Start(s *stream.Stream, progress float64)  { r.notify(ActionStart, s, progress) }
func (r *remote) Pause(s *stream.Stream, progress float64)  { r.notify(ActionPause, s, progress) }
func (r *remote) Resume(s *stream.Stream, progress float64) { r.notify(ActionResume, s, progress) }
func (r *remote) Stop(s *stream.Stream, progress float64)   { r.notify(ActionStop, s, progress) }

type event struct {
	Action    Action  `json:"action"`
	MediaID   string  `json:"media_id"`
	MediaType string  `json:"media_type"`
	EpisodeID string  `json:"episode_id,omitempty"`
	Title     string  `json:"title,omitempty"`
	Service   string  `json:"service,omitempty"`
	Progress  float64 `json:"progress"`
}

// mediaType classifies the stream for the tracker payload.
func mediaType(s *stream.Stream) string {
	if s.EpisodeID != "" {
		return "episode"
	}
	return "movie"
}

func (r *remote) notify(action Action, s *stream.Stream, progress float64) {
	if s == nil || r.endpoint == "" {
		return
	}

	payload := event{
		Action:    action,
		MediaID:   s.MediaID,
		MediaType: mediaType(s),
		EpisodeID: s.EpisodeID,
		Title:     s.Title,
		Service:   s.Service,
		Progress:  progress,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		body, err := json.Marshal(payload)
		if err != nil {
			log.Errorf("scrobble: marshal %s event: %v", action, err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
		if err != nil {
			log.Errorf("scrobble: build %s request: %v", action, err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", constant.UserAgent)

		resp, err := network.Client.Do(req)
		if err != nil {
			log.Warnf("scrobble: %s notification failed: %v", action, err)
			_ = sync.QueueFailure(r.endpoint, string(body))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			log.Warnf("scrobble: %s notification returned status %d", action, resp.StatusCode)
			_ = sync.QueueFailure(r.endpoint, string(body))
		}
	}()
}
