package history

import (
	"fmt"
	"time"

	"github.com/vireo-cli/vireo/stream"
)

// Record represents a single playback progress entry preserved in the user's history.
type Record struct {
	MediaID   string  `json:"media_id"`
	EpisodeID string  `json:"episode_id,omitempty"`
	Title     string  `json:"title"`
	Position  float64 `json:"position"`
	Duration  float64 `json:"duration"`
	Quality   string  `json:"quality"`
	Service   string  `json:"service"`
	URL       string  `json:"url"`

	Timestamp time.Time `json:"timestamp"`
	Completed bool      `json:"completed"`
}

// NewRecord builds a progress record snapshot for the given stream and playback clock.
func NewRecord(s *stream.Stream, position, duration float64, completed bool) Record {
	return Record{
		MediaID:   s.MediaID,
		EpisodeID: s.EpisodeID,
		Title:     s.Title,
		Position:  position,
		Duration:  duration,
		Quality:   s.Quality,
		Service:   s.Service,
		URL:       s.URL,
		Timestamp: time.Now(),
		Completed: completed,
	}
}

// Ratio returns the completion ratio of the record, 0 when the duration is unknown.
func (r *Record) Ratio() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return r.Position / r.Duration
}

// String returns a compact display form of the record.
func (r *Record) String() string {
	return fmt.Sprintf("%s : %.0f / %.0f", r.Title, r.Position, r.Duration)
}

func encode(mediaID, episodeID string) string {
	if episodeID == "" {
		return mediaID
	}
	return fmt.Sprintf("%s (%s)", mediaID, episodeID)
}

func (r *Record) encode() string {
	return encode(r.MediaID, r.EpisodeID)
}
