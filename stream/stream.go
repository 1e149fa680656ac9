// Package stream defines the domain model for playable media resources and their failover queues.
package stream

// Stream represents a single network-addressable media resource resolved upstream.
// It is immutable: the playback core only ever reads it.
type Stream struct {
	// Upstream identifier of the resolved stream.
	ID string `json:"id"`
	// Direct URL to the stream/file.
	URL string `json:"url"`
	// Quality label (e.g. "1080p", "720p").
	Quality string `json:"quality"`
	// Declared video codec tag (e.g. "h264", "hevc", "av1").
	Codec string `json:"codec"`
	// Declared container tag (e.g. "mkv", "mp4", "avi").
	Container string `json:"container"`
	// Declared audio tag (e.g. "aac", "dts", "truehd").
	Audio string `json:"audio"`
	// Human-readable release filename.
	Filename string `json:"filename"`
	// Owning debrid service tag (e.g. "realdebrid", "alldebrid").
	Service string `json:"service"`

	// MediaID identifies the owning library title.
	MediaID string `json:"media_id"`
	// EpisodeID identifies the episode within the title; empty for movies.
	EpisodeID string `json:"episode_id,omitempty"`
	// Title is the display name used for the player window and progress records.
	Title string `json:"title"`
	// ImdbID is used for external subtitle search when available.
	ImdbID string `json:"imdb_id,omitempty"`

	// Chapters holds optional timeline markers resolved upstream
	// (intro/credits segments, scene index).
	Chapters []Chapter `json:"chapters,omitempty"`
}

// Chapter is a named timeline marker attached to a stream.
type Chapter struct {
	Title string  `json:"title"`
	Time  float64 `json:"time"`
}

// String returns the quality or URL for display.
func (s *Stream) String() string {
	if s.Quality != "" {
		return s.Quality
	}
	return s.URL
}

// Remote reports whether the stream is served over the network rather than a local file.
func (s *Stream) Remote() bool {
	return len(s.URL) > 7 && (s.URL[:7] == "http://" || s.URL[:8] == "https://")
}

// Queue is the ordered same-title failover sequence of streams.
// It is built once per playback session and never mutated afterwards.
type Queue struct {
	streams []*Stream
}

// NewQueue copies the given streams into an immutable failover queue.
func NewQueue(streams []*Stream) *Queue {
	copied := make([]*Stream, len(streams))
	copy(copied, streams)
	return &Queue{streams: copied}
}

// Streams returns the ordered contents of the queue.
func (q *Queue) Streams() []*Stream {
	out := make([]*Stream, len(q.streams))
	copy(out, q.streams)
	return out
}

// Len returns the number of streams in the queue.
func (q *Queue) Len() int {
	return len(q.streams)
}

// At returns the stream at the given index, or nil when out of range.
func (q *Queue) At(i int) *Stream {
	if i < 0 || i >= len(q.streams) {
		return nil
	}
	return q.streams[i]
}
