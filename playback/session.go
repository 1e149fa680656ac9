package playback

import (
	"sync"

	"github.com/vireo-cli/vireo/engine"
	"github.com/vireo-cli/vireo/stream"
)

// session is the mutable per-playback state, exclusively owned by the
// orchestrator. It is destroyed and rebuilt wholesale whenever the target
// stream changes so that track lists, chapters and the position value can
// never leak across streams.
type session struct {
	stream   *stream.Stream
	engineID engine.ID

	position float64
	duration float64
	buffered float64
	rate     float64
	paused   bool

	audio            []engine.TrackOption
	subtitles        []engine.TrackOption
	selectedAudio    string
	selectedSubtitle string
	chapters         []engine.Chapter

	// Scratch file holding a downloaded external subtitle, removed on teardown.
	subtitleScratch string

	// played marks that StatePlaying was reached at least once. Stalls after
	// that map to buffering, never back to preparing.
	played bool

	// autoSearched gates the opportunistic subtitle search to once per session.
	autoSearched bool

	// finalWrite guards the teardown progress write so the periodic task and
	// the teardown path never both persist the closing snapshot.
	finalWrite sync.Once
}

func newSession(s *stream.Stream) *session {
	return &session{stream: s, rate: 1.0}
}

// Snapshot is a copy of the observable orchestrator state, safe for the UI
// to read without holding any lock.
type Snapshot struct {
	State            State
	Stream           *stream.Stream
	Engine           engine.ID
	Position         float64
	Duration         float64
	Buffered         float64
	Rate             float64
	Paused           bool
	Audio            []engine.TrackOption
	Subtitles        []engine.TrackOption
	SelectedAudio    string
	SelectedSubtitle string
	Chapters         []engine.Chapter
	Warnings         []string
	Diagnostic       string
}

// Progress returns the completion fraction of the snapshot, in [0, 1].
func (s *Snapshot) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return s.Position / s.Duration
}
