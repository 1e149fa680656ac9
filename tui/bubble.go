package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vireo-cli/vireo/internal/ui"
	"github.com/vireo-cli/vireo/playback"
	"github.com/vireo-cli/vireo/stream"
	"github.com/vireo-cli/vireo/util"
)

// watchBubble renders one playback session. It never mutates orchestrator
// state directly; all control flows through the orchestrator's operations
// and all display state comes from snapshots.
type watchBubble struct {
	orchestrator *playback.Orchestrator
	target       *stream.Stream

	snapshot playback.Snapshot

	keymap    *watchKeymap
	spinnerC  spinner.Model
	progressC progress.Model
	helpC     help.Model
	notifier  *ui.Model

	width, height int
	preparing     bool
	quitting      bool
	lastError     error
}

// snapshotMsg carries a fresh orchestrator snapshot into the update loop.
type snapshotMsg playback.Snapshot

// prepareDoneMsg signals that the prepare pipeline finished, successfully or not.
type prepareDoneMsg struct{ err error }

func newWatchBubble(options *Options) *watchBubble {
	spinnerC := spinner.New()
	spinnerC.Spinner = spinner.Dot

	bubble := &watchBubble{
		orchestrator: options.Orchestrator,
		target:       options.Stream,
		keymap:       newWatchKeymap(),
		spinnerC:     spinnerC,
		progressC:    progress.New(progress.WithDefaultGradient()),
		helpC:        help.New(),
		notifier:     &ui.Model{},
		preparing:    true,
	}

	if w, h, err := util.TerminalSize(); err == nil {
		bubble.width, bubble.height = w, h
	}

	return bubble
}

func (b *watchBubble) Init() tea.Cmd {
	return tea.Batch(
		b.spinnerC.Tick,
		b.prepareCmd(b.target),
		b.awaitUpdate(),
	)
}

// prepareCmd runs the engine attempt loop off the UI goroutine.
func (b *watchBubble) prepareCmd(s *stream.Stream) tea.Cmd {
	return func() tea.Msg {
		return prepareDoneMsg{err: b.orchestrator.PreparePlayback(context.Background(), s)}
	}
}

// awaitUpdate blocks on the orchestrator's wakeup channel and delivers the
// next snapshot.
func (b *watchBubble) awaitUpdate() tea.Cmd {
	return func() tea.Msg {
		<-b.orchestrator.Updates()
		return snapshotMsg(b.orchestrator.Snapshot())
	}
}
