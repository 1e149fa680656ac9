package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vireo-cli/vireo/engine"
	"github.com/vireo-cli/vireo/internal/ui"
	"github.com/vireo-cli/vireo/open"
	"github.com/vireo-cli/vireo/playback"
	"github.com/vireo-cli/vireo/util"
)

const seekStep = 10.0

func (b *watchBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case string, ui.ClearNotificationMsg:
		return b, b.notifier.Update(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
		b.progressC.Width = util.Min(msg.Width-4, 60)
		b.helpC.Width = msg.Width
		return b, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinnerC, cmd = b.spinnerC.Update(msg)
		return b, cmd

	case snapshotMsg:
		b.snapshot = playback.Snapshot(msg)
		if b.snapshot.State == playback.StateIdle && !b.preparing {
			// The session ended on its own (end of file).
			b.quitting = true
			return b, tea.Quit
		}
		return b, b.awaitUpdate()

	case prepareDoneMsg:
		b.preparing = false
		b.lastError = msg.err
		b.snapshot = b.orchestrator.Snapshot()
		return b, nil

	case tea.KeyMsg:
		return b.handleKey(msg)
	}

	return b, nil
}

func (b *watchBubble) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keymap := b.keymap

	switch {
	case key.Matches(msg, keymap.forceQuit), key.Matches(msg, keymap.quit):
		b.quitting = true
		return b, tea.Quit

	case key.Matches(msg, keymap.showHelp):
		b.helpC.ShowAll = !b.helpC.ShowAll
		return b, nil
	}

	switch b.snapshot.State {
	case playback.StatePlaying, playback.StateBuffering:
		return b.handlePlayingKey(msg)
	case playback.StateFailed:
		return b.handleFailedKey(msg)
	}

	return b, nil
}

func (b *watchBubble) handlePlayingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keymap := b.keymap

	switch {
	case key.Matches(msg, keymap.playPause):
		if b.snapshot.Paused {
			return b, b.control(b.orchestrator.Play)
		}
		return b, b.control(b.orchestrator.Pause)

	case key.Matches(msg, keymap.seekBack):
		return b, b.control(func() error {
			return b.orchestrator.Seek(util.Max(b.snapshot.Position-seekStep, 0))
		})

	case key.Matches(msg, keymap.seekForward):
		return b, b.control(func() error {
			return b.orchestrator.Seek(b.snapshot.Position + seekStep)
		})

	case key.Matches(msg, keymap.rateUp):
		return b, b.control(func() error {
			return b.orchestrator.SetRate(util.Min(b.snapshot.Rate+0.25, 3.0))
		})

	case key.Matches(msg, keymap.rateDown):
		return b, b.control(func() error {
			return b.orchestrator.SetRate(util.Max(b.snapshot.Rate-0.25, 0.25))
		})

	case key.Matches(msg, keymap.cycleAudio):
		if handle, ok := nextTrack(b.snapshot.Audio, b.snapshot.SelectedAudio, false); ok {
			return b, b.control(func() error { return b.orchestrator.SelectAudio(handle) })
		}

	case key.Matches(msg, keymap.cycleSubtitle):
		if handle, ok := nextTrack(b.snapshot.Subtitles, b.snapshot.SelectedSubtitle, true); ok {
			return b, b.control(func() error { return b.orchestrator.SelectSubtitle(handle) })
		}
	}

	return b, nil
}

// control runs an orchestrator operation and surfaces its error as an
// ephemeral notification.
func (b *watchBubble) control(op func() error) tea.Cmd {
	if err := op(); err != nil {
		return ui.Notify(err.Error())
	}
	return nil
}

func (b *watchBubble) handleFailedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keymap := b.keymap

	switch {
	case key.Matches(msg, keymap.retry):
		b.preparing = true
		return b, tea.Batch(b.spinnerC.Tick, func() tea.Msg {
			return prepareDoneMsg{err: b.orchestrator.Retry(context.Background())}
		})

	case key.Matches(msg, keymap.nextStream):
		b.preparing = true
		return b, tea.Batch(b.spinnerC.Tick, func() tea.Msg {
			return prepareDoneMsg{err: b.orchestrator.NextStream(context.Background())}
		})

	case key.Matches(msg, keymap.openURL):
		s := b.snapshot.Stream
		if s == nil {
			s = b.target
		}
		if err := open.Start(s.URL); err != nil {
			return b, ui.Notify(err.Error())
		}
		return b, ui.Notify("opened stream url")
	}

	return b, nil
}

// nextTrack returns the handle following the currently selected one.
// withOff appends an "off" slot (empty handle) to the cycle, used for subtitles.
func nextTrack(tracks []engine.TrackOption, selected string, withOff bool) (string, bool) {
	if len(tracks) == 0 {
		return "", false
	}

	handles := make([]string, 0, len(tracks)+1)
	for _, track := range tracks {
		handles = append(handles, track.Handle)
	}
	if withOff {
		handles = append(handles, "")
	}

	for i, handle := range handles {
		if handle == selected {
			return handles[(i+1)%len(handles)], true
		}
	}

	return handles[0], true
}
