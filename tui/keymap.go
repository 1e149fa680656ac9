package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// watchKeymap defines the keyboard controls of the watch interface.
type watchKeymap struct {
	quit, forceQuit,
	playPause,
	seekBack, seekForward,
	rateUp, rateDown,
	cycleAudio, cycleSubtitle,
	retry, nextStream, openURL,
	showHelp key.Binding
}

func newWatchKeymap() *watchKeymap {
	return &watchKeymap{
		quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		playPause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "play/pause"),
		),
		seekBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "seek -10s"),
		),
		seekForward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "seek +10s"),
		),
		rateUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "faster"),
		),
		rateDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "slower"),
		),
		cycleAudio: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "audio track"),
		),
		cycleSubtitle: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "subtitle track"),
		),
		retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		nextStream: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next stream"),
		),
		openURL: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open url"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k *watchKeymap) ShortHelp() []key.Binding {
	return []key.Binding{k.playPause, k.seekBack, k.seekForward, k.cycleSubtitle, k.quit}
}

// FullHelp implements help.KeyMap.
func (k *watchKeymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.playPause, k.seekBack, k.seekForward, k.rateUp, k.rateDown},
		{k.cycleAudio, k.cycleSubtitle, k.retry, k.nextStream, k.openURL},
		{k.showHelp, k.quit, k.forceQuit},
	}
}
