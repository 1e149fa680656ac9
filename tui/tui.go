// Package tui implements the terminal watch interface: a compact view over a
// playback session with controls for pause, seeking, track cycling and
// stream failover.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vireo-cli/vireo/playback"
	"github.com/vireo-cli/vireo/stream"
)

// Options configures the watch interface.
type Options struct {
	// Orchestrator drives the playback session the interface observes.
	Orchestrator *playback.Orchestrator

	// Stream is the initial playback target.
	Stream *stream.Stream
}

// Run blocks until the watch session ends.
func Run(options *Options) error {
	bubble := newWatchBubble(options)
	program := tea.NewProgram(bubble)

	_, err := program.Run()
	options.Orchestrator.Teardown()
	return err
}
