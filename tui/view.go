package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"
	"github.com/samber/lo"
	"github.com/vireo-cli/vireo/engine"
	"github.com/vireo-cli/vireo/icon"
	"github.com/vireo-cli/vireo/playback"
	"github.com/vireo-cli/vireo/style"
	"github.com/vireo-cli/vireo/util"
)

var paddingStyle = lipgloss.NewStyle().Padding(1, 2)

func (b *watchBubble) View() string {
	if b.quitting {
		return ""
	}

	var output string
	switch b.snapshot.State {
	case playback.StatePlaying:
		output = b.viewPlaying()
	case playback.StateBuffering:
		output = b.viewBuffering()
	case playback.StateFailed:
		output = b.viewFailed()
	default:
		output = b.viewPreparing()
	}

	return b.notifier.View(paddingStyle.Render(output))
}

func (b *watchBubble) viewPreparing() string {
	lines := []string{
		style.Title("Preparing"),
		"",
		b.spinnerC.View() + " " + b.streamLabel(),
	}

	if warnings := b.snapshot.Warnings; len(warnings) > 0 {
		lines = append(lines, "")
		for _, warning := range warnings {
			lines = append(lines, style.Faint(icon.Get(icon.Warning)+" "+warning))
		}
	}

	return strings.Join(lines, "\n")
}

func (b *watchBubble) viewBuffering() string {
	return strings.Join([]string{
		style.Title("Buffering"),
		"",
		b.spinnerC.View() + " " + b.streamLabel(),
		"",
		b.positionLine(),
	}, "\n")
}

func (b *watchBubble) viewPlaying() string {
	stateIcon := icon.Get(icon.Play)
	if b.snapshot.Paused {
		stateIcon = icon.Get(icon.Pause)
	}

	lines := []string{
		style.Title("Watching") + " " + style.Bold(b.streamLabel()),
		"",
		stateIcon + " " + b.positionLine(),
		b.progressC.ViewAs(b.snapshot.Progress()),
		"",
		b.tracksLine(),
	}

	if b.snapshot.Rate != 1.0 {
		lines = append(lines, style.Faint(fmt.Sprintf("rate %.2fx", b.snapshot.Rate)))
	}

	lines = append(lines, "", b.helpC.View(b.keymap))
	return strings.Join(lines, "\n")
}

func (b *watchBubble) viewFailed() string {
	diagnostic := b.snapshot.Diagnostic
	if diagnostic == "" && b.lastError != nil {
		diagnostic = b.lastError.Error()
	}

	width := util.Max(b.width-4, 20)
	return strings.Join([]string{
		style.ErrorTitle("Playback failed"),
		"",
		icon.Get(icon.Fail) + " " + wrap.String(diagnostic, width),
		"",
		style.Faint("r retry • n next stream • o open url • q quit"),
	}, "\n")
}

func (b *watchBubble) streamLabel() string {
	s := b.snapshot.Stream
	if s == nil {
		s = b.target
	}
	if s == nil {
		return ""
	}

	label := s.Title
	if label == "" {
		label = s.Filename
	}
	if s.Quality != "" {
		label += " " + style.Faint("["+s.Quality+"]")
	}
	if b.snapshot.Engine != "" {
		label += " " + style.Faint("via "+string(b.snapshot.Engine))
	}

	return label
}

func (b *watchBubble) positionLine() string {
	return fmt.Sprintf("%s / %s",
		util.FormatDuration(b.snapshot.Position),
		util.FormatDuration(b.snapshot.Duration),
	)
}

func (b *watchBubble) tracksLine() string {
	audio := trackName(b.snapshot.Audio, b.snapshot.SelectedAudio)
	subtitle := trackName(b.snapshot.Subtitles, b.snapshot.SelectedSubtitle)
	if subtitle == "" {
		subtitle = "off"
	}

	return style.Faint(fmt.Sprintf("%s %s  %s %s",
		icon.Get(icon.Success), audio,
		icon.Get(icon.Subtitle), subtitle,
	))
}

func trackName(tracks []engine.TrackOption, selected string) string {
	track, ok := lo.Find(tracks, func(t engine.TrackOption) bool {
		return t.Handle == selected
	})
	if !ok {
		return ""
	}
	return track.String()
}
