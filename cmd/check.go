// Package cmd implements the command-line interface for vireo.
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/vireo-cli/vireo/color"
	"github.com/vireo-cli/vireo/constant"
	"github.com/vireo-cli/vireo/icon"
	"github.com/vireo-cli/vireo/style"
)

// CheckDependencies verifies the availability of required playback backends.
// The mpv binary must be reachable in PATH; on macOS its absence is tolerated
// because the native engine can still serve the session.
func CheckDependencies() {
	_, err := exec.LookPath("mpv")
	if err == nil {
		return
	}

	if runtime.GOOS == constant.Darwin {
		fmt.Printf("%s mpv not found in PATH, only the native engine is available\n", icon.Get(icon.Warning))
		return
	}

	printMissingDependencyError("mpv")
	os.Exit(1)
}

func printMissingDependencyError(dep string) {
	var installCmd string
	switch runtime.GOOS {
	case constant.Darwin:
		installCmd = "brew install mpv"
	case constant.Linux:
		installCmd = "sudo apt install mpv"
	case constant.Windows:
		installCmd = "scoop install mpv"
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(color.HiRed).Render(fmt.Sprintf("%s Error: Missing Dependency", icon.Get(icon.Fail)))
	body := fmt.Sprintf("The required dependency '%s' was not found in your PATH.", dep)

	suggestion := ""
	if installCmd != "" {
		suggestion = fmt.Sprintf("\n\nTo install it, try running:\n  %s", style.New().Foreground(color.HiCyan).Bold(true).Render(installCmd))
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
