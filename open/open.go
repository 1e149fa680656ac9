package open

import (
	"os/exec"
	"runtime"

	"github.com/vireo-cli/vireo/constant"
)

// Run opens the given input with the default application and waits for it
// to exit.
func Run(input string) error {
	return command(input).Run()
}

// Start opens the given input with the default application without waiting.
func Start(input string) error {
	return command(input).Start()
}

// RunWith opens the given input with the specified application and waits.
func RunWith(input string, appName string) error {
	return commandWith(input, appName).Run()
}

// StartWith opens the given input with the specified application without
// waiting.
func StartWith(input string, appName string) error {
	return commandWith(input, appName).Start()
}

func command(input string) *exec.Cmd {
	switch runtime.GOOS {
	case constant.Darwin:
		return exec.Command("open", input)
	case constant.Windows:
		return exec.Command("cmd", "/C", "start", "", input)
	default:
		return exec.Command("xdg-open", input)
	}
}

func commandWith(input, appName string) *exec.Cmd {
	switch runtime.GOOS {
	case constant.Darwin:
		return exec.Command("open", "-a", appName, input)
	case constant.Windows:
		return exec.Command("cmd", "/C", "start", "", appName, input)
	default:
		return exec.Command(appName, input)
	}
}
