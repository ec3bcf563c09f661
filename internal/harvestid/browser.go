package harvestid

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Launcher opens a URL in the operator's browser. It is an injected
// capability so the authorization flow can be exercised in tests without
// spawning real processes.
type Launcher interface {
	Open(url string) error
}

// ExecLauncher opens URLs with the platform's default opener.
type ExecLauncher struct{}

// Compile-time check to ensure ExecLauncher implements Launcher
var _ Launcher = (*ExecLauncher)(nil)

// Open launches the default browser for the URL. The command is started
// but not waited on; the browser keeps running in the background.
func (ExecLauncher) Open(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}
