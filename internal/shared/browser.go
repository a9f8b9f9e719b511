package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var startCommand = func(cmd *exec.Cmd) error { return cmd.Start() }

// browserCommand builds the command that opens url with the desktop's default handler on goos.
func browserCommand(goos, url string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("%w: cannot open a browser on %s", ErrNotImplemented, goos)
	}
}

// OpenURL opens url in the default system browser without waiting for it to exit.
//
// Used to show a workshop item's community page.
func OpenURL(url string) error {
	cmd, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	if err := startCommand(cmd); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
