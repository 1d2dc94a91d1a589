package gmail

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/pkg/browser"
)

// OpenBrowser opens url in the user's default browser, falling back to
// the platform's generic URL opener.
func OpenBrowser(url string) error {
	err := browser.OpenURL(url)
	if err == nil {
		return nil
	}

	cmd := fallbackOpener(url)
	if startErr := cmd.Start(); startErr != nil {
		return fmt.Errorf("opening browser: %w", errors.Join(err, startErr))
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func fallbackOpener(url string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url)
	case "windows":
		return exec.Command("explorer", url)
	default:
		return exec.Command("gio", "open", url)
	}
}
