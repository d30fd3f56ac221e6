package executor

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"

	"github.com/iishyfishyy/yehdekho/internal/logging"
)

// ErrUnsafeURL is returned for anything that is not an absolute http(s) URL
var ErrUnsafeURL = errors.New("refusing to open non-http URL")

// ValidateURL checks that raw is an absolute http or https URL
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrUnsafeURL, raw)
	}
	return nil
}

// openerCommand returns the platform command that opens a URL in the
// default browser
func openerCommand(goos, target string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}

// OpenURL opens a poster or page in the user's browser
func OpenURL(target string) error {
	if err := ValidateURL(target); err != nil {
		return err
	}

	name, args := openerCommand(runtime.GOOS, target)
	log := logging.Component("executor")
	log.Debug().Str("opener", name).Str("url", target).Msg("opening url")

	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}

	// the browser outlives us; reap the opener in the background
	go func() {
		if err := cmd.Wait(); err != nil {
			var exitError *exec.ExitError
			if errors.As(err, &exitError) {
				log.Debug().Int("exit_code", exitError.ExitCode()).Msg("opener failed")
			}
		}
	}()

	return nil
}
