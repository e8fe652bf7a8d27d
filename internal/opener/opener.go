package opener

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// Opener hands locators to the desktop's default handler
type Opener struct {
	// Command is the handler and its leading arguments; the locator is
	// appended as the final argument.
	Command []string

	start func(*exec.Cmd) error
}

// New creates an opener running command
func New(command ...string) *Opener {
	return &Opener{Command: command, start: startDetached}
}

// Open starts the handler for locator in its own session and returns
// without waiting, so it outlives the launcher.
func (o *Opener) Open(locator string) error {
	if len(o.Command) == 0 {
		return errors.New("no opener command configured")
	}

	args := append(append([]string{}, o.Command[1:]...), locator)
	cmd := exec.Command(o.Command[0], args...) // #nosec G204 - command comes from the user's configuration
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	start := o.start
	if start == nil {
		start = startDetached
	}
	if err := start(cmd); err != nil {
		return fmt.Errorf("can't open %s: %w", locator, err)
	}
	return nil
}

// startDetached starts cmd with stdio on the null device and releases it
func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
