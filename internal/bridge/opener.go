package bridge

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Opener opens a URL so that a context serving it eventually registers.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// NoopOpener leaves the bridge pending until a matching tab registers on its
// own.
type NoopOpener struct{}

func (NoopOpener) Open(context.Context, string) error { return nil }

// CommandOpener launches an external command with the URL appended as the
// last argument, e.g. "xdg-open" or "firefox --new-tab".
type CommandOpener struct {
	Command string
}

func (o CommandOpener) Open(ctx context.Context, url string) error {
	fields := strings.Fields(o.Command)
	if len(fields) == 0 {
		return errors.New("open command is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	args := append(fields[1:], url)
	// The launched browser outlives the request that asked for it.
	cmd := exec.Command(fields[0], args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// OpenerFor returns a CommandOpener for command, or NoopOpener when command
// is blank.
func OpenerFor(command string) Opener {
	if strings.TrimSpace(command) == "" {
		return NoopOpener{}
	}
	return CommandOpener{Command: command}
}
