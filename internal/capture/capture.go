// Package capture launches the platform's interactive screenshot tool.
// The captured image lands wherever that tool puts it (usually the clipboard);
// this package only starts it.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

// ErrNoTool is returned when no known screenshot tool is available.
var ErrNoTool = errors.New("no screenshot tool found")

// Command is one way of starting a screenshot tool.
type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v", c.Name, c.Args)
}

// strategies lists candidate commands per GOOS, in order of preference.
var strategies = map[string][]Command{
	"windows": {{Name: "cmd", Args: []string{"/c", "ms-screencapture:"}}},
	"darwin":  {{Name: "screencapture", Args: []string{"-i"}}},
	"linux": {
		{Name: "gnome-screenshot", Args: []string{"-a"}},
		{Name: "spectacle", Args: []string{"-r"}},
	},
}

// Trigger starts screenshot tools for one platform.
type Trigger struct {
	goos     string
	lookPath func(file string) (string, error)
	start    func(ctx context.Context, path string, args []string) error
}

// NewTrigger creates a trigger for the running platform.
func NewTrigger() *Trigger {
	return &Trigger{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		start:    startDetached,
	}
}

// Candidates returns the commands tried on the trigger's platform.
func (t *Trigger) Candidates() []Command {
	return strategies[t.goos]
}

// Resolve picks the first candidate whose executable can be found.
func (t *Trigger) Resolve() (Command, string, error) {
	candidates := t.Candidates()
	if len(candidates) == 0 {
		return Command{}, "", fmt.Errorf("screenshot is not supported on %s", t.goos)
	}
	for _, c := range candidates {
		if path, err := t.lookPath(c.Name); err == nil {
			return c, path, nil
		}
	}
	return Command{}, "", fmt.Errorf("%w on %s", ErrNoTool, t.goos)
}

// Trigger starts the screenshot tool without waiting for it to exit.
func (t *Trigger) Trigger(ctx context.Context) (Command, error) {
	cmd, path, err := t.Resolve()
	if err != nil {
		return Command{}, err
	}
	if err := t.start(ctx, path, cmd.Args); err != nil {
		return Command{}, fmt.Errorf("failed to start %s: %w", cmd.Name, err)
	}
	return cmd, nil
}

func startDetached(ctx context.Context, path string, args []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := exec.Command(path, args...) //nolint:gosec // G204: fixed command table
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
