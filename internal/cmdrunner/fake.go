package cmdrunner

import (
	"context"
	"os/exec"
	"strings"
	"sync"
)

// Fake is a CommandRunner whose results are scripted by Handler. Every
// invocation is recorded in Calls as "name arg1 arg2".
type Fake struct {
	Handler func(name string, args []string) ([]byte, error)

	mu    sync.Mutex
	calls []string
}

var _ CommandRunner = (*Fake)(nil)

func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) exec(name string, args []string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	f.mu.Unlock()
	if f.Handler == nil {
		return nil, nil
	}
	return f.Handler(name, args)
}

func (f *Fake) SetCommand(ctx context.Context, cmd string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, cmd, args...)
}

func (f *Fake) CombinedOutput(cmd *exec.Cmd) ([]byte, error) {
	var args []string
	if len(cmd.Args) > 1 {
		args = cmd.Args[1:]
	}
	name := cmd.Path
	if len(cmd.Args) > 0 {
		name = cmd.Args[0]
	}
	return f.exec(name, args)
}

func (f *Fake) Run(ctx context.Context, cmd string, args ...string) error {
	_, err := f.exec(cmd, args)
	return err
}

func (f *Fake) RunWithOutput(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return f.exec(cmd, args)
}

func (f *Fake) RunStdout(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return f.exec(cmd, args)
}

func (f *Fake) RunAndTrimmedOutput(ctx context.Context, cmd string, args ...string) (string, error) {
	out, err := f.exec(cmd, args)
	return strings.TrimSpace(string(out)), err
}
