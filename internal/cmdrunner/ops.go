package cmdrunner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

func (r *CommandsRunner) SetCommand(ctx context.Context, cmd string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, cmd, args...)
}

func (r *CommandsRunner) CombinedOutput(cmd *exec.Cmd) ([]byte, error) {
	return cmd.CombinedOutput()
}

func (r *CommandsRunner) Run(ctx context.Context, cmd string, args ...string) error {
	_, err := r.RunWithOutput(ctx, cmd, args...)
	return err
}

func (r *CommandsRunner) RunWithOutput(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd, args...)
	output, err := c.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Debugf("command failed: %s %v\n%s", cmd, args, string(output))
		return nil, fmt.Errorf("command error: %w\n%s", err, string(output))
	}
	return output, nil
}

// RunStdout returns only stdout, so JSON printed by a tool is not mixed
// with warnings it writes to stderr.
func (r *CommandsRunner) RunStdout(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd, args...)
	c.Stdout = &stdout
	c.Stderr = &stderr
	if err := c.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Debugf("command failed: %s %v\n%s", cmd, args, stderr.String())
		return nil, fmt.Errorf("command error: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func (r *CommandsRunner) RunAndTrimmedOutput(ctx context.Context, cmd string, args ...string) (string, error) {
	out, err := r.RunWithOutput(ctx, cmd, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
