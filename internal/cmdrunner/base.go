package cmdrunner

import (
	"context"
	"os/exec"

	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
)

// CommandRunner executes external programs. Callers depend on this
// interface so tests can script command output.
type CommandRunner interface {
	SetCommand(ctx context.Context, cmd string, args ...string) *exec.Cmd
	CombinedOutput(cmd *exec.Cmd) ([]byte, error)
	Run(ctx context.Context, cmd string, args ...string) error
	RunWithOutput(ctx context.Context, cmd string, args ...string) ([]byte, error)
	RunStdout(ctx context.Context, cmd string, args ...string) ([]byte, error)
	RunAndTrimmedOutput(ctx context.Context, cmd string, args ...string) (string, error)
}

type CommandsRunner struct {
	logger *logger.Logger
}

var _ CommandRunner = (*CommandsRunner)(nil)

func NewCommandsRunner() *CommandsRunner {
	return &CommandsRunner{logger: logger.NewLogger("command_runner")}
}
