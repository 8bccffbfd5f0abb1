package installer

import (
	"context"
	"errors"
	"fmt"

	"github.com/CloudNativeWorks/lynx-node/internal/cmdrunner"
	"github.com/CloudNativeWorks/lynx-node/internal/platform"
	"github.com/sirupsen/logrus"
)

var ErrUnsupportedFamily = errors.New("no package manager known for this OS family")

// packageManager describes how a distribution family queries and installs packages
type packageManager struct {
	query   []string
	install []string
}

var packageManagers = map[platform.OSFamily]packageManager{
	platform.Debian: {
		query:   []string{"dpkg", "-s"},
		install: []string{"env", "DEBIAN_FRONTEND=noninteractive", "apt-get", "install", "-y", "-q"},
	},
	platform.RedHat: {
		query:   []string{"rpm", "-q"},
		install: []string{"dnf", "install", "-y", "-q"},
	},
}

// EnsurePackages installs the missing system packages. Packages that are
// already installed are not touched, so repeated runs make no changes.
func EnsurePackages(ctx context.Context, runner cmdrunner.CommandRunner, family platform.OSFamily, packages []string) ([]string, error) {
	if len(packages) == 0 {
		return nil, nil
	}
	pm, ok := packageManagers[family]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFamily, family)
	}

	var missing []string
	for _, pkg := range packages {
		args := append(append([]string{}, pm.query[1:]...), pkg)
		if err := runner.Run(ctx, pm.query[0], args...); err != nil {
			missing = append(missing, pkg)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	logrus.WithField("packages", missing).Info("Installing system packages")
	args := append(append([]string{}, pm.install[1:]...), missing...)
	if err := runner.Run(ctx, pm.install[0], args...); err != nil {
		return nil, fmt.Errorf("package installation failed: %w", err)
	}
	return missing, nil
}
