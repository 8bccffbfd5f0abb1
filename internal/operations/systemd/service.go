package systemd

import (
	"context"
	"time"
)

// Unit active states reported by systemd
const (
	StateActive     = "active"
	StateInactive   = "inactive"
	StateFailed     = "failed"
	StateActivating = "activating"
)

// Manager supervises systemd units. Implementations must treat stopping an
// inactive unit and disabling an undefined unit as no-ops.
type Manager interface {
	// Define writes the unit file and reloads systemd. It reports whether
	// the file on disk changed.
	Define(ctx context.Context, u Unit) (bool, error)
	IsDefined(ctx context.Context, name string) (bool, error)
	Enable(ctx context.Context, name string) error
	Disable(ctx context.Context, name string) error
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	ActiveState(ctx context.Context, name string) (string, error)
	// NextElapse returns the next wall-clock trigger of a timer unit, or the
	// zero time when none is scheduled.
	NextElapse(ctx context.Context, name string) (time.Time, error)
}

// TearDown stops and disables a unit, ignoring errors. It returns the
// errors it swallowed so callers can log them.
func TearDown(ctx context.Context, m Manager, name string) []error {
	var errs []error
	if err := m.Stop(ctx, name); err != nil {
		errs = append(errs, err)
	}
	if err := m.Disable(ctx, name); err != nil {
		errs = append(errs, err)
	}
	return errs
}
