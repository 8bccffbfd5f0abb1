package systemd

import (
	"fmt"
	"io"

	"github.com/coreos/go-systemd/v22/unit"
)

// Unit is a systemd unit file identified by its full name, e.g.
// "lynxd.service" or "lynx-backup.timer".
type Unit struct {
	Name    string
	Options []*unit.UnitOption
}

// Render serialises the unit into systemd's file format
func (u Unit) Render() ([]byte, error) {
	if u.Name == "" {
		return nil, fmt.Errorf("unit has no name")
	}
	if len(u.Options) == 0 {
		return nil, fmt.Errorf("unit %s has no options", u.Name)
	}
	data, err := io.ReadAll(unit.Serialize(u.Options))
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", u.Name, err)
	}
	return data, nil
}
