package template

import (
	"io"
	"testing"

	"github.com/coreos/go-systemd/v22/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, opts []*unit.UnitOption) string {
	t.Helper()
	data, err := io.ReadAll(unit.Serialize(opts))
	require.NoError(t, err)
	return string(data)
}

func TestDaemonService(t *testing.T) {
	out := render(t, DaemonService(DaemonParams{
		DaemonPath: "/usr/local/bin/lynxd",
		WorkingDir: "/var/lib/lynx",
		ConfPath:   "/var/lib/lynx/lynx.conf",
		User:       "root",
	}))

	assert.Contains(t, out, "ExecStart=/usr/local/bin/lynxd -daemon -datadir=/var/lib/lynx -conf=/var/lib/lynx/lynx.conf\n")
	assert.Contains(t, out, "Restart=on-failure\n")
	assert.Contains(t, out, "RestartSec=30\n")
	assert.Contains(t, out, "WantedBy=multi-user.target\n")
}

func TestTimers(t *testing.T) {
	sync := render(t, SyncTimer("sync monitor"))
	assert.Contains(t, sync, "OnBootSec=2min\n")
	assert.Contains(t, sync, "OnUnitActiveSec=12min\n")

	backup := render(t, BackupTimerOptions())
	assert.Contains(t, backup, "OnCalendar=*-*-* 00/6:00:00\n")
	assert.Contains(t, backup, "Persistent=true\n")
}
