package templates_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/instancer/internal/templates"
)

func unitData() templates.UnitData {
	return templates.UnitData{
		Description:      "bob application server",
		User:             "bob",
		WorkingDirectory: "/opt/bob",
		Python:           "/opt/bob/venv/bin/python",
		ServerBin:        "/opt/bob/bob-server/odoo-bin",
		ConfigPath:       "/etc/bob.conf",
	}
}

func TestGenerateUnit(t *testing.T) {
	t.Parallel()

	unit, err := templates.GenerateUnit(unitData())
	require.NoError(t, err)

	t.Run("sections", func(t *testing.T) {
		t.Parallel()
		assert.True(t, strings.HasPrefix(unit, "[Unit]\n"))
		assert.Contains(t, unit, "\n[Service]\n")
		assert.Contains(t, unit, "\n[Install]\nWantedBy=multi-user.target\n")
	})

	t.Run("service", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, unit, "Description=bob application server\n")
		assert.Contains(t, unit, "User=bob\n")
		assert.Contains(t, unit, "Group=bob\n")
		assert.Contains(t, unit, "SyslogIdentifier=bob\n")
		assert.Contains(t, unit, "WorkingDirectory=/opt/bob\n")
		assert.Contains(t, unit, "ExecStart=/opt/bob/venv/bin/python /opt/bob/bob-server/odoo-bin -c /etc/bob.conf\n")
	})

	t.Run("ordering", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, unit, "After=network.target postgresql.service\n")
	})
}

func TestGenerateUnit_ExtraAfter(t *testing.T) {
	t.Parallel()

	data := unitData()
	data.After = []string{"redis.service", "nginx.service"}
	unit, err := templates.GenerateUnit(data)
	require.NoError(t, err)
	assert.Contains(t, unit, "After=network.target postgresql.service redis.service nginx.service\n")
}

func TestGenerateUnit_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := templates.GenerateUnit(unitData())
	require.NoError(t, err)
	b, err := templates.GenerateUnit(unitData())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateUnit_MissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*templates.UnitData)
	}{
		{"user", func(d *templates.UnitData) { d.User = "" }},
		{"server", func(d *templates.UnitData) { d.ServerBin = "" }},
		{"config", func(d *templates.UnitData) { d.ConfigPath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := unitData()
			tt.mutate(&d)
			_, err := templates.GenerateUnit(d)
			require.Error(t, err)
		})
	}
}
