// Package templates renders the service manager files of an instance.
package templates

import (
	"bytes"
	"fmt"
	"text/template"
)

// UnitData contains data for the systemd unit template.
type UnitData struct {
	Description      string
	User             string
	Group            string
	WorkingDirectory string
	Python           string
	ServerBin        string
	ConfigPath       string
	SyslogIdentifier string
	// After lists the units the service starts after; postgresql.service is
	// always included.
	After []string
}

const unitTemplateStr = `[Unit]
Description={{.Description}}
Requires=postgresql.service
After=network.target postgresql.service{{range .After}} {{.}}{{end}}

[Service]
Type=simple
SyslogIdentifier={{.SyslogIdentifier}}
PermissionsStartOnly=true
User={{.User}}
Group={{.Group}}
WorkingDirectory={{.WorkingDirectory}}
ExecStart={{.Python}} {{.ServerBin}} -c {{.ConfigPath}}
StandardOutput=journal+console
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`

var unitTemplate = template.Must(template.New("unit").Option("missingkey=error").Parse(unitTemplateStr))

// GenerateUnit renders the unit file.
func GenerateUnit(data UnitData) (string, error) {
	if data.User == "" || data.ServerBin == "" || data.ConfigPath == "" {
		return "", fmt.Errorf("unit needs a user, a server binary and a config path")
	}
	if data.Group == "" {
		data.Group = data.User
	}
	if data.SyslogIdentifier == "" {
		data.SyslogIdentifier = data.User
	}

	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
