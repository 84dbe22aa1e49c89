// Package npm installs global Node.js tooling.
package npm

import (
	"fmt"
	"strings"
)

// Package represents an npm package to install globally.
type Package struct {
	Name    string
	Version string // Optional: specific version
}

// FullName returns the package name with optional version.
func (p Package) FullName() string {
	if p.Version != "" {
		return fmt.Sprintf("%s@%s", p.Name, p.Version)
	}
	return p.Name
}

// ParsePackage parses "pkg", "pkg@version" or "@scope/pkg@version".
func ParsePackage(s string) Package {
	if strings.HasPrefix(s, "@") {
		atIndex := strings.LastIndex(s, "@")
		if atIndex > 0 {
			return Package{Name: s[:atIndex], Version: s[atIndex+1:]}
		}
		return Package{Name: s}
	}

	if atIndex := strings.Index(s, "@"); atIndex > 0 {
		return Package{Name: s[:atIndex], Version: s[atIndex+1:]}
	}
	return Package{Name: s}
}
