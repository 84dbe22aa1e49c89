// Package python builds the instance's isolated Python runtime.
package python

import (
	"fmt"
	"regexp"
	"strings"
)

// Package is a pip requirement installed on top of requirements.txt.
type Package struct {
	Name    string
	Version string // Optional: version specifier (e.g., "==23.1.0", ">=3.0")
}

var versionSpecifierRegex = regexp.MustCompile(`^([=<>!~]+)(.+)$`)

// FullName returns the requirement string passed to pip.
func (p Package) FullName() string {
	if p.Version == "" {
		return p.Name
	}
	if versionSpecifierRegex.MatchString(p.Version) {
		return p.Name + p.Version
	}
	return fmt.Sprintf("%s==%s", p.Name, p.Version)
}

// ParsePackage parses "name", "name==1.0" or "name>=1.0".
func ParsePackage(s string) Package {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "=<>!~"); i > 0 {
		return Package{Name: s[:i], Version: s[i:]}
	}
	return Package{Name: s}
}

// ParsePackages parses every entry of list, skipping blanks.
func ParsePackages(list []string) []Package {
	out := make([]Package, 0, len(list))
	for _, s := range list {
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, ParsePackage(s))
	}
	return out
}
