// Package versionutil interprets application release names as semantic versions.
package versionutil

import (
	"regexp"

	"golang.org/x/mod/semver"
)

// releasePattern finds the first dotted number in names like "17.0",
// "saas-17.2" or "v16.0-rc1".
var releasePattern = regexp.MustCompile(`(\d+)(\.\d+)?(\.\d+)?`)

// Canonical extracts the release number from a branch or tag name and
// returns it in semver form ("v17.0.0"). It returns "" when the name holds
// no number.
func Canonical(release string) string {
	m := releasePattern.FindStringSubmatch(release)
	if m == nil {
		return ""
	}
	v := semver.Canonical("v" + m[0])
	return v
}

// AtLeast reports whether release is min or newer. Names without a number
// (for example "master") are treated as newest.
func AtLeast(release, min string) bool {
	v := Canonical(release)
	if v == "" {
		return true
	}
	return semver.Compare(v, Canonical(min)) >= 0
}

// Major returns the major release ("v17") or "" when there is none.
func Major(release string) string {
	v := Canonical(release)
	if v == "" {
		return ""
	}
	return semver.Major(v)
}
