// Package validation provides input validation for values that end up on
// command lines, in SQL statements or in filesystem paths.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Common validation errors.
var (
	ErrEmptyInput         = errors.New("input cannot be empty")
	ErrInvalidName        = errors.New("invalid instance name")
	ErrInvalidPort        = errors.New("invalid port")
	ErrInvalidPackageName = errors.New("invalid package name")
	ErrInvalidNpmPackage  = errors.New("invalid npm package name")
	ErrInvalidPipPackage  = errors.New("invalid pip package name")
	ErrInvalidTimezone    = errors.New("invalid timezone")
	ErrInvalidPath        = errors.New("invalid path")
	ErrPathTraversal      = errors.New("path traversal detected")
	ErrCommandInjection   = errors.New("potential command injection detected")
)

var (
	// instanceNameRegex is the intersection of a portable POSIX username and
	// an unquoted PostgreSQL identifier.
	// Examples: "bob", "erp_prod", "_staging2"
	instanceNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,31}$`)

	// packageNameRegex matches Debian package names.
	// Examples: "postgresql", "libxml2-dev", "python3.11", "g++"
	packageNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._+-]*$`)

	// npmPackageRegex matches scoped or unscoped npm names with an optional @version.
	// Examples: "rtlcss", "less-plugin-clean-css", "@scope/pkg@1.2.3"
	npmPackageRegex = regexp.MustCompile(`^(@[a-z0-9][a-z0-9._-]*/)?[a-z0-9][a-z0-9._-]*(@[a-zA-Z0-9._-]+)?$`)

	// pipPackageRegex matches pip requirement names with an optional version specifier.
	// Examples: "wheel", "psycopg2-binary==2.9.9", "setuptools>=68"
	pipPackageRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*([=<>!~]=?[a-zA-Z0-9._*-]+)?$`)

	// timezoneRegex matches tz database names.
	// Examples: "UTC", "Europe/Berlin", "America/Argentina/Buenos_Aires", "Etc/GMT+3"
	timezoneRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_+-]*(/[A-Za-z0-9_+-]+)*$`)

	// shellMetaChars contains shell metacharacters that could enable injection
	shellMetaChars = []string{";", "|", "&", "$", "`", "(", ")", "{", "}", "<", ">", "\n", "\r", "\\"}
)

// ValidateInstanceName checks that name can serve as both the system account
// and the database role of an instance.
func ValidateInstanceName(name string) error {
	if name == "" {
		return ErrEmptyInput
	}
	if !instanceNameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q must start with a lowercase letter or underscore and contain at most 32 lowercase letters, digits or underscores", ErrInvalidName, name)
	}
	return nil
}

// ValidatePort parses a TCP port and checks it is in 1..65535.
func ValidatePort(s string) (int, error) {
	if s == "" {
		return 0, ErrEmptyInput
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidPort, s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: %d is outside 1-65535", ErrInvalidPort, port)
	}
	return port, nil
}

// ValidatePackageName validates an apt package name.
func ValidatePackageName(name string) error {
	if name == "" {
		return ErrEmptyInput
	}

	if len(name) > 256 {
		return fmt.Errorf("%w: name too long (max 256 characters)", ErrInvalidPackageName)
	}

	if !packageNameRegex.MatchString(name) {
		return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidPackageName, name)
	}

	if containsShellMeta(name) {
		return fmt.Errorf("%w: %q contains shell metacharacters", ErrCommandInjection, name)
	}

	return nil
}

// ValidateNpmPackage validates an npm package name with optional version.
func ValidateNpmPackage(name string) error {
	if name == "" {
		return ErrEmptyInput
	}

	if len(name) > 256 {
		return fmt.Errorf("%w: package name too long", ErrInvalidNpmPackage)
	}

	if !npmPackageRegex.MatchString(strings.ToLower(name)) {
		return fmt.Errorf("%w: %q is not a valid npm package name", ErrInvalidNpmPackage, name)
	}

	return nil
}

// ValidatePipPackage validates a pip package name with optional version specifier.
func ValidatePipPackage(pkg string) error {
	if pkg == "" {
		return ErrEmptyInput
	}

	if len(pkg) > 256 {
		return fmt.Errorf("%w: package name too long", ErrInvalidPipPackage)
	}

	// The pattern is the full allowlist. Range specifiers need '<' and '>'.
	if !pipPackageRegex.MatchString(pkg) {
		return fmt.Errorf("%w: %q is not a valid pip package name", ErrInvalidPipPackage, pkg)
	}

	return nil
}

// ValidateTimezone validates a tz database zone name such as "Europe/Berlin".
func ValidateTimezone(tz string) error {
	if tz == "" {
		return ErrEmptyInput
	}
	if len(tz) > 128 || !timezoneRegex.MatchString(tz) || strings.Contains(tz, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return nil
}

// ValidateAbsPath checks that path is absolute, clean of traversal segments
// and free of NUL bytes.
func ValidateAbsPath(path string) error {
	if path == "" {
		return ErrEmptyInput
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: contains null byte", ErrInvalidPath)
	}

	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, path)
	}

	if containsPathTraversal(path) {
		return fmt.Errorf("%w: %q", ErrPathTraversal, path)
	}

	return nil
}

// containsShellMeta checks if a string contains shell metacharacters.
func containsShellMeta(s string) bool {
	for _, char := range shellMetaChars {
		if strings.Contains(s, char) {
			return true
		}
	}
	return false
}

// containsPathTraversal reports whether path has a ".." segment.
func containsPathTraversal(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return true
		}
	}
	return strings.Contains(path, "%2e%2e") || strings.Contains(path, "%2E%2E")
}
