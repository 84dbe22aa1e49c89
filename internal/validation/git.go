package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Git input validation patterns.
var (
	// gitRefPattern allows alphanumeric, hyphens, underscores, slashes, and dots.
	gitRefPattern = regexp.MustCompile(`^[a-zA-Z0-9/_.-]+$`)

	// gitRemoteURLPatterns for valid git remote URLs and local paths.
	gitRemoteURLPatterns = []*regexp.Regexp{
		// HTTPS URLs: https://github.com/user/repo.git or https://github.com/user/repo
		regexp.MustCompile(`^https://[a-zA-Z0-9.-]+(:[0-9]+)?/[a-zA-Z0-9_./-]+(?:\.git)?$`),
		// SSH URLs: git@github.com:user/repo.git
		regexp.MustCompile(`^[a-zA-Z0-9_.-]+@[a-zA-Z0-9.-]+:[a-zA-Z0-9_./-]+(?:\.git)?$`),
		// SSH protocol: ssh://git@github.com/user/repo.git
		regexp.MustCompile(`^ssh://[a-zA-Z0-9@.-]+(:[0-9]+)?/[a-zA-Z0-9_./-]+(?:\.git)?$`),
		// file:// URLs: file:///path/to/repo
		regexp.MustCompile(`^file:///[a-zA-Z0-9_./-]+$`),
		// Unix absolute paths: /path/to/repo
		regexp.MustCompile(`^/[a-zA-Z0-9_./-]+$`),
	}

	// Null bytes are reported separately.
	dangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "{", "}", "<", ">", "!", "\n", "\r", " "}
)

// ValidateGitRef validates a branch or tag name passed to git clone --branch.
func ValidateGitRef(ref string) error {
	if ref == "" {
		return ErrEmptyInput
	}

	if len(ref) > 255 {
		return fmt.Errorf("ref too long (max 255 characters)")
	}

	if strings.ContainsRune(ref, '\x00') {
		return fmt.Errorf("ref contains null byte")
	}

	for _, char := range dangerousChars {
		if strings.Contains(ref, char) {
			return fmt.Errorf("ref contains invalid character: %q", char)
		}
	}

	if strings.HasPrefix(ref, "-") {
		return fmt.Errorf("ref cannot start with '-'")
	}

	if !gitRefPattern.MatchString(ref) {
		return fmt.Errorf("invalid ref format: must contain only alphanumeric characters, hyphens, underscores, slashes, and dots")
	}

	if strings.Contains(ref, "..") {
		return fmt.Errorf("ref cannot contain '..'")
	}

	return nil
}

// ValidateGitRemoteURL validates a git remote URL.
func ValidateGitRemoteURL(url string) error {
	if url == "" {
		return ErrEmptyInput
	}

	if len(url) > 2048 {
		return fmt.Errorf("remote URL too long (max 2048 characters)")
	}

	if strings.ContainsRune(url, '\x00') {
		return fmt.Errorf("remote URL contains null byte")
	}

	for _, char := range dangerousChars {
		if strings.Contains(url, char) {
			return fmt.Errorf("remote URL contains invalid character: %q", char)
		}
	}

	for _, pattern := range gitRemoteURLPatterns {
		if pattern.MatchString(url) {
			return nil
		}
	}

	return fmt.Errorf("invalid git remote URL format: must be HTTPS, SSH URL, or local path")
}
