//go:build windows

package filesystem

// syncDir is a no-op on Windows, where directory handles cannot be fsynced.
func syncDir(_ string) error {
	return nil
}
