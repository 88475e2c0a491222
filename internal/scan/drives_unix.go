//go:build !windows

package scan

// DriveRoots returns the filesystem root; non-Windows hosts have one tree.
func DriveRoots() []string {
	return []string{"/"}
}
