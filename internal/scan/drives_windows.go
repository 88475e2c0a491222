//go:build windows

package scan

import (
	"golang.org/x/sys/windows"
)

// DriveRoots returns the root of every fixed logical drive, e.g. `C:\`.
// Removable, network and optical drives are left out of wide searches.
func DriveRoots() []string {
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return nil
	}
	var roots []string
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) == 0 {
			continue
		}
		root := string(rune('A'+i)) + `:\`
		p, err := windows.UTF16PtrFromString(root)
		if err != nil {
			continue
		}
		if windows.GetDriveType(p) != windows.DRIVE_FIXED {
			continue
		}
		roots = append(roots, root)
	}
	return roots
}
