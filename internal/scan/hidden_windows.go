//go:build windows

package scan

import (
	"io/fs"

	"golang.org/x/sys/windows"
)

// isHidden reports whether Windows flags the directory hidden. Directories
// whose attributes cannot be read are treated as visible and left to the
// walk's own error handling.
func isHidden(path string, _ fs.DirEntry) bool {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return false
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return false
	}
	return attrs&windows.FILE_ATTRIBUTE_HIDDEN != 0
}
