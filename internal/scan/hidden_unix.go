//go:build !windows

package scan

import (
	"io/fs"
	"strings"
)

// isHidden treats dot-directories as hidden outside Windows.
func isHidden(_ string, d fs.DirEntry) bool {
	return strings.HasPrefix(d.Name(), ".")
}
