// Package scan walks directory trees looking for installation markers.
//
// Walks are depth-first and top-down. A directory is pruned, and never
// descended into, when its path contains an excluded substring, when the OS
// marks it hidden, or when it lies deeper than the depth limit below its
// scan root. A root that cannot be read is skipped; the scan moves on to the
// next root.
package scan

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/regdesk/regctl/internal/logging"
	"github.com/regdesk/regctl/internal/util"
)

// DefaultExcluded lists lowercase, slash-separated path fragments of system,
// recovery and recycle-bin style directories that never hold installations.
var DefaultExcluded = []string{
	"/windows/",
	"/$recycle.bin/",
	"/$windows.~bt/",
	"/$windows.~ws/",
	"/$winreagent/",
	"/system volume information/",
	"/recovery/",
	"/perflogs/",
	"/msocache/",
	"/config.msi/",
	"/programdata/microsoft/",
	"/appdata/local/temp/",
	"/windowsapps/",
}

// Match reports whether dir is what the scan is looking for.
type Match func(dir string) bool

// HasEntry matches directories that directly contain a file or folder with
// one of the given names.
func HasEntry(names ...string) Match {
	return func(dir string) bool {
		for _, name := range names {
			if name == "" {
				continue
			}
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return true
			}
		}
		return false
	}
}

// Scanner walks roots with a fixed exclusion list.
type Scanner struct {
	excluded []string
	log      zerolog.Logger
}

// New returns a Scanner pruning directories that match excluded.
// A nil list means DefaultExcluded.
func New(excluded []string, log zerolog.Logger) *Scanner {
	if excluded == nil {
		excluded = DefaultExcluded
	}
	return &Scanner{
		excluded: excluded,
		log:      logging.Component(log, "scan"),
	}
}

// FindFirst returns the first directory under roots, in root order, that
// satisfies match and lies at most maxDepth levels below its root.
func (s *Scanner) FindFirst(roots []string, match Match, maxDepth int) (string, bool) {
	for _, root := range roots {
		var found string
		s.walk(root, maxDepth, match, func(dir string) bool {
			found = dir
			return true
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}

// FindAll returns every directory under roots that satisfies match and lies
// at most maxDepth levels below its root. A matched directory is not
// descended into.
func (s *Scanner) FindAll(roots []string, match Match, maxDepth int) []string {
	var found []string
	for _, root := range roots {
		s.walk(root, maxDepth, match, func(dir string) bool {
			found = append(found, dir)
			return false
		})
	}
	return found
}

// errStop ends a walk early once a single result has been found.
var errStop = errors.New("stop walk")

// walk visits every directory under root that survives pruning. onMatch is
// called for each directory satisfying match and returns true to end the walk.
func (s *Scanner) walk(root string, maxDepth int, match Match, onMatch func(dir string) bool) {
	if root == "" {
		return
	}
	root = util.NormalizePath(root)
	if util.MatchesExcluded(root, s.excluded) {
		s.log.Debug().Str("root", root).Msg("root excluded")
		return
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.log.Debug().Str("path", path).Err(err).Msg("skipping unreadable directory")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		if path != root {
			if depth(root, path) > maxDepth {
				return fs.SkipDir
			}
			if util.MatchesExcluded(path, s.excluded) || isHidden(path, d) {
				return fs.SkipDir
			}
		}

		if !match(path) {
			return nil
		}
		if onMatch(path) {
			return errStop
		}
		return fs.SkipDir
	})
	if err != nil && !errors.Is(err, errStop) {
		s.log.Debug().Str("root", root).Err(err).Msg("root unsearchable")
	}
}

// depth counts the path segments between root and path.
func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
