// Package util provides shared utility functions.
package util

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
)

// NormalizePath returns the cleaned absolute form of path. If the path
// cannot be made absolute it is returned cleaned.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// PathKey returns the identity key for a directory: normalized, case folded
// and separator-independent. Two paths with equal keys name the same
// installation on a case-insensitive filesystem.
func PathKey(path string) string {
	if path == "" {
		return ""
	}
	p := filepath.ToSlash(NormalizePath(path))
	p = strings.TrimRight(p, "/")
	if p == "" {
		p = "/"
	}
	return cases.Fold().String(p)
}

// SamePath reports whether a and b identify the same directory.
func SamePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return PathKey(a) == PathKey(b)
}

// IsUnder reports whether path equals dir or lies beneath it.
func IsUnder(path, dir string) bool {
	if path == "" || dir == "" {
		return false
	}
	p, d := PathKey(path), PathKey(dir)
	if p == d {
		return true
	}
	if !strings.HasSuffix(d, "/") {
		d += "/"
	}
	return strings.HasPrefix(p, d)
}

// MatchesExcluded reports whether the lowercase, slash-separated form of path
// contains any of the excluded substrings. A trailing slash is appended
// before matching so "/windows/" also excludes the directory "C:\Windows".
func MatchesExcluded(path string, excluded []string) bool {
	if len(excluded) == 0 {
		return false
	}
	p := strings.ToLower(filepath.ToSlash(path))
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	for _, sub := range excluded {
		if sub == "" {
			continue
		}
		if strings.Contains(p, strings.ToLower(filepath.ToSlash(sub))) {
			return true
		}
	}
	return false
}
