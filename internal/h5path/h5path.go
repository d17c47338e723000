// Package h5path provides helpers for slash-separated HDF5 object paths.
//
// HDF5 paths are not filesystem paths: there is no "..", a leading '/' means
// the file's root group, and "." refers to the current object.
package h5path

import (
	"strings"
)

// Separator is the path component separator.
const Separator = "/"

// Normalize trims surrounding whitespace and collapses leading "./" runs,
// which are equivalent to searching relative to the current object.
func Normalize(path string) string {
	path = strings.TrimSpace(path)
	if path == "." || path == Separator {
		return path
	}
	for strings.HasPrefix(path, "./") {
		path = path[2:]
	}
	return path
}

// IsAbsolute reports whether the path is anchored at the root group.
func IsAbsolute(path string) bool {
	return strings.HasPrefix(Normalize(path), Separator)
}

// IsSelf reports whether the path refers to the current object without any
// traversal: the empty path and "." both qualify.
func IsSelf(path string) bool {
	p := Normalize(path)
	return p == "" || p == "."
}

// Split returns the non-empty components of the path in order. Repeated or
// surrounding separators contribute no components.
func Split(path string) []string {
	var segments []string
	for seg := range strings.SplitSeq(Normalize(path), Separator) {
		if seg != "" && seg != "." {
			segments = append(segments, seg)
		}
	}
	return segments
}

// Base returns the final component of the path, or "" when the path has no
// components (empty, ".", or "/").
func Base(path string) string {
	segments := Split(path)
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}

// Dir returns everything before the final component. The result keeps the
// absolute anchor when present; a single-component relative path yields "".
func Dir(path string) string {
	path = Normalize(path)
	segments := Split(path)
	if len(segments) <= 1 {
		if IsAbsolute(path) {
			return Separator
		}
		return ""
	}
	dir := strings.Join(segments[:len(segments)-1], Separator)
	if IsAbsolute(path) {
		return Separator + dir
	}
	return dir
}

// Join combines a prefix and a name with a single separator. An empty prefix
// yields the name unchanged, so relative traversal paths start bare.
func Join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + Separator + name
}
