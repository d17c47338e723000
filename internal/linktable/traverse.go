package linktable

import (
	"errors"
	"fmt"

	"github.com/h5rest/h5rest/internal/h5path"
	"github.com/h5rest/h5rest/internal/object"
)

// ErrVisitorAbort reports that a visitor returned a negative value.
var ErrVisitorAbort = errors.New("linktable: visitor aborted traversal")

// Visitor is called once per traversed entry with the entry's slash path
// relative to the traversal root. A negative return aborts the traversal with
// an error, zero continues, and a positive value stops the traversal and is
// propagated to the caller as a short-circuit result.
type Visitor func(path string, entry *Entry) int

// Cursor is a resumable position within one table, valid only against tables
// built with the same index kind and order. Index is the ordinal of the next
// top-level entry to process.
type Cursor struct {
	Index int
	Kind  IndexKind
	Order Order
}

// TraverseOptions configures one traversal pass.
type TraverseOptions struct {
	// Prefix is prepended to entry names when forming visitor paths.
	Prefix string

	// Cursor resumes and records position within the outermost table.
	// Nested sub-tables are always walked in full.
	Cursor *Cursor

	// Visited tracks hard-link targets already reported, so an object
	// reachable under several names is visited at most once. Nil disables
	// the dedup.
	Visited map[object.ID]struct{}

	Visit Visitor
}

// Traverse walks the table depth-first in table order. It returns the
// positive value of a short-circuiting visitor, or zero when the walk ran to
// completion.
func Traverse(t *Table, opts TraverseOptions) (int, error) {
	if opts.Visit == nil {
		return 0, errors.New("linktable: nil visitor")
	}
	return traverse(t, opts.Prefix, opts.Cursor, opts.Visited, opts.Visit)
}

func traverse(t *Table, prefix string, cursor *Cursor, visited map[object.ID]struct{}, visit Visitor) (int, error) {
	if t == nil {
		return 0, nil
	}

	start := 0
	if cursor != nil {
		start = cursor.Index
	}

	for i := start; i < len(t.Entries); i++ {
		entry := t.Entries[i]
		path := h5path.Join(prefix, entry.Name)

		report := true
		if visited != nil && entry.Class == ClassHard {
			if _, seen := visited[entry.Target.ID]; seen {
				report = false
			} else {
				visited[entry.Target.ID] = struct{}{}
			}
		}

		if report {
			switch ret := visit(path, entry); {
			case ret < 0:
				return ret, fmt.Errorf("%w at %q", ErrVisitorAbort, path)
			case ret > 0:
				if cursor != nil {
					cursor.Index = i + 1
				}
				return ret, nil
			}
		}

		if entry.Sub != nil {
			ret, err := traverse(entry.Sub, path, nil, visited, visit)
			if err != nil {
				return ret, err
			}
			if ret > 0 {
				if cursor != nil {
					cursor.Index = i + 1
				}
				return ret, nil
			}
		}

		if cursor != nil {
			cursor.Index = i + 1
		}
	}

	return 0, nil
}
