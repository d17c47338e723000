// Package linktable materializes a group's link listing into an ordered
// in-memory table and walks it with caller-supplied visitors. Tables are
// built immediately before one traversal pass and are immutable afterwards;
// recursive builds nest sub-tables for hard-linked subgroups, guarded by a
// visited set so cyclic hard links terminate.
package linktable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/h5rest/h5rest/internal/jsondoc"
	"github.com/h5rest/h5rest/internal/object"
)

// Class is the link kind as reported by the store.
type Class int

const (
	ClassHard Class = iota
	ClassSoft
	ClassExternal
)

// Wire names for link classes.
const (
	classHardName     = "H5L_TYPE_HARD"
	classSoftName     = "H5L_TYPE_SOFT"
	classExternalName = "H5L_TYPE_EXTERNAL"
)

func (c Class) String() string {
	switch c {
	case ClassHard:
		return classHardName
	case ClassSoft:
		return classSoftName
	case ClassExternal:
		return classExternalName
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Entry is one link in a table.
type Entry struct {
	Name    string
	Created float64
	Class   Class

	// Target is set for hard links only.
	Target object.Ref

	// H5Path is set for soft and external links; H5Domain for external only.
	H5Path   string
	H5Domain string

	// Sub holds the nested table for a hard-linked subgroup in recursive
	// builds. It stays nil for non-groups, non-recursive builds, and for
	// groups already present in the build's visited set (cycles and
	// duplicate aliases are recorded but not descended into).
	Sub *Table
}

// Table is an ordered, immutable sequence of link entries.
type Table struct {
	Entries []*Entry
}

// IndexKind selects the sort key.
type IndexKind int

const (
	IndexName IndexKind = iota
	IndexCreated
)

// Order selects the sort direction.
type Order int

const (
	Ascending Order = iota
	Descending
)

// CompareBy returns the comparator for an index kind and order. Sorting is
// always stable, so entries that compare equal keep their listing order.
func CompareBy(kind IndexKind, order Order) (func(a, b *Entry) int, error) {
	var cmpFn func(a, b *Entry) int
	switch kind {
	case IndexName:
		cmpFn = func(a, b *Entry) int { return strings.Compare(a.Name, b.Name) }
	case IndexCreated:
		cmpFn = func(a, b *Entry) int {
			switch {
			case a.Created < b.Created:
				return -1
			case a.Created > b.Created:
				return 1
			default:
				return 0
			}
		}
	default:
		return nil, fmt.Errorf("linktable: unknown index kind %d", int(kind))
	}

	switch order {
	case Ascending:
		return cmpFn, nil
	case Descending:
		return func(a, b *Entry) int { return cmpFn(b, a) }, nil
	default:
		return nil, fmt.Errorf("linktable: unknown order %d", int(order))
	}
}

// Lister fetches the link listing document for a group, letting recursive
// builds descend without the table depending on the transport directly.
type Lister func(ctx context.Context, group object.ID) ([]byte, error)

// Options configures a build.
type Options struct {
	// Recursive descends into hard-linked subgroups, fetching their
	// listings through List.
	Recursive bool

	// List is required when Recursive is set.
	List Lister

	// Compare orders each table level independently; nil keeps the
	// server's listing order.
	Compare func(a, b *Entry) int
}

// wire shapes for the listing document. Links is a pointer so a listing with
// no "links" member at all is distinguishable from an empty group.
type wireListing struct {
	Links *[]wireLink `json:"links"`
}

type wireLink struct {
	Title      string  `json:"title"`
	Created    float64 `json:"created"`
	Class      string  `json:"class"`
	ID         string  `json:"id"`
	Collection string  `json:"collection"`
	H5Path     string  `json:"h5path"`
	H5Domain   string  `json:"h5domain"`
}

// Build constructs a table from a group's listing document. origin is the
// listed group itself; it seeds the visited set so self-referential links do
// not recurse.
func Build(ctx context.Context, origin object.ID, listing []byte, opts Options) (*Table, error) {
	if opts.Recursive && opts.List == nil {
		return nil, errors.New("linktable: recursive build requires a lister")
	}
	visited := map[object.ID]struct{}{origin: {}}
	return build(ctx, listing, opts, visited)
}

func build(ctx context.Context, listing []byte, opts Options, visited map[object.ID]struct{}) (*Table, error) {
	var doc wireListing
	if err := json.Unmarshal(listing, &doc); err != nil {
		return nil, fmt.Errorf("%w: listing: %v", jsondoc.ErrMalformed, err)
	}
	if doc.Links == nil {
		return nil, fmt.Errorf("%w: listing has no links section", jsondoc.ErrMalformed)
	}

	table := &Table{Entries: make([]*Entry, 0, len(*doc.Links))}
	for _, wl := range *doc.Links {
		entry, err := buildEntry(ctx, wl, opts, visited)
		if err != nil {
			return nil, err
		}
		table.Entries = append(table.Entries, entry)
	}

	if opts.Compare != nil {
		slices.SortStableFunc(table.Entries, opts.Compare)
	}
	return table, nil
}

func buildEntry(ctx context.Context, wl wireLink, opts Options, visited map[object.ID]struct{}) (*Entry, error) {
	entry, err := newEntry(wl)
	if err != nil {
		return nil, err
	}

	if opts.Recursive && entry.Class == ClassHard && entry.Target.Kind == object.KindGroup {
		if _, seen := visited[entry.Target.ID]; !seen {
			visited[entry.Target.ID] = struct{}{}
			subListing, err := opts.List(ctx, entry.Target.ID)
			if err != nil {
				return nil, fmt.Errorf("linktable: listing subgroup %q: %w", wl.Title, err)
			}
			sub, err := build(ctx, subListing, opts, visited)
			if err != nil {
				return nil, err
			}
			entry.Sub = sub
		}
	}

	return entry, nil
}

// ParseLink decodes a single-link document, the {"link": {...}} shape the
// store returns for GET /groups/{id}/links/{name}.
func ParseLink(doc []byte) (*Entry, error) {
	var wrapper struct {
		Link *wireLink `json:"link"`
	}
	if err := json.Unmarshal(doc, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: link document: %v", jsondoc.ErrMalformed, err)
	}
	if wrapper.Link == nil {
		return nil, fmt.Errorf("%w: document has no link section", jsondoc.ErrMalformed)
	}
	return newEntry(*wrapper.Link)
}

func newEntry(wl wireLink) (*Entry, error) {
	entry := &Entry{Name: wl.Title, Created: wl.Created}

	switch wl.Class {
	case classHardName:
		entry.Class = ClassHard
		id, err := object.ParseID(wl.ID)
		if err != nil {
			return nil, fmt.Errorf("linktable: link %q: %w", wl.Title, err)
		}
		kind, err := object.KindFromCollection(wl.Collection)
		if err != nil {
			return nil, fmt.Errorf("linktable: link %q: %w", wl.Title, err)
		}
		entry.Target = object.Ref{ID: id, Kind: kind}

	case classSoftName:
		entry.Class = ClassSoft
		entry.H5Path = wl.H5Path

	case classExternalName:
		entry.Class = ClassExternal
		entry.H5Path = wl.H5Path
		entry.H5Domain = wl.H5Domain

	default:
		return nil, fmt.Errorf("%w: link %q has unknown class %q", jsondoc.ErrMalformed, wl.Title, wl.Class)
	}

	return entry, nil
}
