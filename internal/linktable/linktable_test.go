package linktable

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/h5rest/h5rest/internal/jsondoc"
	"github.com/h5rest/h5rest/internal/object"
)

func hardLinkJSON(title string, created float64, target object.Ref) string {
	collection, err := target.Kind.Collection()
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf(`{"title": %q, "created": %v, "class": "H5L_TYPE_HARD", "id": %q, "collection": %q}`,
		title, created, target.ID, collection)
}

func listingJSON(links ...string) []byte {
	doc := `{"links": [`
	for i, l := range links {
		if i > 0 {
			doc += ", "
		}
		doc += l
	}
	return []byte(doc + `]}`)
}

func names(t *Table) []string {
	out := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		out[i] = e.Name
	}
	return out
}

func mustCompare(t *testing.T, kind IndexKind, order Order) func(a, b *Entry) int {
	t.Helper()
	cmpFn, err := CompareBy(kind, order)
	if err != nil {
		t.Fatalf("CompareBy(%d, %d) error = %v", kind, order, err)
	}
	return cmpFn
}

func TestBuildSortsPerComparator(t *testing.T) {
	t.Parallel()

	origin := object.NewID(object.KindGroup)
	listing := listingJSON(
		hardLinkJSON("c", 3.0, object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}),
		hardLinkJSON("a", 1.0, object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}),
		hardLinkJSON("b", 2.0, object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}),
	)

	tests := []struct {
		name  string
		kind  IndexKind
		order Order
		want  []string
	}{
		{name: "name ascending", kind: IndexName, order: Ascending, want: []string{"a", "b", "c"}},
		{name: "name descending", kind: IndexName, order: Descending, want: []string{"c", "b", "a"}},
		{name: "created ascending", kind: IndexCreated, order: Ascending, want: []string{"a", "b", "c"}},
		{name: "created descending", kind: IndexCreated, order: Descending, want: []string{"c", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			table, err := Build(context.Background(), origin, listing, Options{
				Compare: mustCompare(t, tt.kind, tt.order),
			})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got := names(table); !slices.Equal(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildSortIsStable(t *testing.T) {
	t.Parallel()

	origin := object.NewID(object.KindGroup)
	// All created at the same time: creation-order sort must keep listing order.
	listing := listingJSON(
		hardLinkJSON("z", 5.0, object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}),
		hardLinkJSON("m", 5.0, object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}),
		hardLinkJSON("a", 5.0, object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}),
	)

	table, err := Build(context.Background(), origin, listing, Options{
		Compare: mustCompare(t, IndexCreated, Ascending),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := names(table); !slices.Equal(got, []string{"z", "m", "a"}) {
		t.Errorf("order = %v, want listing order preserved on ties", got)
	}
}

func TestBuildPreservesListingOrderWithoutComparator(t *testing.T) {
	t.Parallel()

	origin := object.NewID(object.KindGroup)
	listing := listingJSON(
		hardLinkJSON("c", 3.0, object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}),
		hardLinkJSON("a", 1.0, object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}),
	)

	table, err := Build(context.Background(), origin, listing, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := names(table); !slices.Equal(got, []string{"c", "a"}) {
		t.Errorf("order = %v, want server order", got)
	}
}

func TestBuildStructuralErrors(t *testing.T) {
	t.Parallel()

	origin := object.NewID(object.KindGroup)
	tests := []struct {
		name    string
		listing string
	}{
		{name: "missing links section", listing: `{"hrefs": []}`},
		{name: "empty object", listing: `{}`},
		{name: "not JSON", listing: `{"links": [`},
		{name: "unknown class", listing: `{"links": [{"title": "x", "class": "H5L_TYPE_UD"}]}`},
		{name: "hard link bad id", listing: `{"links": [{"title": "x", "class": "H5L_TYPE_HARD", "id": "bogus", "collection": "groups"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Build(context.Background(), origin, []byte(tt.listing), Options{}); err == nil {
				t.Error("Build() expected error")
			}
		})
	}

	_, err := Build(context.Background(), origin, []byte(`{}`), Options{})
	if !errors.Is(err, jsondoc.ErrMalformed) {
		t.Errorf("Build({}) error = %v, want ErrMalformed", err)
	}
}

func TestBuildEmptyGroup(t *testing.T) {
	t.Parallel()

	table, err := Build(context.Background(), object.NewID(object.KindGroup), []byte(`{"links": []}`), Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(table.Entries) != 0 {
		t.Errorf("entries = %d, want 0", len(table.Entries))
	}
}

func TestBuildSoftAndExternalEntries(t *testing.T) {
	t.Parallel()

	listing := []byte(`{"links": [
		{"title": "s", "created": 1.0, "class": "H5L_TYPE_SOFT", "h5path": "/target"},
		{"title": "e", "created": 2.0, "class": "H5L_TYPE_EXTERNAL", "h5domain": "other.h5", "h5path": "/remote"}
	]}`)

	table, err := Build(context.Background(), object.NewID(object.KindGroup), listing, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(table.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(table.Entries))
	}

	s := table.Entries[0]
	if s.Class != ClassSoft || s.H5Path != "/target" {
		t.Errorf("soft entry = %+v", s)
	}
	e := table.Entries[1]
	if e.Class != ClassExternal || e.H5Path != "/remote" || e.H5Domain != "other.h5" {
		t.Errorf("external entry = %+v", e)
	}
}

// listerFor serves canned listings per group and counts fetches.
func listerFor(listings map[object.ID][]byte, calls *int) Lister {
	return func(_ context.Context, group object.ID) ([]byte, error) {
		*calls++
		doc, ok := listings[group]
		if !ok {
			return nil, fmt.Errorf("no listing for %s", group)
		}
		return doc, nil
	}
}

func TestBuildRecursiveCycleTerminates(t *testing.T) {
	t.Parallel()

	root := object.NewID(object.KindGroup)
	gA := object.NewID(object.KindGroup)
	gB := object.NewID(object.KindGroup)

	listings := map[object.ID][]byte{
		gA: listingJSON(hardLinkJSON("B", 1.0, object.Ref{ID: gB, Kind: object.KindGroup})),
		gB: listingJSON(hardLinkJSON("A", 1.0, object.Ref{ID: gA, Kind: object.KindGroup})),
	}
	rootListing := listingJSON(hardLinkJSON("A", 1.0, object.Ref{ID: gA, Kind: object.KindGroup}))

	var calls int
	table, err := Build(context.Background(), root, rootListing, Options{
		Recursive: true,
		List:      listerFor(listings, &calls),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// A and B each listed once; the back-link to A is recorded but not
	// descended into.
	if calls != 2 {
		t.Errorf("listings fetched = %d, want 2", calls)
	}
	entryA := table.Entries[0]
	entryB := entryA.Sub.Entries[0]
	if entryB.Sub == nil {
		t.Fatal("entry B should carry a sub-table")
	}
	backA := entryB.Sub.Entries[0]
	if backA.Sub != nil {
		t.Error("cyclic back-link should not carry a sub-table")
	}
}

func TestBuildAliasDescendedOnce(t *testing.T) {
	t.Parallel()

	root := object.NewID(object.KindGroup)
	g1 := object.NewID(object.KindGroup)
	d1 := object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}

	listings := map[object.ID][]byte{
		g1: listingJSON(hardLinkJSON("D1", 1.0, d1)),
	}
	rootListing := listingJSON(
		hardLinkJSON("G1", 1.0, object.Ref{ID: g1, Kind: object.KindGroup}),
		hardLinkJSON("alias", 2.0, object.Ref{ID: g1, Kind: object.KindGroup}),
	)

	var calls int
	table, err := Build(context.Background(), root, rootListing, Options{
		Recursive: true,
		List:      listerFor(listings, &calls),
		Compare:   mustCompare(t, IndexName, Ascending),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("listings fetched = %d, want 1", calls)
	}

	// Name-ascending puts G1 first; G1 was encountered first in listing
	// order, so it carries the sub-table and alias does not.
	var g1Entry, aliasEntry *Entry
	for _, e := range table.Entries {
		switch e.Name {
		case "G1":
			g1Entry = e
		case "alias":
			aliasEntry = e
		}
	}
	if g1Entry.Sub == nil {
		t.Error("first-encountered link to G1 should carry the sub-table")
	}
	if aliasEntry.Sub != nil {
		t.Error("alias to already-visited G1 should not carry a sub-table")
	}
}

func TestTraverseVisitsObjectsOnce(t *testing.T) {
	t.Parallel()

	root := object.NewID(object.KindGroup)
	g1 := object.NewID(object.KindGroup)
	d1 := object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}

	listings := map[object.ID][]byte{
		g1: listingJSON(hardLinkJSON("D1", 1.0, d1)),
	}
	rootListing := listingJSON(
		hardLinkJSON("G1", 1.0, object.Ref{ID: g1, Kind: object.KindGroup}),
		hardLinkJSON("alias", 2.0, object.Ref{ID: g1, Kind: object.KindGroup}),
	)

	var calls int
	table, err := Build(context.Background(), root, rootListing, Options{
		Recursive: true,
		List:      listerFor(listings, &calls),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var paths []string
	ret, err := Traverse(table, TraverseOptions{
		Visited: map[object.ID]struct{}{root: {}},
		Visit: func(path string, _ *Entry) int {
			paths = append(paths, path)
			return 0
		},
	})
	if err != nil {
		t.Fatalf("Traverse() error = %v", err)
	}
	if ret != 0 {
		t.Fatalf("Traverse() = %d, want 0", ret)
	}

	// D1 appears once under the first alias; G1's contents are not
	// revisited under "alias".
	want := []string{"G1", "G1/D1"}
	if !slices.Equal(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestTraverseShortCircuitAndResume(t *testing.T) {
	t.Parallel()

	origin := object.NewID(object.KindGroup)
	listing := listingJSON(
		hardLinkJSON("a", 1.0, object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}),
		hardLinkJSON("b", 2.0, object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}),
		hardLinkJSON("c", 3.0, object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}),
	)
	table, err := Build(context.Background(), origin, listing, Options{
		Compare: mustCompare(t, IndexName, Ascending),
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	cursor := &Cursor{Kind: IndexName, Order: Ascending}
	var first []string
	ret, err := Traverse(table, TraverseOptions{
		Cursor: cursor,
		Visit: func(path string, _ *Entry) int {
			first = append(first, path)
			if path == "b" {
				return 7
			}
			return 0
		},
	})
	if err != nil {
		t.Fatalf("Traverse() error = %v", err)
	}
	if ret != 7 {
		t.Errorf("Traverse() = %d, want the visitor's stop value 7", ret)
	}
	if !slices.Equal(first, []string{"a", "b"}) {
		t.Errorf("first pass = %v, want [a b]", first)
	}
	if cursor.Index != 2 {
		t.Errorf("cursor.Index = %d, want 2", cursor.Index)
	}

	var second []string
	if _, err := Traverse(table, TraverseOptions{
		Cursor: cursor,
		Visit: func(path string, _ *Entry) int {
			second = append(second, path)
			return 0
		},
	}); err != nil {
		t.Fatalf("resumed Traverse() error = %v", err)
	}
	if !slices.Equal(second, []string{"c"}) {
		t.Errorf("resumed pass = %v, want [c]", second)
	}
	if cursor.Index != 3 {
		t.Errorf("cursor.Index = %d, want 3", cursor.Index)
	}
}

func TestTraverseVisitorAbort(t *testing.T) {
	t.Parallel()

	origin := object.NewID(object.KindGroup)
	listing := listingJSON(
		hardLinkJSON("a", 1.0, object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}),
	)
	table, err := Build(context.Background(), origin, listing, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ret, err := Traverse(table, TraverseOptions{
		Visit: func(string, *Entry) int { return -1 },
	})
	if !errors.Is(err, ErrVisitorAbort) {
		t.Errorf("Traverse() error = %v, want ErrVisitorAbort", err)
	}
	if ret >= 0 {
		t.Errorf("Traverse() = %d, want the visitor's negative value", ret)
	}
}

func TestTraversePrefix(t *testing.T) {
	t.Parallel()

	origin := object.NewID(object.KindGroup)
	listing := listingJSON(
		hardLinkJSON("child", 1.0, object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}),
	)
	table, err := Build(context.Background(), origin, listing, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	var got string
	if _, err := Traverse(table, TraverseOptions{
		Prefix: "top",
		Visit: func(path string, _ *Entry) int {
			got = path
			return 0
		},
	}); err != nil {
		t.Fatalf("Traverse() error = %v", err)
	}
	if got != "top/child" {
		t.Errorf("path = %q, want top/child", got)
	}
}
