package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/h5rest/h5rest/internal/object"
	"github.com/h5rest/h5rest/internal/transport"
)

type fakeStore struct {
	roots     map[string]object.ID
	links     map[string][]byte
	linkCalls int
	rootCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		roots: make(map[string]object.ID),
		links: make(map[string][]byte),
	}
}

func (f *fakeStore) addHard(domain string, group object.ID, name string, target object.Ref) {
	collection, err := target.Kind.Collection()
	if err != nil {
		panic(err)
	}
	f.links[linkKey(domain, group, name)] = fmt.Appendf(nil,
		`{"link": {"title": %q, "class": "H5L_TYPE_HARD", "id": %q, "collection": %q}}`,
		name, target.ID, collection)
}

func (f *fakeStore) addSoft(domain string, group object.ID, name, h5path string) {
	f.links[linkKey(domain, group, name)] = fmt.Appendf(nil,
		`{"link": {"title": %q, "class": "H5L_TYPE_SOFT", "h5path": %q}}`,
		name, h5path)
}

func (f *fakeStore) addExternal(domain string, group object.ID, name, h5domain, h5path string) {
	f.links[linkKey(domain, group, name)] = fmt.Appendf(nil,
		`{"link": {"title": %q, "class": "H5L_TYPE_EXTERNAL", "h5domain": %q, "h5path": %q}}`,
		name, h5domain, h5path)
}

func (f *fakeStore) Link(_ context.Context, domain string, group object.ID, name string) ([]byte, error) {
	f.linkCalls++
	doc, ok := f.links[linkKey(domain, group, name)]
	if !ok {
		return nil, &transport.StatusError{Code: http.StatusNotFound, Method: "GET", Endpoint: name}
	}
	return doc, nil
}

func (f *fakeStore) Root(_ context.Context, domain string) ([]byte, error) {
	f.rootCalls++
	root, ok := f.roots[domain]
	if !ok {
		return nil, &transport.StatusError{Code: http.StatusNotFound, Method: "GET", Endpoint: "/"}
	}
	return fmt.Appendf(nil, `{"root": %q}`, root), nil
}

func linkKey(domain string, group object.ID, name string) string {
	return domain + "|" + group.String() + "|" + name
}

func groupRef() object.Ref {
	return object.Ref{ID: object.NewID(object.KindGroup), Kind: object.KindGroup}
}

func TestResolveSelfIssuesNoRequests(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := New(store)
	start := groupRef()

	for _, path := range []string{"", ".", " . "} {
		got, err := r.Resolve(context.Background(), "file.h5", start, path)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", path, err)
		}
		if got.Ref != start || got.Domain != "file.h5" {
			t.Errorf("Resolve(%q) = %+v, want start object", path, got)
		}
	}
	if store.linkCalls != 0 || store.rootCalls != 0 {
		t.Errorf("store calls = %d link / %d root, want none", store.linkCalls, store.rootCalls)
	}
}

func TestResolveOneLookupPerSegment(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	root := groupRef()
	a := groupRef()
	b := groupRef()
	leaf := object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}
	store.addHard("file.h5", root.ID, "a", a)
	store.addHard("file.h5", a.ID, "b", b)
	store.addHard("file.h5", b.ID, "c", leaf)

	got, err := New(store).Resolve(context.Background(), "file.h5", root, "a/b/c")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Ref != leaf {
		t.Errorf("Resolve() = %+v, want %+v", got.Ref, leaf)
	}
	if store.linkCalls != 3 {
		t.Errorf("link lookups = %d, want 3", store.linkCalls)
	}
	if store.rootCalls != 0 {
		t.Errorf("root lookups = %d, want 0", store.rootCalls)
	}
}

func TestResolveAbsoluteRestartsAtRoot(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	root := groupRef()
	deep := groupRef()
	target := groupRef()
	store.roots["file.h5"] = root.ID
	store.addHard("file.h5", root.ID, "top", target)

	got, err := New(store).Resolve(context.Background(), "file.h5", deep, "/top")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Ref != target {
		t.Errorf("Resolve() = %+v, want %+v", got.Ref, target)
	}
	if store.rootCalls != 1 {
		t.Errorf("root lookups = %d, want 1", store.rootCalls)
	}
}

func TestResolveStopsAtFirstMissingSegment(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	root := groupRef()
	a := groupRef()
	store.addHard("file.h5", root.ID, "a", a)

	_, err := New(store).Resolve(context.Background(), "file.h5", root, "a/missing/deeper")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrNotFound", err)
	}
	if store.linkCalls != 2 {
		t.Errorf("link lookups = %d, want 2 (no lookup past the miss)", store.linkCalls)
	}
}

func TestResolveSoftLinks(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	root := groupRef()
	sub := groupRef()
	target := object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}
	store.roots["file.h5"] = root.ID
	store.addHard("file.h5", root.ID, "sub", sub)
	store.addHard("file.h5", sub.ID, "data", target)
	// Relative: resolves from the group holding the link.
	store.addSoft("file.h5", sub.ID, "alias_rel", "data")
	// Absolute: restarts at the domain root.
	store.addSoft("file.h5", sub.ID, "alias_abs", "/sub/data")

	r := New(store)
	for _, name := range []string{"alias_rel", "alias_abs"} {
		got, err := r.Resolve(context.Background(), "file.h5", root, "sub/"+name)
		if err != nil {
			t.Fatalf("Resolve(sub/%s) error = %v", name, err)
		}
		if got.Ref != target {
			t.Errorf("Resolve(sub/%s) = %+v, want %+v", name, got.Ref, target)
		}
	}
}

func TestResolveExternalLinkSwitchesDomain(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	root := groupRef()
	otherRoot := groupRef()
	target := groupRef()
	store.roots["other.h5"] = otherRoot.ID
	store.addExternal("file.h5", root.ID, "ext", "other.h5", "/remote")
	store.addHard("other.h5", otherRoot.ID, "remote", target)

	got, err := New(store).Resolve(context.Background(), "file.h5", root, "ext")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got.Ref != target {
		t.Errorf("Resolve() = %+v, want %+v", got.Ref, target)
	}
	if got.Domain != "other.h5" {
		t.Errorf("Domain = %q, want other.h5", got.Domain)
	}
}

func TestResolveIntermediateNotGroup(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	root := groupRef()
	data := object.Ref{ID: object.NewID(object.KindDataset), Kind: object.KindDataset}
	store.addHard("file.h5", root.ID, "data", data)

	_, err := New(store).Resolve(context.Background(), "file.h5", root, "data/inside")
	if !errors.Is(err, ErrNotGroup) {
		t.Errorf("Resolve() error = %v, want ErrNotGroup", err)
	}
}

func TestResolveSoftLinkCycle(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	root := groupRef()
	store.addSoft("file.h5", root.ID, "loop", "loop")

	_, err := New(store).Resolve(context.Background(), "file.h5", root, "loop")
	if !errors.Is(err, ErrTooManyLinks) {
		t.Errorf("Resolve() error = %v, want ErrTooManyLinks", err)
	}
}

func TestResolveParent(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	root := groupRef()
	a := groupRef()
	store.addHard("file.h5", root.ID, "a", a)

	parent, name, err := New(store).ResolveParent(context.Background(), "file.h5", root, "a/newlink")
	if err != nil {
		t.Fatalf("ResolveParent() error = %v", err)
	}
	if parent.Ref != a {
		t.Errorf("parent = %+v, want %+v", parent.Ref, a)
	}
	if name != "newlink" {
		t.Errorf("name = %q, want newlink", name)
	}

	// The final component need not exist.
	if store.linkCalls != 1 {
		t.Errorf("link lookups = %d, want 1", store.linkCalls)
	}

	if _, _, err := New(store).ResolveParent(context.Background(), "file.h5", root, "/"); err == nil {
		t.Error("ResolveParent(/) expected error for missing link name")
	}
}

func TestRootMissingDomain(t *testing.T) {
	t.Parallel()

	_, err := New(newFakeStore()).Root(context.Background(), "nope.h5")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Root() error = %v, want ErrNotFound", err)
	}
}
