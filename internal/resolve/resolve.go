// Package resolve walks slash-separated object paths against the store, one
// link lookup per component. Soft links restart traversal at their recorded
// path and external links hop into another file's domain, so a single resolve
// may touch several domains before it lands on an object.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/h5rest/h5rest/internal/h5path"
	"github.com/h5rest/h5rest/internal/jsondoc"
	"github.com/h5rest/h5rest/internal/object"
	"github.com/h5rest/h5rest/internal/transport"
)

var (
	// ErrNotFound indicates a path component that no link in the containing
	// group names.
	ErrNotFound = errors.New("resolve: object not found")

	// ErrNotGroup indicates a non-final path component that resolved to a
	// dataset or datatype, which cannot contain links.
	ErrNotGroup = errors.New("resolve: path component is not a group")

	// ErrTooManyLinks indicates a soft or external link chain deeper than
	// maxLinkHops, the usual sign of a link cycle.
	ErrTooManyLinks = errors.New("resolve: too many link traversals")
)

// maxLinkHops bounds soft/external link chains, matching the HDF5 library's
// default traversal limit.
const maxLinkHops = 16

// Link classes as they appear on the wire.
const (
	ClassHard     = "H5L_TYPE_HARD"
	ClassSoft     = "H5L_TYPE_SOFT"
	ClassExternal = "H5L_TYPE_EXTERNAL"
)

// Store is the slice of the REST surface path resolution needs.
type Store interface {
	// Link fetches the single-link document for name under the group:
	// GET /groups/{id}/links/{name}.
	Link(ctx context.Context, domain string, group object.ID, name string) ([]byte, error)

	// Root fetches the domain document holding the file's root group:
	// GET / with the domain as Host.
	Root(ctx context.Context, domain string) ([]byte, error)
}

// Target is where a path landed: an object and the domain that owns it.
// Domain differs from the starting domain only when an external link was
// crossed on the way.
type Target struct {
	Domain string
	Ref    object.Ref
}

// Resolver resolves paths against a Store.
type Resolver struct {
	store Store
}

// New builds a resolver over the store.
func New(store Store) *Resolver {
	return &Resolver{store: store}
}

// Root resolves the domain's root group.
func (r *Resolver) Root(ctx context.Context, domain string) (object.Ref, error) {
	doc, err := r.store.Root(ctx, domain)
	if err != nil {
		if transport.IsNotFound(err) {
			return object.Ref{}, fmt.Errorf("domain %q: %w", domain, ErrNotFound)
		}
		return object.Ref{}, fmt.Errorf("resolve: fetching domain %q: %w", domain, err)
	}

	rootStr, err := jsondoc.GetString(doc, "$.root")
	if err != nil {
		return object.Ref{}, fmt.Errorf("resolve: domain %q has no root: %w", domain, err)
	}
	id, err := object.ParseID(rootStr)
	if err != nil {
		return object.Ref{}, fmt.Errorf("resolve: domain %q: %w", domain, err)
	}
	return object.Ref{ID: id, Kind: object.KindGroup}, nil
}

// Resolve walks path starting from start. The empty path and "." name start
// itself and issue no requests. An absolute path restarts from the domain
// root regardless of start.
func (r *Resolver) Resolve(ctx context.Context, domain string, start object.Ref, path string) (Target, error) {
	return r.resolve(ctx, domain, start, path, 0)
}

// ResolveParent resolves the path's directory portion and returns the
// containing group together with the final component's name, for operations
// that address a link rather than the object behind it.
func (r *Resolver) ResolveParent(ctx context.Context, domain string, start object.Ref, path string) (Target, string, error) {
	name := h5path.Base(path)
	if name == "" {
		return Target{}, "", fmt.Errorf("resolve: path %q has no link name", path)
	}

	parent, err := r.resolve(ctx, domain, start, h5path.Dir(path), 0)
	if err != nil {
		return Target{}, "", err
	}
	if parent.Ref.Kind != object.KindGroup {
		return Target{}, "", fmt.Errorf("resolve: parent of %q: %w", path, ErrNotGroup)
	}
	return parent, name, nil
}

func (r *Resolver) resolve(ctx context.Context, domain string, current object.Ref, path string, hops int) (Target, error) {
	if hops > maxLinkHops {
		return Target{}, fmt.Errorf("resolving %q: %w", path, ErrTooManyLinks)
	}

	path = h5path.Normalize(path)
	if h5path.IsSelf(path) {
		return Target{Domain: domain, Ref: current}, nil
	}
	if h5path.IsAbsolute(path) {
		root, err := r.Root(ctx, domain)
		if err != nil {
			return Target{}, err
		}
		current = root
	}

	for _, name := range h5path.Split(path) {
		if current.Kind != object.KindGroup {
			return Target{}, fmt.Errorf("resolving %q at %q: %w", path, name, ErrNotGroup)
		}

		doc, err := r.store.Link(ctx, domain, current.ID, name)
		if err != nil {
			if transport.IsNotFound(err) {
				return Target{}, fmt.Errorf("link %q: %w", name, ErrNotFound)
			}
			return Target{}, fmt.Errorf("resolve: link %q: %w", name, err)
		}

		next, nextDomain, err := r.follow(ctx, domain, current, name, doc, hops)
		if err != nil {
			return Target{}, err
		}
		current, domain = next, nextDomain
	}

	return Target{Domain: domain, Ref: current}, nil
}

// follow advances through one link document, chasing soft and external links
// to the object they name.
func (r *Resolver) follow(ctx context.Context, domain string, parent object.Ref, name string, doc []byte, hops int) (object.Ref, string, error) {
	class, err := jsondoc.GetString(doc, "$.link.class")
	if err != nil {
		return object.Ref{}, "", fmt.Errorf("resolve: link %q: %w", name, err)
	}

	switch class {
	case ClassHard:
		idStr, err := jsondoc.GetString(doc, "$.link.id")
		if err != nil {
			return object.Ref{}, "", fmt.Errorf("resolve: hard link %q: %w", name, err)
		}
		id, err := object.ParseID(idStr)
		if err != nil {
			return object.Ref{}, "", fmt.Errorf("resolve: hard link %q: %w", name, err)
		}
		collection, err := jsondoc.GetString(doc, "$.link.collection")
		if err != nil {
			return object.Ref{}, "", fmt.Errorf("resolve: hard link %q: %w", name, err)
		}
		kind, err := object.KindFromCollection(collection)
		if err != nil {
			return object.Ref{}, "", fmt.Errorf("resolve: hard link %q: %w", name, err)
		}
		return object.Ref{ID: id, Kind: kind}, domain, nil

	case ClassSoft:
		target, err := jsondoc.GetString(doc, "$.link.h5path")
		if err != nil {
			return object.Ref{}, "", fmt.Errorf("resolve: soft link %q: %w", name, err)
		}
		// Relative soft link paths resolve from the group that holds the
		// link; absolute ones restart at the root inside resolve.
		t, err := r.resolve(ctx, domain, parent, target, hops+1)
		if err != nil {
			return object.Ref{}, "", err
		}
		return t.Ref, t.Domain, nil

	case ClassExternal:
		extDomain, err := jsondoc.GetString(doc, "$.link.h5domain")
		if err != nil {
			return object.Ref{}, "", fmt.Errorf("resolve: external link %q: %w", name, err)
		}
		extPath, err := jsondoc.GetString(doc, "$.link.h5path")
		if err != nil {
			return object.Ref{}, "", fmt.Errorf("resolve: external link %q: %w", name, err)
		}
		root, err := r.Root(ctx, extDomain)
		if err != nil {
			return object.Ref{}, "", err
		}
		t, err := r.resolve(ctx, extDomain, root, extPath, hops+1)
		if err != nil {
			return object.Ref{}, "", err
		}
		return t.Ref, t.Domain, nil

	default:
		return object.Ref{}, "", fmt.Errorf("resolve: link %q: unknown class %q: %w", name, class, jsondoc.ErrMalformed)
	}
}
