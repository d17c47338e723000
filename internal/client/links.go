package client

import (
	"context"
	"fmt"

	"github.com/h5rest/h5rest/internal/linktable"
	"github.com/h5rest/h5rest/internal/object"
)

// GetLink fetches the link at path without following it, so soft and
// external links report their recorded targets rather than resolving.
func (f *File) GetLink(ctx context.Context, path string) (*linktable.Entry, error) {
	parent, name, err := f.client.resolver.ResolveParent(ctx, f.Domain, f.Root, path)
	if err != nil {
		return nil, err
	}

	doc, err := f.client.transport.Get(ctx, parent.Domain, linkEndpoint(parent.Ref.ID, name))
	if err != nil {
		return nil, fmt.Errorf("client: get link %q: %w", path, err)
	}
	return linktable.ParseLink(doc)
}

// CreateHardLink links target under path's final component.
func (f *File) CreateHardLink(ctx context.Context, path string, target object.Ref) error {
	return f.createLink(ctx, path, fmt.Appendf(nil, `{"id": %q}`, target.ID))
}

// CreateSoftLink records h5path under path's final component without
// checking that it resolves.
func (f *File) CreateSoftLink(ctx context.Context, path, h5path string) error {
	return f.createLink(ctx, path, fmt.Appendf(nil, `{"h5path": %q}`, h5path))
}

// CreateExternalLink records a path in another file domain under path's
// final component.
func (f *File) CreateExternalLink(ctx context.Context, path, h5domain, h5path string) error {
	return f.createLink(ctx, path, fmt.Appendf(nil, `{"h5path": %q, "h5domain": %q}`, h5path, h5domain))
}

func (f *File) createLink(ctx context.Context, path string, body []byte) error {
	parent, name, err := f.client.resolver.ResolveParent(ctx, f.Domain, f.Root, path)
	if err != nil {
		return err
	}

	if _, err := f.client.transport.Put(ctx, parent.Domain, linkEndpoint(parent.Ref.ID, name), body); err != nil {
		return fmt.Errorf("client: create link %q: %w", path, err)
	}
	return nil
}

// DeleteLink removes the link at path. The object it pointed to is untouched.
func (f *File) DeleteLink(ctx context.Context, path string) error {
	parent, name, err := f.client.resolver.ResolveParent(ctx, f.Domain, f.Root, path)
	if err != nil {
		return err
	}

	if _, err := f.client.transport.Delete(ctx, parent.Domain, linkEndpoint(parent.Ref.ID, name)); err != nil {
		return fmt.Errorf("client: delete link %q: %w", path, err)
	}
	return nil
}

// IterateOptions selects ordering, recursion, and resumability for link
// iteration.
type IterateOptions struct {
	Kind      linktable.IndexKind
	Order     linktable.Order
	Recursive bool

	// Cursor resumes a previous non-recursive iteration over the same
	// group. It must carry the same index kind and order.
	Cursor *linktable.Cursor
}

// IterateLinks builds the link table for the group at path and walks it with
// the visitor. The positive short-circuit value of the visitor is returned;
// zero means the iteration ran to completion.
func (f *File) IterateLinks(ctx context.Context, path string, opts IterateOptions, visit linktable.Visitor) (int, error) {
	target, err := f.Resolve(ctx, path)
	if err != nil {
		return 0, err
	}

	table, err := f.buildTable(ctx, target.Domain, target.Ref, opts)
	if err != nil {
		return 0, err
	}

	cursor := opts.Cursor
	if cursor != nil {
		if cursor.Index > 0 && (cursor.Kind != opts.Kind || cursor.Order != opts.Order) {
			return 0, fmt.Errorf("client: cursor was produced by a %v/%v iteration", cursor.Kind, cursor.Order)
		}
		cursor.Kind, cursor.Order = opts.Kind, opts.Order
	}

	return linktable.Traverse(table, linktable.TraverseOptions{
		Cursor: cursor,
		Visit:  visit,
	})
}

// ObjectVisitor receives each distinct object reachable from the starting
// point. The return contract matches linktable.Visitor.
type ObjectVisitor func(path string, ref object.Ref) int

// VisitObjects walks every object reachable from path through hard links,
// calling the visitor on the starting object itself first under the name
// ".". Each object is visited at most once even when several link paths
// reach it.
func (f *File) VisitObjects(ctx context.Context, path string, kind linktable.IndexKind, order linktable.Order, visit ObjectVisitor) (int, error) {
	target, err := f.Resolve(ctx, path)
	if err != nil {
		return 0, err
	}

	switch ret := visit(".", target.Ref); {
	case ret < 0:
		return ret, fmt.Errorf("%w at %q", linktable.ErrVisitorAbort, ".")
	case ret > 0:
		return ret, nil
	}
	if target.Ref.Kind != object.KindGroup {
		return 0, nil
	}

	table, err := f.buildTable(ctx, target.Domain, target.Ref, IterateOptions{
		Kind:      kind,
		Order:     order,
		Recursive: true,
	})
	if err != nil {
		return 0, err
	}

	return linktable.Traverse(table, linktable.TraverseOptions{
		Visited: map[object.ID]struct{}{target.Ref.ID: {}},
		Visit: func(entryPath string, entry *linktable.Entry) int {
			// Soft and external links are not objects; only hard links
			// contribute to an object walk.
			if entry.Class != linktable.ClassHard {
				return 0
			}
			return visit(entryPath, entry.Target)
		},
	})
}

func (f *File) buildTable(ctx context.Context, domain string, group object.Ref, opts IterateOptions) (*linktable.Table, error) {
	if group.Kind != object.KindGroup {
		return nil, fmt.Errorf("client: cannot list links under %s %s: %w", group.Kind, group.ID, ErrWrongKind)
	}

	listing, err := f.client.transport.Get(ctx, domain, linksEndpoint(group.ID))
	if err != nil {
		return nil, fmt.Errorf("client: list links of %s: %w", group.ID, err)
	}

	compare, err := linktable.CompareBy(opts.Kind, opts.Order)
	if err != nil {
		return nil, err
	}

	return linktable.Build(ctx, group.ID, listing, linktable.Options{
		Recursive: opts.Recursive,
		Compare:   compare,
		List: func(ctx context.Context, sub object.ID) ([]byte, error) {
			return f.client.transport.Get(ctx, domain, linksEndpoint(sub))
		},
	})
}
