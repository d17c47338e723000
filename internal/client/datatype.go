package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/h5rest/h5rest/internal/datatype"
	"github.com/h5rest/h5rest/internal/jsondoc"
	"github.com/h5rest/h5rest/internal/object"
)

// CommitDatatype stores the descriptor as a named datatype linked at path,
// returning the new object's reference.
func (f *File) CommitDatatype(ctx context.Context, path string, d *datatype.Descriptor) (object.Ref, error) {
	parent, name, err := f.client.resolver.ResolveParent(ctx, f.Domain, f.Root, path)
	if err != nil {
		return object.Ref{}, err
	}

	encoded, err := datatype.Encode(d)
	if err != nil {
		return object.Ref{}, err
	}

	body := fmt.Appendf(nil, `{"type": %s, "link": {"id": %q, "name": %q}}`,
		encoded, parent.Ref.ID, name)
	resp, err := f.client.transport.Post(ctx, parent.Domain, "/datatypes", body)
	if err != nil {
		return object.Ref{}, fmt.Errorf("client: commit datatype %q: %w", path, err)
	}

	idStr, err := jsondoc.GetString(resp, "$.id")
	if err != nil {
		return object.Ref{}, fmt.Errorf("client: commit datatype %q: %w", path, err)
	}
	id, err := object.ParseID(idStr)
	if err != nil {
		return object.Ref{}, fmt.Errorf("client: commit datatype %q: %w", path, err)
	}
	return object.Ref{ID: id, Kind: object.KindDatatype}, nil
}

// OpenDatatype resolves path to a committed datatype and decodes its
// definition.
func (f *File) OpenDatatype(ctx context.Context, path string) (object.Ref, *datatype.Descriptor, error) {
	target, err := f.Resolve(ctx, path)
	if err != nil {
		return object.Ref{}, nil, err
	}
	if target.Ref.Kind != object.KindDatatype {
		return object.Ref{}, nil, fmt.Errorf("client: %q is a %s: %w", path, target.Ref.Kind, ErrWrongKind)
	}

	d, err := f.fetchDatatype(ctx, target.Domain, target.Ref)
	if err != nil {
		return object.Ref{}, nil, fmt.Errorf("client: open datatype %q: %w", path, err)
	}
	return target.Ref, d, nil
}

// ResolveCommitted replaces a committed-type indirection with the stored
// definition, issuing a fresh fetch. Non-committed descriptors come back
// unchanged.
func (f *File) ResolveCommitted(ctx context.Context, d *datatype.Descriptor) (*datatype.Descriptor, error) {
	if d.Class != datatype.ClassCommitted {
		return d, nil
	}

	// The URI is either a bare identifier or a "datatypes/t-..." path.
	uri := d.URI
	if idx := strings.LastIndexByte(uri, '/'); idx >= 0 {
		uri = uri[idx+1:]
	}
	id, err := object.ParseID(uri)
	if err != nil {
		return nil, fmt.Errorf("client: committed type URI %q: %w", d.URI, err)
	}

	return f.fetchDatatype(ctx, f.Domain, object.Ref{ID: id, Kind: object.KindDatatype})
}

// fetchDatatype pulls the object-info document for a datatype and decodes
// the raw span of its "type" section.
func (f *File) fetchDatatype(ctx context.Context, domain string, ref object.Ref) (*datatype.Descriptor, error) {
	endpoint, err := objectEndpoint(ref)
	if err != nil {
		return nil, err
	}
	doc, err := f.client.transport.Get(ctx, domain, endpoint)
	if err != nil {
		return nil, err
	}

	span, _, err := jsondoc.KeyObjectSpan(doc, "type", 0)
	if err != nil {
		return nil, err
	}
	return datatype.Decode(span)
}
