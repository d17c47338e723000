// Package client is the connector's operation surface: open a file domain,
// resolve paths, create and iterate links, commit and open named datatypes.
// It composes the transport, the path resolver, the link table and the
// datatype codec; every operation is synchronous and issues its requests
// inside the calling goroutine.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/h5rest/h5rest/internal/object"
	"github.com/h5rest/h5rest/internal/resolve"
	"github.com/h5rest/h5rest/internal/transport"
)

// ErrWrongKind indicates an operation addressed an object of the wrong kind,
// such as listing links under a dataset.
var ErrWrongKind = errors.New("client: object has wrong kind for operation")

// Client issues connector operations against one server endpoint. Files from
// different domains on the same server share a client.
type Client struct {
	transport *transport.Client
	resolver  *resolve.Resolver
}

// New builds a client over the transport.
func New(t *transport.Client) *Client {
	c := &Client{transport: t}
	c.resolver = resolve.New(restStore{t})
	return c
}

// Open resolves a file domain to its root group.
func (c *Client) Open(ctx context.Context, domain string) (*File, error) {
	root, err := c.resolver.Root(ctx, domain)
	if err != nil {
		return nil, err
	}
	return &File{client: c, Domain: domain, Root: root}, nil
}

// File is an open domain: the handle connector operations hang off.
type File struct {
	client *Client
	Domain string
	Root   object.Ref
}

// Resolve walks path from the file's root group.
func (f *File) Resolve(ctx context.Context, path string) (resolve.Target, error) {
	return f.client.resolver.Resolve(ctx, f.Domain, f.Root, path)
}

// ResolveFrom walks path from an already-resolved object, the way operations
// taking a parent handle do.
func (f *File) ResolveFrom(ctx context.Context, start object.Ref, path string) (resolve.Target, error) {
	return f.client.resolver.Resolve(ctx, f.Domain, start, path)
}

// Exists reports whether path names an object, converting the resolver's
// not-found into a boolean. Other failures are still errors.
func (f *File) Exists(ctx context.Context, path string) (bool, error) {
	_, err := f.Resolve(ctx, path)
	if err != nil {
		if errors.Is(err, resolve.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// restStore adapts the transport to the resolver's store interface.
type restStore struct {
	t *transport.Client
}

func (s restStore) Link(ctx context.Context, domain string, group object.ID, name string) ([]byte, error) {
	return s.t.Get(ctx, domain, linkEndpoint(group, name))
}

func (s restStore) Root(ctx context.Context, domain string) ([]byte, error) {
	return s.t.Get(ctx, domain, "/")
}

func linkEndpoint(group object.ID, name string) string {
	return fmt.Sprintf("/groups/%s/links/%s", group, url.PathEscape(name))
}

func linksEndpoint(group object.ID) string {
	return fmt.Sprintf("/groups/%s/links", group)
}

func objectEndpoint(ref object.Ref) (string, error) {
	collection, err := ref.Kind.Collection()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/%s/%s", collection, ref.ID), nil
}
