// Package transport issues blocking REST round-trips against the object
// store. The store identifies which file a request targets by the request's
// Host header, so every call names the file domain alongside the endpoint
// path. Responses are returned as raw bodies for the JSON accessors to pick
// apart; status classification is the only interpretation done here.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/h5rest/h5rest/internal/ratelimit"
)

// DefaultTimeout bounds a single request/response cycle.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// Endpoint is the server base URL, e.g. "http://hsdshdflab.hdfgroup.org".
	Endpoint string

	// HTTPClient overrides the underlying client; nil gets a default with
	// DefaultTimeout.
	HTTPClient *http.Client

	// Username/Password enable HTTP basic auth when Username is non-empty.
	Username string
	Password string

	// RateLimit is sustained requests per second; zero means unlimited.
	RateLimit float64

	// Debug dumps full requests and responses to stdout.
	Debug bool
}

// Client is a blocking request/response primitive. It is not safe for
// concurrent use: the connector's operations are synchronous by design and
// serialize their requests within one call stack.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	username   string
	password   string
	limiter    *ratelimit.Limiter
	debug      bool
}

// New validates the endpoint and builds a client.
func New(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("transport: endpoint must not be empty")
	}
	base, err := url.Parse(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid endpoint %s: %w", opts.Endpoint, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("transport: endpoint %s must use http or https", opts.Endpoint)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{
		base:       base,
		httpClient: httpClient,
		username:   opts.Username,
		password:   opts.Password,
		limiter:    ratelimit.New(opts.RateLimit),
		debug:      opts.Debug,
	}, nil
}

// Get issues a GET for the endpoint within the file domain.
func (c *Client) Get(ctx context.Context, domain, endpoint string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, domain, endpoint, nil)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, domain, endpoint string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPut, domain, endpoint, body)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, domain, endpoint string, body []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, domain, endpoint, body)
}

// Delete issues a DELETE for the endpoint within the file domain.
func (c *Client) Delete(ctx context.Context, domain, endpoint string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, domain, endpoint, nil)
}

func (c *Client) do(ctx context.Context, method, domain, endpoint string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("transport: rate limiting interrupted: %w", err)
	}

	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid endpoint %s: %w", endpoint, err)
	}

	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to create request: %w", err)
	}

	// The store routes requests to files by Host header, not URL path.
	if domain != "" {
		req.Host = domain
	}
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	if c.debug {
		c.debugRequest(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to read response body: %w", err)
	}

	if c.debug {
		c.debugResponse(resp, respBody)
	}

	if err := classifyStatus(resp.StatusCode, method, endpoint); err != nil {
		return respBody, err
	}
	return respBody, nil
}

// debugRequest outputs the full outbound request when debug mode is enabled.
func (c *Client) debugRequest(req *http.Request) {
	fmt.Println("========================================")
	fmt.Println("REQUEST:")
	fmt.Println("========================================")

	reqDump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		fmt.Printf("Error dumping request: %v\n", err)
		return
	}

	fmt.Print(string(reqDump))
	fmt.Println()
}

// debugResponse outputs the full response when debug mode is enabled.
func (c *Client) debugResponse(resp *http.Response, body []byte) {
	fmt.Println("========================================")
	fmt.Println("RESPONSE:")
	fmt.Println("========================================")

	resp.Body = io.NopCloser(bytes.NewReader(body))

	respDump, err := httputil.DumpResponse(resp, true)
	if err != nil {
		fmt.Printf("Error dumping response: %v\n", err)
		return
	}

	fmt.Print(string(respDump))
	fmt.Println("========================================")
	fmt.Println()
}
