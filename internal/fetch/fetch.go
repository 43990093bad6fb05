// Package fetch opens registry documents and addon archives from http(s)
// URLs, s3:// object locations, or local paths, honoring the configured
// proxies and connect timeout. TLS certificates are always verified.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/addonreg/addonreg/internal/addon"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Origin tells callers whether a location is fetched over the network or
// read from the local filesystem; failures are classified differently.
type Origin int

const (
	Network Origin = iota
	Local
)

// OriginOf classifies a location without touching it.
func OriginOf(location string) Origin {
	if addon.IsNetwork(location) {
		return Network
	}
	return Local
}

// LocalPath strips a file:// prefix.
func LocalPath(location string) string {
	return strings.TrimPrefix(location, "file://")
}

// S3API is the subset of the S3 client used to read objects.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Client opens locations for reading.
type Client struct {
	httpClient *http.Client
	userAgent  string

	s3Once     sync.Once
	s3         S3API
	s3Region   string
	s3Endpoint string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport-configured client (useful for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithS3Client sets the client used for s3:// locations.
func WithS3Client(api S3API) Option {
	return func(c *Client) {
		c.s3 = api
	}
}

// WithS3Region sets the region of the lazily built S3 client.
func WithS3Region(region string) Option {
	return func(c *Client) {
		c.s3Region = region
	}
}

// WithS3Endpoint points the lazily built S3 client at an S3-compatible
// endpoint and switches to path-style addressing.
func WithS3Endpoint(endpoint string) Option {
	return func(c *Client) {
		c.s3Endpoint = endpoint
	}
}

// WithUserAgent sets the User-Agent header of http(s) requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New builds a Client from the network settings of a configuration.
func New(network addon.Network, opts ...Option) *Client {
	c := &Client{
		httpClient: newHTTPClient(network),
		userAgent:  "addonreg",
		s3Region:   "us-east-1",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newHTTPClient(network addon.Network) *http.Client {
	dialer := &net.Dialer{
		Timeout:   network.ConnectTimeout(),
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 proxyFunc(network.Proxies),
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport}
}

// proxyFunc selects a proxy by request scheme, falling back to "all" and
// then to the environment when no proxies are configured.
func proxyFunc(proxies map[string]string) func(*http.Request) (*url.URL, error) {
	if len(proxies) == 0 {
		return http.ProxyFromEnvironment
	}
	return func(req *http.Request) (*url.URL, error) {
		raw, ok := proxies[req.URL.Scheme]
		if !ok {
			raw, ok = proxies["all"]
		}
		if !ok || raw == "" {
			return nil, nil
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy %q: %w", raw, err)
		}
		return u, nil
	}
}

// Open returns a reader over the content at location. Errors returned by
// Open mean the resource could not be reached; errors from the reader mean
// the transfer broke midway.
func (c *Client) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if OriginOf(location) == Local {
		f, err := os.Open(LocalPath(location))
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", location, err)
		}
		return f, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parsing location %q: %w", location, err)
	}

	switch u.Scheme {
	case "http", "https":
		return c.openHTTP(ctx, location)
	case "s3":
		return c.openS3(ctx, u)
	default:
		return nil, fmt.Errorf("unsupported scheme %q in %s", u.Scheme, location)
	}
}

func (c *Client) openHTTP(ctx context.Context, location string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", location, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned status %d", location, resp.StatusCode)
	}
	return resp.Body, nil
}

// ReadAll reads the whole content at location.
func (c *Client) ReadAll(ctx context.Context, location string) ([]byte, error) {
	rc, err := c.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(ContextReader(ctx, rc))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", location, err)
	}
	return data, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

// ContextReader returns a reader that stops with ctx.Err() once ctx is
// done. Cancellation is checked at every chunk boundary.
func ContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &contextReader{ctx: ctx, r: r}
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
