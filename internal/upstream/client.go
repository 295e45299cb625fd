package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxBodyBytes caps how much of an upstream answer is buffered.
const maxBodyBytes = 10 << 20

// Request is one call to the backend API. Path is escaped and relative to
// the base URL.
type Request struct {
	Method        string
	Path          string
	Query         url.Values
	Body          []byte
	Authorization string
	Header        http.Header
}

// Response is a 2xx answer from the backend.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Error is a non-2xx answer from the backend. Body may be empty.
type Error struct {
	Status int
	Body   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream returned %d", e.Status)
}

// Client talks to the backend API.
type Client struct {
	BaseURL *url.URL
	HTTP    *http.Client

	// Retries is how many extra attempts a GET gets after a transport error
	// or a 502, 503 or 504. RetryWait is the first pause between attempts.
	Retries   uint
	RetryWait time.Duration
}

// NewClient builds a client for baseURL with a traced transport.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Client{
		BaseURL: u,
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		RetryWait: 200 * time.Millisecond,
	}, nil
}

// resolve joins an already escaped path onto the base URL.
func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("upstream path %q: %w", path, err)
	}
	u := c.BaseURL.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u, nil
}

// Do sends req. A non-2xx status yields an *Error, anything that prevented a
// response yields a wrapped transport error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.Retries == 0 || req.Method != http.MethodGet {
		return c.once(ctx, req)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.RetryWait
	return backoff.Retry(ctx, func() (*Response, error) {
		resp, err := c.once(ctx, req)
		var upErr *Error
		if errors.As(err, &upErr) && !retryable(upErr.Status) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.Retries+1))
}

func retryable(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) once(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("X-Requested-With", "XMLHttpRequest")
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Authorization != "" {
		httpReq.Header.Set("Authorization", req.Authorization)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Body: raw}
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}
