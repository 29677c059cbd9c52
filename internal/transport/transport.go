package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const (
	UserAgent      = "celcat-fetch/1.0 (github.com/tleroy/celcat-fetch)"
	DefaultTimeout = 30 * time.Second
)

// RequestSpec describes one request to the Celcat service. Path is relative
// to the client's base URL. Form is sent as the request body for POST and as
// query parameters for GET.
type RequestSpec struct {
	Method string
	Path   string
	Form   url.Values
}

// Response is the raw outcome of a request. FinalURL is the URL after any
// redirects, which the authenticator inspects to detect login bounces.
type Response struct {
	StatusCode int
	FinalURL   *url.URL
	Header     http.Header
	Body       []byte
}

// Client wraps one http.Client with a shared cookie jar so that session
// cookies set by the service (including mid-flight Set-Cookie updates) are
// carried on every subsequent request.
type Client struct {
	base       *url.URL
	httpClient *http.Client
}

// New creates a Client for the given Celcat base URL.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	return &Client{
		base: base,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
	}, nil
}

// BaseURL returns the configured service base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Do issues one request and reads the full response body. Non-2xx responses
// return the Response alongside a *StatusError so callers can still inspect
// headers and the final URL. Redirects are followed; cookies flow through
// the jar in both directions.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	reqURL := *c.base
	reqURL.Path = strings.TrimRight(reqURL.Path, "/") + spec.Path

	var body io.Reader
	if spec.Method == http.MethodGet {
		if spec.Form != nil {
			reqURL.RawQuery = spec.Form.Encode()
		}
	} else if spec.Form != nil {
		body = strings.NewReader(spec.Form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapSendError(spec, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapSendError(spec, err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL,
		Header:     resp.Header,
		Body:       data,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, &StatusError{Code: resp.StatusCode, Snippet: snippet(data)}
	}

	return out, nil
}

// mapSendError classifies a network-level failure into the error taxonomy.
func mapSendError(spec RequestSpec, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", spec.Method, spec.Path, ErrTimeout)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s %s: %w", spec.Method, spec.Path, ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &TransportError{Op: spec.Method + " " + spec.Path, Err: err}
}

func snippet(data []byte) string {
	const max = 200
	s := string(data)
	if len(s) > max {
		s = s[:max]
	}
	return s
}
