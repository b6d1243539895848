package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/duke-git/lancet/v2/retry"

	"github.com/krau/skraper/common/utils/netutil"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/72.0.3626.121 Safari/537.36"
	DefaultAcceptLanguage = "en-US"

	DefaultConnectTimeout = 5 * time.Second

	// DefaultTimeout bounds a whole Fetch and the wait for response headers in Open.
	DefaultTimeout = time.Minute

	maxRedirects = 10
)

type Request struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
}

// Get is a GET request with optional headers.
func Get(url string, headers ...map[string]string) Request {
	req := Request{URL: url, Method: http.MethodGet}
	if len(headers) > 0 {
		req.Headers = headers[0]
	}
	return req
}

// Client performs HTTP requests on behalf of providers and downloads.
// Any failure, including a non-2xx status after redirects, is an error.
type Client interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
	// Open returns the streaming body and its content length (-1 when unknown).
	Open(ctx context.Context, req Request) (io.ReadCloser, int64, error)
}

type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request %s returned status %d", e.URL, e.StatusCode)
}

type HTTPClient struct {
	client         *http.Client
	headers        map[string]string
	retryTimes     uint
	proxy          string
	connectTimeout time.Duration
	timeout        time.Duration
}

var _ Client = (*HTTPClient)(nil)

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying client. The redirect policy is
// still installed on it.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		h.client = c
	}
}

func WithProxy(proxyUrl string) Option {
	return func(h *HTTPClient) {
		h.proxy = proxyUrl
	}
}

func WithTimeout(connect, total time.Duration) Option {
	return func(h *HTTPClient) {
		if connect > 0 {
			h.connectTimeout = connect
		}
		if total > 0 {
			h.timeout = total
		}
	}
}

// WithRetry sets the number of attempts for transport errors and 5xx responses.
func WithRetry(times uint) Option {
	return func(h *HTTPClient) {
		h.retryTimes = max(times, 1)
	}
}

// WithHeaders adds default headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(h *HTTPClient) {
		for k, v := range headers {
			h.headers[k] = v
		}
	}
}

func New(opts ...Option) (*HTTPClient, error) {
	h := &HTTPClient{
		headers: map[string]string{
			"User-Agent":      DefaultUserAgent,
			"Accept-Language": DefaultAcceptLanguage,
		},
		retryTimes:     1,
		connectTimeout: DefaultConnectTimeout,
		timeout:        DefaultTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		transport, err := netutil.NewTransport(h.proxy, h.connectTimeout)
		if err != nil {
			return nil, err
		}
		transport.ResponseHeaderTimeout = h.timeout
		h.client = &http.Client{Transport: transport}
	}
	h.client.CheckRedirect = carryCookiesOnFirstRedirect
	return h, nil
}

// carryCookiesOnFirstRedirect copies cookies set by the first redirect
// response onto the follow-up request.
func carryCookiesOnFirstRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if len(via) == 1 && req.Response != nil {
		for _, c := range req.Response.Cookies() {
			req.AddCookie(c)
		}
	}
	return nil
}

func (h *HTTPClient) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", r.URL, err)
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func (h *HTTPClient) open(ctx context.Context, r Request) (*http.Response, error) {
	req, err := h.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request %s: %w", r.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, &StatusError{URL: r.URL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (h *HTTPClient) withRetry(ctx context.Context, fn func() error) error {
	if h.retryTimes <= 1 {
		return fn()
	}
	var lastErr error
	err := retry.Retry(func() error {
		lastErr = fn()
		if lastErr != nil && retryable(lastErr) {
			return lastErr
		}
		return nil
	}, retry.RetryTimes(h.retryTimes), retry.Context(ctx))
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if lastErr != nil {
		return lastErr
	}
	return err
}

func (h *HTTPClient) Fetch(ctx context.Context, r Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	var body []byte
	err := h.withRetry(ctx, func() error {
		resp, err := h.open(ctx, r)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read body of %s: %w", r.URL, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (h *HTTPClient) Open(ctx context.Context, r Request) (io.ReadCloser, int64, error) {
	var resp *http.Response
	err := h.withRetry(ctx, func() error {
		var err error
		resp, err = h.open(ctx, r)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

// HTTP exposes the underlying client for libraries that need one.
func (h *HTTPClient) HTTP() *http.Client {
	return h.client
}
