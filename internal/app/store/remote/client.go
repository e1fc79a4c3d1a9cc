// internal/app/store/remote/client.go
//
// Package remote implements the storeapi collaborators against a hosted
// key-collection REST store. Participants and users live under the main base
// URL; groups live under a separate base URL.
//
// Writes use PUT with a partial JSON body; the store merges the fields it
// receives. Transport failures, timeouts and 5xx responses are reported as
// storeapi.ErrUnavailable so the draw orchestrator can count them per write.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/secretsanta/internal/app/store/storeapi"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single request when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Config describes how to reach the store.
type Config struct {
	BaseURL       string // participants, users
	GroupsBaseURL string // groups; falls back to BaseURL when empty
	Timeout       time.Duration
}

// StatusError is returned for non-2xx responses that are not mapped onto a
// storeapi sentinel.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote store: %s %s: status %d", e.Method, e.Path, e.Code)
}

// Client talks to the remote store. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	groups  *url.URL
	timeout time.Duration
	http    *http.Client
	log     *zap.Logger
}

// New validates cfg and returns a Client whose transport is instrumented with
// otelhttp. A nil httpClient uses a fresh client over http.DefaultTransport.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	base, err := parseBase(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("remote store base url: %w", err)
	}
	groups := base
	if cfg.GroupsBaseURL != "" {
		if groups, err = parseBase(cfg.GroupsBaseURL); err != nil {
			return nil, fmt.Errorf("remote store groups url: %w", err)
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	hc := &http.Client{}
	if httpClient != nil {
		cp := *httpClient
		hc = &cp
	}
	rt := hc.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	hc.Transport = otelhttp.NewTransport(rt)

	return &Client{base: base, groups: groups, timeout: cfg.Timeout, http: hc, log: logger}, nil
}

func parseBase(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

// endpoint joins base with the collection path and optional query.
func endpoint(base *url.URL, path string, q url.Values) string {
	u := *base
	u.Path = base.Path + path
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// do sends one request and decodes a JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, method string, base *url.URL, path string, q url.Values, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint(base, path, q), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("remote store request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %s %s: %v", storeapi.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return statusErr(method, path, resp.StatusCode, string(snippet))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func statusErr(method, path string, code int, body string) error {
	switch {
	case code == http.StatusNotFound:
		return storeapi.ErrNotFound
	case code == http.StatusConflict:
		return storeapi.ErrDuplicate
	case code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%w: %s %s: status %d", storeapi.ErrUnavailable, method, path, code)
	default:
		return &StatusError{Method: method, Path: path, Code: code, Body: strings.TrimSpace(body)}
	}
}

// Ping issues a bounded list request against both base URLs.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{"limit": {"1"}}
	if err := c.do(ctx, http.MethodGet, c.base, "/users", q, nil, nil); err != nil {
		return err
	}
	return c.do(ctx, http.MethodGet, c.groups, "/groups", q, nil, nil)
}

// Backend exposes c as every collaborator.
func (c *Client) Backend() storeapi.Backend {
	return storeapi.Backend{Participants: c, Groups: c, Users: c, Pinger: c}
}

func itemPath(collection, id string) string {
	return "/" + collection + "/" + url.PathEscape(id)
}
