package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"

	"storepos/internal/domain"
	"storepos/internal/logging"
	"storepos/internal/metrics"
)

const (
	DefaultTimeout  = 15 * time.Second
	maxResponseBody = 4 << 20
)

// Session is the part of the session store the gateway drives.
type Session interface {
	ActiveToken(ctx context.Context) (string, error)
	Logout(ctx context.Context) bool
}

// Navigator sends the operator back to the login entry point.
type Navigator interface {
	RedirectToLogin()
}

type NavigatorFunc func()

func (f NavigatorFunc) RedirectToLogin() { f() }

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Session    Session
	Navigator  Navigator
	Logger     *zap.Logger
	Metrics    *metrics.ClientMetrics
	HTTPClient *http.Client
}

type Client struct {
	base      *url.URL
	http      *http.Client
	session   Session
	navigator Navigator
	logger    *zap.Logger
	metrics   *metrics.ClientMetrics
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q", opts.BaseURL)
	}
	if opts.Session == nil {
		return nil, errors.New("gateway requires a session")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	// Copy so the caller's client keeps its own settings.
	clone := *httpClient
	clone.Timeout = timeout

	return &Client{
		base:      base,
		http:      &clone,
		session:   opts.Session,
		navigator: opts.Navigator,
		logger:    logging.OrNop(opts.Logger),
		metrics:   opts.Metrics,
	}, nil
}

// Do performs one call. body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded and validated response.
func (c *Client) Do(ctx context.Context, method string, path string, query url.Values, body any, out any) error {
	token, err := c.session.ActiveToken(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrAuthExpired) {
			c.redirect()
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	var reader io.Reader
	if body != nil {
		if v, ok := body.(domain.Validator); ok {
			if err := v.Validate(); err != nil {
				return err
			}
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path, query), reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.Observe(method, 0, time.Since(start))
		c.logger.Warn("backend unreachable", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w: %v", method, path, domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	elapsed := time.Since(start)
	c.metrics.Observe(method, resp.StatusCode, elapsed)
	c.logger.Debug("backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
	)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w: %v", method, path, domain.ErrNetwork, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.session.Logout(context.WithoutCancel(ctx)) {
			c.redirect()
		}
		return fmt.Errorf("%s %s: %w", method, path, decodeBackendError(resp.StatusCode, raw))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %w", method, path, decodeBackendError(resp.StatusCode, raw))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%s %s: %w: empty body", method, path, domain.ErrMalformedResponse)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, domain.ErrMalformedResponse, err)
	}
	if err := validatePayload(out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, domain.ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) redirect() {
	if c.navigator != nil {
		c.navigator.RedirectToLogin()
	}
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func decodeBackendError(status int, raw []byte) *domain.BackendError {
	be := &domain.BackendError{Status: status}
	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err == nil {
		be.Code = payload.Code
		be.Message = payload.Error
		if be.Message == "" {
			be.Message = payload.Message
		}
		return be
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	be.Message = text
	return be
}

func validatePayload(out any) error {
	if v, ok := out.(domain.Validator); ok {
		return v.Validate()
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice {
		return nil
	}
	for i := 0; i < rv.Len(); i++ {
		if v, ok := rv.Index(i).Interface().(domain.Validator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	}
	return nil
}

func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodGet, path, query, nil, &out)
	return out, err
}

func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPost, path, nil, body, &out)
	return out, err
}

func Patch[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPatch, path, nil, body, &out)
	return out, err
}

func Delete[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodDelete, path, nil, nil, &out)
	return out, err
}
