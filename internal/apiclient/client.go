// Package apiclient talks to the remote storefront REST API. Calls carry a timeout and
// run through a circuit breaker; non-2xx responses come back as coded errors.
package apiclient

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

	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/sony/gobreaker"
)

const (
	breakerName     = "storefront-api"
	maxErrorBodyLen = 64 << 10
)

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	AccessToken() string
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func() string

func (f TokenSourceFunc) AccessToken() string { return f() }

// Params groups dependencies for the API client.
type Params struct {
	Config     config.APIConfig
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *logger.Logger
	Metrics    *metrics.ClientMetrics
}

type Client struct {
	base    *url.URL
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	tokens  TokenSource
	logg    *logger.Logger
	metrics *metrics.ClientMetrics
}

func New(params Params) (*Client, error) {
	raw := strings.TrimSpace(params.Config.BaseURL)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/") + "/")
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "api base url is invalid")
	}

	c := &Client{
		base:    base,
		http:    params.HTTPClient,
		timeout: params.Config.Timeout,
		tokens:  params.Tokens,
		logg:    params.Logger,
		metrics: params.Metrics,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.tokens == nil {
		c.tokens = TokenSourceFunc(func() string { return "" })
	}
	if c.logg == nil {
		c.logg = logger.Nop()
	}
	c.cb = gobreaker.NewCircuitBreaker(breakerSettings(params.Config, c.logg, c.metrics))
	return c, nil
}

func breakerSettings(cfg config.APIConfig, logg *logger.Logger, m *metrics.ClientMetrics) gobreaker.Settings {
	minRequests := cfg.BreakerMinRequests
	ratio := cfg.BreakerFailureRatio
	return gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests || counts.Requests == 0 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "circuit breaker state changed")
			m.SetBreakerOpen(name, to == gobreaker.StateOpen)
		},
		// Client errors and callers giving up say nothing about the API's health.
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			typed := pkgerrors.As(err)
			return typed != nil && typed.Code() != pkgerrors.CodeDependency && typed.Code() != pkgerrors.CodeInternal
		},
	}
}

// request describes one API call. Paths are relative to the base URL and keep the
// trailing slash the API expects.
type request struct {
	endpoint    string
	method      string
	path        string
	query       url.Values
	body        any
	contentType string
	auth        bool
	token       string
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	payload, contentType, err := encodeBody(req)
	if err != nil {
		return err
	}
	target := c.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(req.path, "/")})
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	_, err = c.cb.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, req, target.String(), payload, contentType, out)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storefront api temporarily unavailable")
		}
		return err
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, req request, target string, payload []byte, contentType string, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build api request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	token := req.token
	if token == "" && req.auth {
		token = c.tokens.AccessToken()
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.endpoint, 0, time.Since(started))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s failed", req.method, req.path))
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(req.endpoint, resp.StatusCode, time.Since(started))

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"endpoint":    req.endpoint,
		"method":      req.method,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
	})
	c.logg.Debug(logCtx, "api.request")

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s response", req.endpoint))
	}
	return nil
}

func encodeBody(req request) ([]byte, string, error) {
	switch body := req.body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return body, req.contentType, nil
	default:
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode api request")
		}
		return payload, "application/json", nil
	}
}

// decodeError maps a failed response onto the error taxonomy, keeping the decoded
// body as details.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
	code := pkgerrors.CodeForStatus(resp.StatusCode)

	var details any
	message := ""
	if len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &details) == nil {
		message = messageFrom(details)
	} else if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 200 {
		message = text
	}
	if message == "" {
		message = strings.ToLower(http.StatusText(resp.StatusCode))
	}

	err := pkgerrors.New(code, message)
	if details != nil {
		err = err.WithDetails(details)
	}
	return err
}

func messageFrom(details any) string {
	obj, ok := details.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"detail", "error", "message"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	if list, ok := obj["non_field_errors"].([]any); ok && len(list) > 0 {
		if s, ok := list[0].(string); ok {
			return s
		}
	}
	return ""
}
