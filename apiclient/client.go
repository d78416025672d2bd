// Package apiclient is the request pipeline for the club service. Every
// outbound call passes through it: it attaches the bearer token, coalesces
// concurrent token refreshes into a single round trip, retries a request at
// most once after a refresh, and degrades to the fallback responder when the
// live service is unreachable.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/clubsync/go-club-client/credentials"
	"github.com/clubsync/go-club-client/fallback"
	"github.com/clubsync/go-club-client/internal/errors"
)

// TokenSource provides the current token pair and accepts the two mutations
// the pipeline is allowed to trigger. The session manager implements it and
// remains the sole owner of session state.
type TokenSource interface {
	// Pair returns the current token pair, or nil when signed out.
	Pair() *credentials.TokenPair
	// StorePair atomically replaces the pair after a successful refresh.
	StorePair(pair credentials.TokenPair) error
	// Invalidate clears the session and stored credentials after an
	// unrecoverable refresh failure. Must be idempotent.
	Invalidate()
}

const (
	routeLogin   = "/auth/login"
	routeRefresh = "/auth/refresh"
	routeMe      = "/auth/me"
)

// refreshKey is the singleflight key: one refresh per client, regardless of
// how many requests hit a 401 concurrently.
const refreshKey = "token_refresh"

// Client executes requests against the club service API.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokens        TokenSource
	fallback      *fallback.Responder
	allowFallback bool
	log           zerolog.Logger

	refresh singleflight.Group
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(cl *Client) {
		cl.log = log
	}
}

// WithFallback attaches an availability fallback responder. Without one the
// client always propagates network errors.
func WithFallback(responder *fallback.Responder) Option {
	return func(cl *Client) {
		cl.fallback = responder
		cl.allowFallback = responder != nil
	}
}

// New creates a Client for the given API base URL.
func New(baseURL string, timeout time.Duration, tokens TokenSource, options ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("[apiclient.New] baseURL is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("[apiclient.New] token source is required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

// Execute issues a request and returns the raw response payload.
//
// On a 401 from a non-auth endpoint it performs one coalesced token refresh
// and retries the original request exactly once with the pair produced by
// that refresh. On any other network failure it degrades to the fallback
// responder when one is attached, otherwise the error propagates.
func (c *Client) Execute(ctx context.Context, method, path string, body any) ([]byte, error) {
	raw, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	if c.allowFallback && c.fallback.Active() {
		return c.fallback.Respond(method, path, raw)
	}

	payload, status, err := c.do(ctx, method, path, raw, contentType, c.accessToken())
	if err != nil {
		return c.degrade(method, path, raw, err)
	}

	if status == http.StatusUnauthorized && !refreshExempt(path) {
		pair, refreshErr := c.refreshTokens(ctx)
		if refreshErr != nil {
			return nil, refreshErr
		}
		payload, status, err = c.do(ctx, method, path, raw, contentType, pair.Access)
		if err != nil {
			return c.degrade(method, path, raw, err)
		}
		if status == http.StatusUnauthorized {
			// A fresh token was rejected; the session is not recoverable.
			c.tokens.Invalidate()
			return nil, errors.ErrSessionExpired
		}
	}

	if status >= 400 {
		return nil, &APIError{StatusCode: status, Detail: errorDetail(payload)}
	}
	return payload, nil
}

// Get issues a GET request and decodes the response into out when non-nil.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.call(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	payload, err := c.Execute(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return errors.Wrapf(err, "[apiclient] decode %s %s response", method, path)
	}
	return nil
}

// Login exchanges credentials for a token pair. The service expects an
// OAuth2-style form body with the email in the username field. A 401 here
// means bad credentials, never an expired session.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	payload, err := c.Execute(ctx, http.MethodPost, routeLogin, form)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, err
	}
	var tokens TokenResponse
	if err := json.Unmarshal(payload, &tokens); err != nil {
		return nil, errors.Wrapf(err, "[apiclient.Login] decode token response")
	}
	return &tokens, nil
}

// refreshTokens performs the single-flight token refresh. Concurrent 401s
// share one round trip and all retries carry the pair this refresh produced.
// Refresh is never retried: any failure here terminates the session.
func (c *Client) refreshTokens(ctx context.Context) (credentials.TokenPair, error) {
	v, err, shared := c.refresh.Do(refreshKey, func() (any, error) {
		pair := c.tokens.Pair()
		if pair == nil {
			return nil, errors.ErrNoStoredCredentials
		}

		payload, status, err := c.do(ctx, http.MethodPost, routeRefresh,
			mustJSON(map[string]string{"refresh_token": pair.Refresh}), "application/json", "")
		if err != nil {
			return nil, errors.Wrapf(err, "[apiclient] refresh call")
		}
		if status >= 400 {
			return nil, errors.Wrapf(errors.ErrInvalidRefreshToken, "[apiclient] refresh rejected with status %d", status)
		}

		var tokens TokenResponse
		if err := json.Unmarshal(payload, &tokens); err != nil {
			return nil, errors.Wrapf(err, "[apiclient] decode refresh response")
		}
		newPair := credentials.TokenPair{Access: tokens.AccessToken, Refresh: tokens.RefreshToken}
		if !newPair.Complete() {
			return nil, errors.ErrInvalidRefreshToken
		}
		if err := c.tokens.StorePair(newPair); err != nil {
			return nil, errors.Wrapf(err, "[apiclient] store refreshed pair")
		}
		return newPair, nil
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("Token refresh failed, terminating session")
		c.tokens.Invalidate()
		return credentials.TokenPair{}, errors.Wrapf(errors.ErrSessionExpired, "%v", err)
	}
	c.log.Debug().Bool("shared", shared).Msg("Token refresh completed")
	return v.(credentials.TokenPair), nil
}

// degrade routes a failed live call to the fallback responder where
// permitted. Context cancellation is the caller's decision and always
// propagates.
func (c *Client) degrade(method, path string, raw []byte, cause error) ([]byte, error) {
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return nil, cause
	}
	if !c.allowFallback {
		return nil, errors.Wrapf(errors.ErrNetworkUnavailable, "%v", cause)
	}
	c.log.Warn().Err(cause).Str("path", path).Msg("Live call failed, entering fallback mode")
	c.fallback.Activate()
	return c.fallback.Respond(method, path, raw)
}

func (c *Client) do(ctx context.Context, method, path string, raw []byte, contentType, bearer string) ([]byte, int, error) {
	var body io.Reader
	if len(raw) > 0 {
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "[apiclient] build %s %s", method, path)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "[apiclient] read %s %s response", method, path)
	}
	return payload, resp.StatusCode, nil
}

func (c *Client) accessToken() string {
	if pair := c.tokens.Pair(); pair != nil {
		return pair.Access
	}
	return ""
}

// refreshExempt reports whether a 401 from path must not trigger a token
// refresh: login and refresh failures are terminal, and OAuth exchanges
// carry provider tokens rather than our bearer token.
func refreshExempt(path string) bool {
	switch path {
	case routeLogin, routeRefresh:
		return true
	}
	return strings.HasPrefix(path, "/auth/oauth/") && !strings.HasSuffix(path, "/set-role")
}

func encodeBody(body any) (raw []byte, contentType string, err error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case url.Values:
		return []byte(b.Encode()), "application/x-www-form-urlencoded", nil
	case []byte:
		return b, "application/json", nil
	case json.RawMessage:
		return b, "application/json", nil
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, "", errors.Wrapf(err, "[apiclient] encode request body")
		}
		return raw, "application/json", nil
	}
}

func errorDetail(payload []byte) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.Detail
}

func mustJSON(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
