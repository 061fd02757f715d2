package apiclient

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/jrsteele09/ems-console/internal/config"
	apperrors "github.com/jrsteele09/ems-console/internal/errors"
	"github.com/jrsteele09/ems-console/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Client is the single call surface the console uses to reach the backend.
// It attaches the current access token to every request and recovers once
// from a 401 by refreshing the token and replaying the request.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	jar         http.CookieJar
	tokens      *token.Store
	refresher   *refresher
	loginPath   string
	refreshPath string
	authPaths   map[string]struct{}
	logger      zerolog.Logger
}

// Option configures a Client at construction.
type Option func(*Client)

// WithHTTPClient uses a copy of hc as the underlying transport. The copy's
// timeout is overwritten with the configured request timeout, and its jar is
// replaced when WithCookieJar is also given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		cp := *hc
		c.httpClient = &cp
	}
}

// WithCookieJar sets the jar that carries the server's refresh cookie.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		c.jar = jar
	}
}

// WithLogger sets the logger for request and refresh events. Defaults to the global zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New builds a Client for cfg's base URL. The base URL, timeout and auth paths
// are fixed for the life of the client. store holds the access token; it is
// shared with whoever else needs to observe it.
func New(cfg config.ClientConfig, store *token.Store, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("[apiclient.New] config is required")
	}
	if store == nil {
		return nil, errors.New("[apiclient.New] token store is required")
	}

	base, err := url.Parse(cfg.GetAPIBaseURL())
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidBaseURL, "[apiclient.New] %q", cfg.GetAPIBaseURL())
	}

	c := &Client{
		baseURL:     base,
		httpClient:  &http.Client{},
		tokens:      store,
		loginPath:   cfg.GetLoginPath(),
		refreshPath: cfg.GetRefreshPath(),
		authPaths: map[string]struct{}{
			normalisePath(cfg.GetLoginPath()):    {},
			normalisePath(cfg.GetRegisterPath()): {},
			normalisePath(cfg.GetRefreshPath()):  {},
		},
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.jar != nil {
		c.httpClient.Jar = c.jar
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "[apiclient.New] cookiejar.New")
		}
		c.httpClient.Jar = jar
	}
	c.httpClient.Timeout = cfg.GetRequestTimeout()
	c.refresher = newRefresher(store, c.callRefresh, c.logger)

	return c, nil
}

// Request sends method to baseURL+path. path is server-relative and may carry
// a query string. body is JSON encoded unless it is nil, []byte or RawBody.
// Non-2xx responses are returned as *HTTPError.
func (c *Client) Request(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	out, err := c.newOutbound(method, path, body, opts)
	if err != nil {
		return nil, err
	}
	return c.dispatch(ctx, out, c.tokens.Get())
}

// Get sends a GET request to path.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, nil, opts...)
}

// Post sends body as a POST request to path.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, body, opts...)
}

// Patch sends body as a PATCH request to path.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPatch, path, body, opts...)
}

// Put sends body as a PUT request to path.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPut, path, body, opts...)
}

// Delete sends a DELETE request to path.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, opts...)
}

// SetAccessToken replaces the bearer token attached to requests.
func (c *Client) SetAccessToken(raw string) {
	c.tokens.Set(raw)
}

// ClearAccessToken drops the bearer token. A refresh still in flight will not restore it.
func (c *Client) ClearAccessToken() {
	c.tokens.Clear()
}

// AccessToken returns the raw bearer string currently attached to requests.
func (c *Client) AccessToken() string {
	return c.tokens.AccessToken()
}

// Subscribe registers fn for access-token changes (set, refresh, clear).
func (c *Client) Subscribe(fn token.Listener) (unsubscribe func()) {
	return c.tokens.Subscribe(fn)
}

// dispatch sends out with tok and runs the 401 interceptor on the response.
func (c *Client) dispatch(ctx context.Context, out *outbound, tok *oauth2.Token) (*Response, error) {
	resp, err := c.do(ctx, out, tok)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp.result()
	}
	return c.recoverUnauthorized(ctx, out, tok, resp)
}

func (c *Client) recoverUnauthorized(ctx context.Context, out *outbound, used *oauth2.Token, resp *Response) (*Response, error) {
	if out.retried || c.isAuthPath(out.path) {
		if out.retried {
			c.logger.Warn().Str("method", out.method).Str("path", out.path).Str("request_id", resp.RequestID).
				Msg("Request still unauthorized after token refresh")
		}
		return resp.result()
	}

	replay := out.retry()
	fresh, err := c.refresher.next(ctx, rawToken(used))
	if err != nil {
		return nil, err
	}
	return c.dispatch(ctx, replay, fresh)
}

func (c *Client) isAuthPath(path string) bool {
	_, ok := c.authPaths[normalisePath(path)]
	return ok
}

func rawToken(tok *oauth2.Token) string {
	if tok == nil {
		return ""
	}
	return tok.AccessToken
}

func normalisePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = "/" + strings.Trim(p, "/")
	return p
}
