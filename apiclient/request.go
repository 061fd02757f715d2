package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/ems-console/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	HeaderRequestID = "X-Request-ID"
	contentTypeJSON = "application/json"
)

// RawBody is sent as-is with the given content type (e.g. a multipart form).
type RawBody struct {
	ContentType string
	Data        []byte
}

type RequestOption func(*requestOptions)

type requestOptions struct {
	header http.Header
	query  url.Values
}

// WithHeader adds a header to a single request.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.header.Add(key, value)
	}
}

// WithHeaders copies every value of h into the request headers.
func WithHeaders(h http.Header) RequestOption {
	return func(o *requestOptions) {
		for k, vs := range h {
			for _, v := range vs {
				o.header.Add(k, v)
			}
		}
	}
}

// WithQuery appends q to the query string of the request path.
func WithQuery(q url.Values) RequestOption {
	return func(o *requestOptions) {
		for k, vs := range q {
			o.query[k] = append(o.query[k], vs...)
		}
	}
}

// outbound is one pending call. The body is encoded once so a replay can resend it.
// Envelopes are never mutated after construction; retry returns a marked copy.
type outbound struct {
	method  string
	path    string
	query   url.Values
	header  http.Header
	body    []byte
	retried bool
}

func (o *outbound) retry() *outbound {
	cp := *o
	cp.header = o.header.Clone()
	cp.query = cloneValues(o.query)
	cp.retried = true
	return &cp
}

func (c *Client) newOutbound(method, path string, body any, opts []RequestOption) (*outbound, error) {
	ref, err := url.Parse(path)
	if err != nil || ref.IsAbs() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRequest, "path %q must be server-relative", path)
	}

	ro := requestOptions{header: make(http.Header), query: make(url.Values)}
	for _, opt := range opts {
		opt(&ro)
	}

	query := ref.Query()
	for k, vs := range ro.query {
		query[k] = append(query[k], vs...)
	}

	out := &outbound{
		method: strings.ToUpper(method),
		path:   ref.Path,
		query:  query,
		header: ro.header,
	}

	switch b := body.(type) {
	case nil:
	case RawBody:
		out.body = b.Data
		out.header.Set("Content-Type", b.ContentType)
	case *RawBody:
		if b != nil {
			out.body = b.Data
			out.header.Set("Content-Type", b.ContentType)
		}
	case []byte:
		out.body = b
		if out.header.Get("Content-Type") == "" {
			out.header.Set("Content-Type", "application/octet-stream")
		}
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, errors.Wrap(err, "[apiclient] encode request body")
		}
		out.body = data
		out.header.Set("Content-Type", contentTypeJSON)
	}
	if out.header.Get("Accept") == "" {
		out.header.Set("Accept", contentTypeJSON)
	}
	return out, nil
}

func (c *Client) resolve(out *outbound) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(out.path, "/")
	u.RawPath = ""
	u.RawQuery = out.query.Encode()
	u.Fragment = ""
	return &u
}

// do performs one round trip on the underlying transport. It applies no
// interceptor: callers decide what a 401 means.
func (c *Client) do(ctx context.Context, out *outbound, tok *oauth2.Token) (*Response, error) {
	var body io.Reader
	if len(out.body) > 0 {
		body = bytes.NewReader(out.body)
	}
	req, err := http.NewRequestWithContext(ctx, out.method, c.resolve(out).String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "[apiclient] build request")
	}
	req.Header = out.header.Clone()
	if tok != nil && tok.AccessToken != "" {
		tok.SetAuthHeader(req)
	}
	requestID := uuid.NewString()
	req.Header.Set(HeaderRequestID, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", out.method).Str("path", out.path).Str("request_id", requestID).
			Msg("Request failed")
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("method", out.method).
		Str("path", out.path).
		Int("status", resp.StatusCode).
		Bool("retried", out.retried).
		Dur("took", time.Since(start)).
		Str("request_id", requestID).
		Msg("Request")

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		RequestID:  requestID,
	}, nil
}

func cloneValues(v url.Values) url.Values {
	cp := make(url.Values, len(v))
	for k, vs := range v {
		cp[k] = append([]string(nil), vs...)
	}
	return cp
}
