package apiclient_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/ems-console/apiclient"
	"github.com/jrsteele09/ems-console/internal/config"
	apperrors "github.com/jrsteele09/ems-console/internal/errors"
	"github.com/jrsteele09/ems-console/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// recorded is one request seen by a scripted backend.
type recorded struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// scriptedBackend replies with the handler's status and body and records every request.
type scriptedBackend struct {
	*httptest.Server
	lock     sync.Mutex
	requests []recorded
}

func newScriptedBackend(t *testing.T, handler func(r *http.Request) (int, any)) *scriptedBackend {
	t.Helper()
	b := &scriptedBackend{}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.lock.Lock()
		b.requests = append(b.requests, recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Header: r.Header.Clone(), Body: body})
		b.lock.Unlock()

		status, payload := handler(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if payload != nil {
			_ = json.NewEncoder(w).Encode(payload)
		}
	}))
	t.Cleanup(b.Close)
	return b
}

func (b *scriptedBackend) Requests() []recorded {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]recorded(nil), b.requests...)
}

func (b *scriptedBackend) count(path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

func newClient(t *testing.T, baseURL string, timeout time.Duration) (*apiclient.Client, *token.Store) {
	t.Helper()
	store := token.NewStore()
	client, err := apiclient.New(config.Static{BaseURL: baseURL, Timeout: timeout}, store, apiclient.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return client, store
}

func TestNewValidatesBaseURL(t *testing.T) {
	for _, base := range []string{"", "localhost:5050", "/relative"} {
		_, err := apiclient.New(config.Static{BaseURL: base}, token.NewStore())
		require.ErrorIs(t, err, apperrors.ErrInvalidBaseURL, base)
	}
	_, err := apiclient.New(nil, token.NewStore())
	require.Error(t, err)
	_, err = apiclient.New(config.Static{BaseURL: "http://localhost"}, nil)
	require.Error(t, err)
}

func TestBearerAttachment(t *testing.T) {
	backend := newScriptedBackend(t, func(r *http.Request) (int, any) {
		return http.StatusOK, map[string]bool{"success": true}
	})
	client, _ := newClient(t, backend.URL, 0)
	ctx := context.Background()

	t.Run("no token means no header", func(t *testing.T) {
		_, err := client.Get(ctx, "/tm/event")
		require.NoError(t, err)
		reqs := backend.Requests()
		require.Empty(t, reqs[len(reqs)-1].Header.Get("Authorization"))
	})

	t.Run("stored token is attached as bearer", func(t *testing.T) {
		client.SetAccessToken("abc123")
		_, err := client.Get(ctx, "/tm/event")
		require.NoError(t, err)
		reqs := backend.Requests()
		require.Equal(t, "Bearer abc123", reqs[len(reqs)-1].Header.Get("Authorization"))
		require.NotEmpty(t, reqs[len(reqs)-1].Header.Get(apiclient.HeaderRequestID))
	})

	t.Run("caller headers are kept and not mutated", func(t *testing.T) {
		h := http.Header{"X-Trace": []string{"t-1"}}
		_, err := client.Get(ctx, "/tm/org", apiclient.WithHeaders(h), apiclient.WithHeader("X-Extra", "1"))
		require.NoError(t, err)
		reqs := backend.Requests()
		last := reqs[len(reqs)-1]
		require.Equal(t, "t-1", last.Header.Get("X-Trace"))
		require.Equal(t, "1", last.Header.Get("X-Extra"))
		require.Equal(t, "Bearer abc123", last.Header.Get("Authorization"))
		require.Equal(t, http.Header{"X-Trace": []string{"t-1"}}, h)
	})

	t.Run("cleared token stops attachment", func(t *testing.T) {
		client.ClearAccessToken()
		require.Empty(t, client.AccessToken())
		_, err := client.Get(ctx, "/tm/event")
		require.NoError(t, err)
		reqs := backend.Requests()
		require.Empty(t, reqs[len(reqs)-1].Header.Get("Authorization"))
	})
}

func TestRequestEncoding(t *testing.T) {
	backend := newScriptedBackend(t, func(r *http.Request) (int, any) {
		return http.StatusOK, nil
	})
	client, _ := newClient(t, backend.URL+"/api/", 0)
	ctx := context.Background()

	t.Run("json body and merged query", func(t *testing.T) {
		_, err := client.Request(ctx, http.MethodPatch, "/tm/event/flag/e1?page=2", map[string]string{"reason": "spam"},
			apiclient.WithQuery(url.Values{"limit": {"5"}}))
		require.NoError(t, err)
		reqs := backend.Requests()
		last := reqs[len(reqs)-1]
		require.Equal(t, http.MethodPatch, last.Method)
		require.Equal(t, "/api/tm/event/flag/e1", last.Path)
		require.Equal(t, "2", last.Query.Get("page"))
		require.Equal(t, "5", last.Query.Get("limit"))
		require.Equal(t, "application/json", last.Header.Get("Content-Type"))
		require.JSONEq(t, `{"reason":"spam"}`, string(last.Body))
	})

	t.Run("raw body keeps its content type", func(t *testing.T) {
		_, err := client.Post(ctx, "/upload", apiclient.RawBody{ContentType: "text/plain", Data: []byte("hello")})
		require.NoError(t, err)
		reqs := backend.Requests()
		last := reqs[len(reqs)-1]
		require.Equal(t, "text/plain", last.Header.Get("Content-Type"))
		require.Equal(t, "hello", string(last.Body))
	})

	t.Run("nil raw body sends nothing", func(t *testing.T) {
		_, err := client.Request(ctx, http.MethodPost, "/upload", (*apiclient.RawBody)(nil))
		require.NoError(t, err)
		reqs := backend.Requests()
		last := reqs[len(reqs)-1]
		require.Empty(t, last.Body)
		require.Empty(t, last.Header.Get("Content-Type"))
	})

	t.Run("absolute paths are refused", func(t *testing.T) {
		before := len(backend.Requests())
		_, err := client.Get(ctx, "https://evil.example.com/steal")
		require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
		require.Len(t, backend.Requests(), before)
	})

	t.Run("unencodable body fails before sending", func(t *testing.T) {
		_, err := client.Post(ctx, "/x", map[string]any{"fn": func() {}})
		require.Error(t, err)
	})
}

func TestNonUnauthorizedErrorsPassThrough(t *testing.T) {
	backend := newScriptedBackend(t, func(r *http.Request) (int, any) {
		switch r.URL.Path {
		case "/boom":
			return http.StatusInternalServerError, map[string]any{"success": false, "message": "database down"}
		case "/forbidden":
			return http.StatusForbidden, map[string]any{"success": false, "message": "Super admin access required"}
		case "/missing":
			return http.StatusNotFound, nil
		}
		return http.StatusOK, nil
	})
	client, _ := newClient(t, backend.URL, 0)
	client.SetAccessToken("abc")
	ctx := context.Background()

	t.Run("500 carries the server message", func(t *testing.T) {
		_, err := client.Get(ctx, "/boom")
		var httpErr *apiclient.HTTPError
		require.ErrorAs(t, err, &httpErr)
		require.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
		require.Equal(t, "database down", httpErr.Message)
		require.NotErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("403 is not recovered", func(t *testing.T) {
		_, err := client.Get(ctx, "/forbidden")
		var httpErr *apiclient.HTTPError
		require.ErrorAs(t, err, &httpErr)
		require.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	})

	t.Run("404 matches ErrNotFound", func(t *testing.T) {
		_, err := client.Get(ctx, "/missing")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	require.Zero(t, backend.count("/auth/refresh"))
	require.Equal(t, "abc", client.AccessToken())
}

func TestNetworkErrorPassesThrough(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	base := backend.URL
	backend.Close()

	client, _ := newClient(t, base, time.Second)
	client.SetAccessToken("abc")
	_, err := client.Get(context.Background(), "/tm/event")
	require.Error(t, err)

	var httpErr *apiclient.HTTPError
	require.False(t, apperrors.As(err, &httpErr))
	require.NotErrorIs(t, err, apperrors.ErrRefreshFailed)
	require.Equal(t, "abc", client.AccessToken())
}

func TestDecode(t *testing.T) {
	resp := &apiclient.Response{StatusCode: http.StatusOK, Body: []byte(`{"success":true}`)}
	var out struct {
		Success bool `json:"success"`
	}
	require.NoError(t, resp.Decode(&out))
	require.True(t, out.Success)

	require.ErrorIs(t, (&apiclient.Response{}).Decode(&out), apperrors.ErrInvalidResponse)
	require.ErrorIs(t, (&apiclient.Response{Body: []byte("<html>")}).Decode(&out), apperrors.ErrInvalidResponse)
}
