package sessions_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/ems-console/apiclient"
	"github.com/jrsteele09/ems-console/apitest"
	"github.com/jrsteele09/ems-console/internal/config"
	apperrors "github.com/jrsteele09/ems-console/internal/errors"
	"github.com/jrsteele09/ems-console/sessions"
	"github.com/jrsteele09/ems-console/token"
	"github.com/jrsteele09/ems-console/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const mePath = "/user/me"

type fixture struct {
	srv       *apitest.Server
	client    *apiclient.Client
	indicator *sessions.MemoryIndicator
	manager   *sessions.Manager
}

func setup(t *testing.T, present bool) *fixture {
	t.Helper()
	srv, err := apitest.New(apitest.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(config.Static{BaseURL: srv.URL}, token.NewStore(), apiclient.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	indicator := sessions.NewMemoryIndicator(present)
	manager := sessions.New(client, indicator, sessions.WithLogger(zerolog.Nop()))
	t.Cleanup(manager.Close)
	return &fixture{srv: srv, client: client, indicator: indicator, manager: manager}
}

func TestBootstrapWithoutIndicator(t *testing.T) {
	f := setup(t, false)
	require.True(t, f.manager.Snapshot().AuthLoading)

	snap := f.manager.Bootstrap(context.Background())
	require.False(t, snap.AuthLoading)
	require.False(t, snap.IsAuthenticated)
	require.Nil(t, snap.User)
	require.Equal(t, sessions.StateAnonymous, f.manager.State())
	require.Zero(t, f.srv.Hits(http.MethodGet, mePath))
}

func TestBootstrapRestoresSession(t *testing.T) {
	f := setup(t, true)
	_, err := f.client.Login(context.Background(), apitest.AdminEmail, apitest.AdminPassword)
	require.NoError(t, err)

	snap := f.manager.Bootstrap(context.Background())
	require.True(t, snap.IsAuthenticated)
	require.False(t, snap.AuthLoading)
	require.Equal(t, apitest.AdminEmail, snap.User.Email)
	require.True(t, snap.User.IsSuperAdmin())
	require.Equal(t, 1, f.srv.Hits(http.MethodGet, mePath))
}

func TestBootstrapRestoresThroughRefreshCookie(t *testing.T) {
	f := setup(t, true)
	_, err := f.client.Login(context.Background(), apitest.AdminEmail, apitest.AdminPassword)
	require.NoError(t, err)
	f.srv.ExpireTokens()

	snap := f.manager.Bootstrap(context.Background())
	require.True(t, snap.IsAuthenticated)
	require.Equal(t, 1, f.srv.RefreshCalls())
}

func TestBootstrapFailsToAnonymous(t *testing.T) {
	t.Run("no refresh cookie", func(t *testing.T) {
		f := setup(t, true)
		snap := f.manager.Bootstrap(context.Background())
		require.False(t, snap.IsAuthenticated)
		require.False(t, snap.AuthLoading)
		require.False(t, f.indicator.Present())
		require.Equal(t, 1, f.srv.RefreshCalls())
	})

	t.Run("non-success status", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"fail","message":"User not found","data":{}}`))
		}))
		defer backend.Close()

		client, err := apiclient.New(config.Static{BaseURL: backend.URL}, token.NewStore(), apiclient.WithLogger(zerolog.Nop()))
		require.NoError(t, err)
		client.SetAccessToken("some-token")
		indicator := sessions.NewMemoryIndicator(true)
		manager := sessions.New(client, indicator, sessions.WithLogger(zerolog.Nop()))
		defer manager.Close()

		snap := manager.Bootstrap(context.Background())
		require.False(t, snap.IsAuthenticated)
		require.False(t, indicator.Present())
		require.Empty(t, client.AccessToken())
	})

	t.Run("server error", func(t *testing.T) {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer backend.Close()

		client, err := apiclient.New(config.Static{BaseURL: backend.URL}, token.NewStore(), apiclient.WithLogger(zerolog.Nop()))
		require.NoError(t, err)
		indicator := sessions.NewMemoryIndicator(true)
		manager := sessions.New(client, indicator, sessions.WithLogger(zerolog.Nop()))
		defer manager.Close()

		require.False(t, manager.Bootstrap(context.Background()).IsAuthenticated)
		require.False(t, indicator.Present())
	})
}

func TestBootstrapRunsOnce(t *testing.T) {
	f := setup(t, true)
	_, err := f.client.Login(context.Background(), apitest.AdminEmail, apitest.AdminPassword)
	require.NoError(t, err)

	var wg sync.WaitGroup
	snaps := make([]sessions.Snapshot, 5)
	for i := range snaps {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snaps[i] = f.manager.Bootstrap(context.Background())
		}(i)
	}
	wg.Wait()

	for _, snap := range snaps {
		require.True(t, snap.IsAuthenticated)
		require.False(t, snap.AuthLoading)
	}
	require.Equal(t, 1, f.srv.Hits(http.MethodGet, mePath))
}

func TestWait(t *testing.T) {
	f := setup(t, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, f.manager.Wait(ctx), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- f.manager.Wait(context.Background()) }()
	f.manager.Bootstrap(context.Background())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after bootstrap")
	}
	require.False(t, f.manager.Snapshot().AuthLoading)
}

func TestSetUserData(t *testing.T) {
	f := setup(t, false)
	profile := &users.Profile{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: users.RoleSuperAdmin}

	require.ErrorIs(t, f.manager.SetUserData(profile), apperrors.ErrAuthCheckPending)
	require.Equal(t, sessions.StateChecking, f.manager.State())

	f.manager.Bootstrap(context.Background())
	require.ErrorIs(t, f.manager.SetUserData(nil), apperrors.ErrInvalidRequest)

	require.NoError(t, f.manager.SetUserData(profile))
	snap := f.manager.Snapshot()
	require.True(t, snap.IsAuthenticated)
	require.Equal(t, "Ada", snap.User.DisplayName())
	require.True(t, f.indicator.Present())

	// The snapshot is a copy
	snap.User.Name = "Changed"
	require.Equal(t, "Ada", f.manager.Snapshot().User.Name)
}

func TestLogin(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()

	_, err := f.manager.Login(ctx, apitest.AdminEmail, apitest.AdminPassword)
	require.ErrorIs(t, err, apperrors.ErrAuthCheckPending)

	f.manager.Bootstrap(ctx)

	t.Run("wrong password stays anonymous", func(t *testing.T) {
		_, err := f.manager.Login(ctx, apitest.AdminEmail, "wrong")
		require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		require.Equal(t, sessions.StateAnonymous, f.manager.State())
		require.False(t, f.indicator.Present())
		require.Zero(t, f.srv.RefreshCalls())
	})

	t.Run("credentials then profile", func(t *testing.T) {
		profile, err := f.manager.Login(ctx, apitest.AdminEmail, apitest.AdminPassword)
		require.NoError(t, err)
		require.Equal(t, apitest.AdminEmail, profile.Email)
		require.Equal(t, sessions.StateAuthenticated, f.manager.State())
		require.True(t, f.indicator.Present())
		require.NotEmpty(t, f.client.AccessToken())
	})
}

func TestLogout(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()
	f.manager.Bootstrap(ctx)
	_, err := f.manager.Login(ctx, apitest.AdminEmail, apitest.AdminPassword)
	require.NoError(t, err)

	f.manager.Logout()
	snap := f.manager.Snapshot()
	require.False(t, snap.IsAuthenticated)
	require.Nil(t, snap.User)
	require.Empty(t, f.client.AccessToken())
	require.False(t, f.indicator.Present())
}

func TestLogoutDuringRefresh(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()
	f.manager.Bootstrap(ctx)
	_, err := f.manager.Login(ctx, apitest.AdminEmail, apitest.AdminPassword)
	require.NoError(t, err)

	f.srv.ExpireTokens()
	f.srv.SetRefreshDelay(300 * time.Millisecond)
	done := make(chan error, 1)
	go func() {
		_, err := f.client.Get(ctx, "/tm/event")
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	f.manager.Logout()

	require.ErrorIs(t, <-done, apperrors.ErrRefreshFailed)
	require.Equal(t, sessions.StateAnonymous, f.manager.State())
	require.Empty(t, f.client.AccessToken())
	require.False(t, f.indicator.Present())
}

func TestFailedRefreshEndsSession(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()
	f.manager.Bootstrap(ctx)
	_, err := f.manager.Login(ctx, apitest.AdminEmail, apitest.AdminPassword)
	require.NoError(t, err)

	f.srv.ExpireTokens()
	f.srv.FailRefresh(true)
	_, err = f.client.Get(ctx, "/tm/event")
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)

	require.Equal(t, sessions.StateAnonymous, f.manager.State())
	require.False(t, f.indicator.Present())
}

func TestRefreshKeepsSession(t *testing.T) {
	f := setup(t, false)
	ctx := context.Background()
	f.manager.Bootstrap(ctx)
	_, err := f.manager.Login(ctx, apitest.AdminEmail, apitest.AdminPassword)
	require.NoError(t, err)

	f.srv.ExpireTokens()
	_, err = f.client.Get(ctx, "/tm/event")
	require.NoError(t, err)
	require.Equal(t, sessions.StateAuthenticated, f.manager.State())
}
