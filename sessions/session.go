package sessions

import (
	"context"
	"sync"

	"github.com/jrsteele09/ems-console/apiclient"
	apperrors "github.com/jrsteele09/ems-console/internal/errors"
	"github.com/jrsteele09/ems-console/token"
	"github.com/jrsteele09/ems-console/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// State is the session's position in checking -> {anonymous, authenticated}.
type State int

const (
	StateChecking State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// Snapshot is the view-facing projection of the session.
type Snapshot struct {
	IsAuthenticated bool
	User            *users.Profile
	AuthLoading     bool
}

// API is the part of the API client the session manager needs.
type API interface {
	Get(ctx context.Context, path string, opts ...apiclient.RequestOption) (*apiclient.Response, error)
	Login(ctx context.Context, email, password string) (string, error)
	ClearAccessToken()
	Subscribe(fn token.Listener) (unsubscribe func())
}

var _ API = (*apiclient.Client)(nil)

// Manager owns the session state. The backend's user record is authoritative;
// the manager only reconstructs it once per process and follows login/logout.
type Manager struct {
	api        API
	indicator  Indicator
	userMePath string
	logger     zerolog.Logger

	lock  sync.RWMutex
	state State
	user  *users.Profile

	once        sync.Once
	ready       chan struct{}
	unsubscribe func()
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithUserMePath overrides the identity endpoint, "/user/me" by default.
func WithUserMePath(path string) Option {
	return func(m *Manager) {
		m.userMePath = path
	}
}

// WithLogger sets the session logger. Defaults to the global zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// New creates a Manager in the checking state and subscribes it to token
// changes. A nil indicator means no session is remembered between runs.
// Call Bootstrap to run the auth check and Close when done.
func New(api API, indicator Indicator, opts ...Option) *Manager {
	if indicator == nil {
		indicator = NewMemoryIndicator(false)
	}
	m := &Manager{
		api:        api,
		indicator:  indicator,
		userMePath: "/user/me",
		logger:     log.Logger,
		state:      StateChecking,
		ready:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.unsubscribe = api.Subscribe(m.onTokenChange)
	return m
}

// Close detaches the manager from the token store.
func (m *Manager) Close() {
	m.unsubscribe()
}

// Bootstrap runs the auth check exactly once. Later and concurrent calls wait
// for that check and return its result.
func (m *Manager) Bootstrap(ctx context.Context) Snapshot {
	m.once.Do(func() {
		m.check(ctx)
	})
	return m.Snapshot()
}

// Wait blocks until the auth check has completed.
func (m *Manager) Wait(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) State() State {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.state
}

func (m *Manager) Snapshot() Snapshot {
	m.lock.RLock()
	defer m.lock.RUnlock()
	snap := Snapshot{
		IsAuthenticated: m.state == StateAuthenticated,
		AuthLoading:     m.state == StateChecking,
	}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

// SetUserData marks the session authenticated with profile. It is used once a
// login flow has fetched the profile; it is refused while the bootstrap check runs.
func (m *Manager) SetUserData(profile *users.Profile) error {
	if profile == nil {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "[Manager.SetUserData] profile is required")
	}
	u := *profile

	m.lock.Lock()
	if m.state == StateChecking {
		m.lock.Unlock()
		return apperrors.ErrAuthCheckPending
	}
	m.state = StateAuthenticated
	m.user = &u
	m.lock.Unlock()

	if err := m.indicator.Mark(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to store session indicator")
	}
	return nil
}

// Login performs the console's login flow: credentials, then the profile
// fetch, then SetUserData. A successful credential check alone does not
// authenticate the session.
func (m *Manager) Login(ctx context.Context, email, password string) (*users.Profile, error) {
	if m.State() == StateChecking {
		return nil, apperrors.ErrAuthCheckPending
	}
	if _, err := m.api.Login(ctx, email, password); err != nil {
		return nil, err
	}
	profile, err := m.fetchProfile(ctx)
	if err != nil {
		m.api.ClearAccessToken()
		return nil, errors.Wrap(err, "[Manager.Login] fetchProfile")
	}
	if err := m.SetUserData(profile); err != nil {
		return nil, err
	}
	m.logger.Info().Str("user", profile.DisplayName()).Msg("Session authenticated")
	return profile, nil
}

// Logout is local only: the token and indicator are cleared and the session
// becomes anonymous. The server's refresh cookie is not revoked here.
func (m *Manager) Logout() {
	m.api.ClearAccessToken()
	m.clearIndicator()

	m.lock.Lock()
	if m.state != StateChecking {
		m.state = StateAnonymous
	}
	m.user = nil
	m.lock.Unlock()
}

func (m *Manager) check(ctx context.Context) {
	if !m.indicator.Present() {
		m.settle(StateAnonymous, nil)
		return
	}

	profile, err := m.fetchProfile(ctx)
	if err != nil {
		m.logger.Info().Err(err).Msg("Auth check failed")
		m.api.ClearAccessToken()
		m.clearIndicator()
		m.settle(StateAnonymous, nil)
		return
	}
	m.settle(StateAuthenticated, profile)
}

func (m *Manager) settle(state State, profile *users.Profile) {
	m.lock.Lock()
	m.state = state
	m.user = profile
	m.lock.Unlock()
	close(m.ready)
}

func (m *Manager) fetchProfile(ctx context.Context) (*users.Profile, error) {
	resp, err := m.api.Get(ctx, m.userMePath)
	if err != nil {
		return nil, err
	}
	var env struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			User *users.Profile `json:"user"`
		} `json:"data"`
	}
	if err := resp.Decode(&env); err != nil {
		return nil, err
	}
	if env.Status != "success" || env.Data.User == nil {
		return nil, apperrors.Wrapf(apperrors.ErrNotAuthenticated, "status %q %s", env.Status, env.Message)
	}
	return env.Data.User, nil
}

// onTokenChange moves an authenticated session to anonymous when the token
// store is cleared behind its back, e.g. by a failed refresh.
func (m *Manager) onTokenChange(tok *oauth2.Token) {
	if tok != nil {
		return
	}
	m.lock.Lock()
	if m.state != StateAuthenticated {
		m.lock.Unlock()
		return
	}
	m.state = StateAnonymous
	m.user = nil
	m.lock.Unlock()

	m.clearIndicator()
	m.logger.Info().Msg("Access token cleared, session is now anonymous")
}

func (m *Manager) clearIndicator() {
	if err := m.indicator.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to clear session indicator")
	}
}
