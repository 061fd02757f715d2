// Package apitest runs an in-process stand-in for the EMS backend. It issues
// real bearer tokens and refresh cookies so the console's access layer can be
// exercised end to end, and exposes knobs to force token expiry and refresh
// failures.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/ems-console/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Seeded accounts
const (
	AdminEmail    = "admin@ems.local"
	AdminPassword = "admin123"
	UserEmail     = "user@ems.local"
	UserPassword  = "user123"

	RefreshCookie = "refreshToken"
)

type Option func(*Server)

// WithAccessTTL sets the lifetime of minted access tokens.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) { s.accessTTL = ttl }
}

// WithRefreshTTL sets the lifetime of refresh cookies.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Server) { s.refreshTTL = ttl }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

type Server struct {
	URL string

	srv        *httptest.Server
	router     chi.Router
	api        chi.Router
	logger     zerolog.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration

	signer   *signer
	users    *userStore
	sessions *refreshSessions
	catalog  *catalog

	generation   atomic.Int64
	failRefresh  atomic.Bool
	refreshDelay atomic.Int64
	refreshCalls atomic.Int32

	hitsLock sync.Mutex
	hits     map[string]int
}

// New starts a backend seeded with an admin, a regular user and a small catalog
// of organizations and events. Close it when done.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		logger:     log.Logger,
		accessTTL:  15 * time.Minute,
		refreshTTL: 24 * time.Hour,
		users:      newUserStore(),
		catalog:    newCatalog(),
		hits:       make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.signer, err = newSigner(s.accessTTL); err != nil {
		return nil, err
	}
	s.sessions = newRefreshSessions(s.refreshTTL)
	if _, err := s.users.Add("EMS Admin", AdminEmail, AdminPassword, users.RoleSuperAdmin); err != nil {
		return nil, err
	}
	if _, err := s.users.Add("Regular User", UserEmail, UserPassword, users.RoleUser); err != nil {
		return nil, err
	}

	s.initRoutes()
	s.srv = httptest.NewServer(s.router)
	s.URL = s.srv.URL
	return s, nil
}

func (s *Server) Close() {
	s.srv.Close()
}

func (s *Server) initRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.countHits)
	r.Use(s.logRequests)

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/refresh", s.handleRefresh)

	s.api = r.With(s.requireAuth)
	s.api.Get("/user/me", s.handleMe)

	admin := r.With(s.requireAuth, s.requireSuperAdmin)
	s.initDomainRoutes(admin)

	s.router = r
}

// Route registers an extra bearer-protected handler, for scripting responses in tests.
func (s *Server) Route(method, pattern string, h http.HandlerFunc) {
	s.api.Method(method, pattern, h)
}

// ExpireTokens revokes every access token issued so far. Refresh cookies stay valid.
func (s *Server) ExpireTokens() {
	s.generation.Add(1)
}

// RevokeSessions drops every refresh cookie, so the next refresh fails with 401.
func (s *Server) RevokeSessions() {
	s.sessions.RevokeAll()
}

// FailRefresh makes the refresh endpoint answer 401 while set.
func (s *Server) FailRefresh(fail bool) {
	s.failRefresh.Store(fail)
}

// SetRefreshDelay holds every refresh response for d.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.refreshDelay.Store(int64(d))
}

// RefreshCalls is the number of requests the refresh endpoint has received.
func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

// Hits is the number of requests received for method and path.
func (s *Server) Hits(method, path string) int {
	s.hitsLock.Lock()
	defer s.hitsLock.Unlock()
	return s.hits[method+" "+path]
}

// AddUser registers an account that can log in.
func (s *Server) AddUser(name, email, password string, role users.RoleType) (*users.Profile, error) {
	u, err := s.users.Add(name, email, password, role)
	if err != nil {
		return nil, err
	}
	p := u.Profile
	return &p, nil
}

// IssueToken mints a valid access token for an existing account without a login round trip.
func (s *Server) IssueToken(email string) (string, error) {
	u, err := s.users.GetByEmail(email)
	if err != nil {
		return "", err
	}
	return s.signer.Sign(u, s.generation.Load())
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hitsLock.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		s.hitsLock.Unlock()
		next.ServeHTTP(w, r)
	})
}

// EventID returns the id of the seeded event with the given title.
func (s *Server) EventID(title string) string {
	s.catalog.lock.RLock()
	defer s.catalog.lock.RUnlock()
	for id, e := range s.catalog.events {
		if e.Title == title {
			return id
		}
	}
	return ""
}

// OrgID returns the id of the seeded organization with the given name.
func (s *Server) OrgID(name string) string {
	s.catalog.lock.RLock()
	defer s.catalog.lock.RUnlock()
	for id, o := range s.catalog.orgs {
		if o.Name == name {
			return id
		}
	}
	return ""
}

// Uploads is the number of files received by the upload endpoint.
func (s *Server) Uploads() int {
	s.catalog.lock.RLock()
	defer s.catalog.lock.RUnlock()
	return len(s.catalog.uploads)
}
