package apitest

import (
	"net/http"
	"time"

	"github.com/jrsteele09/ems-console/users"
)

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decodeBody(r, &in) || in.Email == "" || in.Password == "" {
		writeFailure(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	u, err := s.users.Authenticate(in.Email, in.Password)
	if err != nil {
		writeFailure(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.issue(w, u, http.StatusOK, "Login successful")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decodeBody(r, &in) || in.Email == "" || in.Password == "" {
		writeFailure(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	if _, err := s.users.GetByEmail(in.Email); err == nil {
		writeFailure(w, http.StatusConflict, "Email already registered")
		return
	}
	u, err := s.users.Add(in.Name, in.Email, in.Password, users.RoleUser)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to register")
		return
	}
	s.issue(w, u, http.StatusCreated, "Registered")
}

// handleRefresh exchanges the refresh cookie for a new access token and rotates the cookie.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)
	if d := time.Duration(s.refreshDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	if s.failRefresh.Load() {
		writeFailure(w, http.StatusUnauthorized, "Refresh token expired")
		return
	}

	cookie, err := r.Cookie(RefreshCookie)
	if err != nil || cookie.Value == "" {
		writeFailure(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}
	sess, err := s.sessions.Lookup(cookie.Value)
	if err != nil {
		writeFailure(w, http.StatusUnauthorized, "Refresh token invalid")
		return
	}
	u, err := s.users.GetByID(sess.UserID)
	if err != nil {
		writeFailure(w, http.StatusUnauthorized, "Unknown user")
		return
	}
	s.issue(w, u, http.StatusOK, "Token refreshed")
}

func (s *Server) issue(w http.ResponseWriter, u *user, status int, message string) {
	access, err := s.signer.Sign(u, s.generation.Load())
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	refresh, err := s.sessions.Create(u.ID)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookie,
		Value:    refresh,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.refreshTTL.Seconds()),
	})
	writeJSON(w, status, map[string]any{
		"success": true,
		"message": message,
		"data":    map[string]string{"token": access},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := userFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "User fetched",
		"data":    map[string]any{"user": u.Profile},
	})
}
