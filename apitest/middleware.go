package apitest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/ems-console/internal/ui"
	"github.com/jrsteele09/ems-console/users"
)

type contextKey string

const contextKeyUser contextKey = "user"

func userFromContext(ctx context.Context) *user {
	u, _ := ctx.Value(contextKeyUser).(*user)
	return u
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("request_id", r.Header.Get("X-Request-ID")).
			Dur("took", time.Since(start)).
			Msgf("[%s] %s %s", ui.Method(r.Method), ui.Status(ww.Status()), r.URL.Path)
	})
}

// requireAuth validates the bearer token: signature, expiry and generation.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			writeFailure(w, http.StatusUnauthorized, "Missing or malformed Authorization header")
			return
		}

		claims, err := s.signer.Verify(parts[1])
		if err != nil {
			writeFailure(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		if claims.Generation != s.generation.Load() {
			writeFailure(w, http.StatusUnauthorized, "Token has been revoked")
			return
		}
		u, err := s.users.GetByID(claims.Subject)
		if err != nil {
			writeFailure(w, http.StatusUnauthorized, "Unknown user")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyUser, u)))
	})
}

func (s *Server) requireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := userFromContext(r.Context())
		if u == nil || u.Role != users.RoleSuperAdmin {
			writeFailure(w, http.StatusForbidden, "Super admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
