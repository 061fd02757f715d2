package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	baseURLVar        = "API_BASE_URL"
	requestTimeoutVar = "REQUEST_TIMEOUT"
	loginPathVar      = "AUTH_LOGIN_PATH"
	registerPathVar   = "AUTH_REGISTER_PATH"
	refreshPathVar    = "AUTH_REFRESH_PATH"
	userMePathVar     = "USER_ME_PATH"

	defaultRequestTimeout = 15 * time.Second
)

type Client struct{}

var _ ClientConfig = Client{}

// GetAPIBaseURL returns the backend root without a trailing slash (e.g. "https://api.example.com")
func (Client) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, "http://localhost:5050"), "/")
}

func (Client) GetRequestTimeout() time.Duration {
	raw := GetEnv(requestTimeoutVar, "")
	if raw == "" {
		return defaultRequestTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn().Str("value", raw).Msg("Invalid REQUEST_TIMEOUT, using default")
		return defaultRequestTimeout
	}
	return d
}

func (Client) GetLoginPath() string {
	return GetEnv(loginPathVar, "/auth/login")
}

func (Client) GetRegisterPath() string {
	return GetEnv(registerPathVar, "/auth/register")
}

func (Client) GetRefreshPath() string {
	return GetEnv(refreshPathVar, "/auth/refresh")
}

func (Client) GetUserMePath() string {
	return GetEnv(userMePathVar, "/user/me")
}

// Static is a ClientConfig with fixed values, used by tests and the demo backend.
type Static struct {
	BaseURL      string
	Timeout      time.Duration
	LoginPath    string
	RegisterPath string
	RefreshPath  string
	UserMePath   string
}

var _ ClientConfig = Static{}

func (s Static) GetAPIBaseURL() string {
	return strings.TrimRight(s.BaseURL, "/")
}

func (s Static) GetRequestTimeout() time.Duration {
	if s.Timeout <= 0 {
		return defaultRequestTimeout
	}
	return s.Timeout
}

func (s Static) GetLoginPath() string {
	return orDefault(s.LoginPath, "/auth/login")
}

func (s Static) GetRegisterPath() string {
	return orDefault(s.RegisterPath, "/auth/register")
}

func (s Static) GetRefreshPath() string {
	return orDefault(s.RefreshPath, "/auth/refresh")
}

func (s Static) GetUserMePath() string {
	return orDefault(s.UserMePath, "/user/me")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
