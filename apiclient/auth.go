package apiclient

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/ems-console/internal/errors"
	"github.com/pkg/errors"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenEnvelope matches {data: {token}} returned by login and refresh.
type tokenEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Token string `json:"token"`
	} `json:"data"`
}

// Login exchanges credentials for an access token and stores it. The server is
// expected to set the refresh cookie on the same response. A 401 from the login
// endpoint is returned as-is; it never triggers a refresh.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	if err := validateCredentials(email, password); err != nil {
		return "", apperrors.Wrapf(apperrors.ErrInvalidCredentials, "[Client.Login] %s", err.Error())
	}
	resp, err := c.Post(ctx, c.loginPath, Credentials{Email: email, Password: password})
	if err != nil {
		return "", errors.Wrap(err, "[Client.Login] login request")
	}
	raw, err := decodeToken(resp)
	if err != nil {
		return "", errors.Wrap(err, "[Client.Login] decodeToken")
	}
	c.tokens.Set(raw)
	c.logger.Info().Str("email", email).Msg("Logged in")
	return raw, nil
}

// Refresh forces a token refresh through the same coordinator the 401
// interceptor uses, so it joins a refresh that is already in flight.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	tok, err := c.refresher.next(ctx, c.tokens.AccessToken())
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// callRefresh hits the refresh endpoint on the raw transport: no bearer
// header and no interceptor, only the cookie jar.
func (c *Client) callRefresh(ctx context.Context) (string, error) {
	out, err := c.newOutbound(http.MethodPost, c.refreshPath, struct{}{}, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, out, nil)
	if err != nil {
		return "", err
	}
	if resp, err = resp.result(); err != nil {
		return "", err
	}
	return decodeToken(resp)
}

func decodeToken(resp *Response) (string, error) {
	var env tokenEnvelope
	if err := resp.Decode(&env); err != nil {
		return "", err
	}
	if env.Data.Token == "" {
		return "", apperrors.ErrMissingToken
	}
	return env.Data.Token, nil
}

// validateCredentials catches input the backend would reject anyway.
func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return errors.New("invalid email format")
	}
	if password == "" {
		return errors.New("password is required")
	}
	return nil
}
