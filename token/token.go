package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/ems-console/internal/errors"
	"golang.org/x/oauth2"
)

const BearerType = "Bearer"

var ErrNoToken = errors.New("no access token set")

// Claims is the subset of access-token claims the console displays.
// The token is inspected, not verified: verification is the backend's job.
type Claims struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// New wraps a raw bearer string. When the string is a JWT its exp claim
// becomes the token expiry; opaque tokens get a zero expiry.
func New(raw string) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken: raw,
		TokenType:   BearerType,
	}
	if claims, err := Inspect(raw); err == nil {
		tok.Expiry = claims.ExpiresAt
	}
	return tok
}

// Inspect decodes the claims of a JWT access token without checking its signature.
func Inspect(raw string) (*Claims, error) {
	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, mapClaims); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrTokenNotJWT, "%s", err.Error())
	}

	claims := &Claims{}
	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = role
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}
