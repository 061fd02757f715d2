package apitest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

const refreshTokenLength = 32

// refreshSession is the server-side record behind a refresh cookie.
type refreshSession struct {
	Token  string
	UserID string
	Iat    time.Time
}

// refreshSessions issues refresh cookies. Each user holds at most one; issuing
// a new one revokes the previous.
type refreshSessions struct {
	tokens  map[string]*refreshSession
	userIDs map[string]string
	ttl     time.Duration
	lock    sync.Mutex
}

func newRefreshSessions(ttl time.Duration) *refreshSessions {
	return &refreshSessions{
		tokens:  make(map[string]*refreshSession),
		userIDs: make(map[string]string),
		ttl:     ttl,
	}
}

func (rs *refreshSessions) Create(userID string) (string, error) {
	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	tokenStr := hex.EncodeToString(tokenBytes)

	rs.lock.Lock()
	defer rs.lock.Unlock()
	if existing, ok := rs.userIDs[userID]; ok {
		delete(rs.tokens, existing)
	}
	rs.tokens[tokenStr] = &refreshSession{Token: tokenStr, UserID: userID, Iat: NowTimeFunc()}
	rs.userIDs[userID] = tokenStr
	return tokenStr, nil
}

// Lookup returns the session for token unless it is unknown or expired.
func (rs *refreshSessions) Lookup(token string) (*refreshSession, error) {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	sess, ok := rs.tokens[token]
	if !ok {
		return nil, errNotFound
	}
	if NowTimeFunc().Sub(sess.Iat) > rs.ttl {
		delete(rs.tokens, token)
		delete(rs.userIDs, sess.UserID)
		return nil, fmt.Errorf("refresh token expired")
	}
	return sess, nil
}

// RevokeAll drops every refresh session.
func (rs *refreshSessions) RevokeAll() {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	rs.tokens = make(map[string]*refreshSession)
	rs.userIDs = make(map[string]string)
}
