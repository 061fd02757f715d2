package apiclient

import (
	"context"

	apperrors "github.com/jrsteele09/ems-console/internal/errors"
	"github.com/jrsteele09/ems-console/token"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

type refreshFunc func(ctx context.Context) (string, error)

// flightKey is shared by every refresh: at most one refresh call is outstanding.
const flightKey = "refresh"

// refresher coordinates token refreshes. Every request rejected while a refresh
// is in flight joins it; the group forgets a flight once it has settled, so a
// later failure starts a fresh one.
type refresher struct {
	group   singleflight.Group
	tokens  *token.Store
	refresh refreshFunc
	logger  zerolog.Logger
}

func newRefresher(tokens *token.Store, refresh refreshFunc, logger zerolog.Logger) *refresher {
	return &refresher{
		tokens:  tokens,
		refresh: refresh,
		logger:  logger,
	}
}

// next returns the token to replay with after stale was rejected.
// If the store already holds a different token, a refresh settled after the
// rejected request was sent and that token is returned without a new call.
func (r *refresher) next(ctx context.Context, stale string) (*oauth2.Token, error) {
	// The flight must outlive any single waiter; the client timeout still bounds it.
	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(flightKey, func() (interface{}, error) {
		cur, generation := r.tokens.Current()
		if cur != nil && cur.AccessToken != stale {
			return cur, nil
		}
		return r.run(flightCtx, stale, generation)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run calls the refresh endpoint. Its outcome is only applied if the store is
// still at generation; when a logout or login happened during the call, the
// waiters get whatever token the store now holds.
func (r *refresher) run(ctx context.Context, stale string, generation uint64) (*oauth2.Token, error) {
	r.logger.Info().Msg("Access token rejected, refreshing")
	raw, err := r.refresh(ctx)
	if err == nil && raw == "" {
		err = apperrors.ErrMissingToken
	}

	if err == nil {
		if tok, ok := r.tokens.SetIf(raw, generation); ok {
			r.logger.Info().Time("expiry", tok.Expiry).Msg("Access token refreshed")
			return tok, nil
		}
	} else if r.tokens.ClearIf(generation) {
		r.logger.Warn().Err(err).Msg("Token refresh failed, access token cleared")
		return nil, &RefreshError{Err: err}
	}

	r.logger.Info().Msg("Session changed during refresh, refresh outcome discarded")
	if cur := r.tokens.Get(); cur != nil && cur.AccessToken != stale {
		return cur, nil
	}
	if err == nil {
		err = apperrors.ErrNotAuthenticated
	}
	return nil, &RefreshError{Err: err}
}
