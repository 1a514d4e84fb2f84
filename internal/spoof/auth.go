package spoof

import (
	"context"
	"errors"
	"fmt"

	"github.com/jfmyers9/scrobbleloop/internal/session"
	"github.com/jfmyers9/scrobbleloop/pkg/lastfm"
	"github.com/rs/zerolog"
)

// SessionExchanger is the part of the Last.fm auth API the authenticator
// needs. *lastfm.AuthService implements it.
type SessionExchanger interface {
	GetAuthURL(callbackURL string) string
	GetSession(ctx context.Context, token string) (*lastfm.Session, error)
}

// AuthError is returned by Exchange when no session could be established.
type AuthError struct {
	// Incomplete is true when Last.fm answered but the answer did not
	// carry a usable session: the token was rejected or key/name were
	// missing. It is false when the exchange itself failed.
	Incomplete bool
	Err        error
}

func (e *AuthError) Error() string {
	if e.Incomplete {
		return fmt.Sprintf("authentication rejected: %v", e.Err)
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Authenticator runs the Last.fm web authentication handshake.
type Authenticator struct {
	auth   SessionExchanger
	logger zerolog.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(auth SessionExchanger, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		auth:   auth,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// RedirectURL returns the Last.fm authorization URL that sends the browser
// back to scheme://host/callback.
func (a *Authenticator) RedirectURL(scheme, host string) string {
	return a.auth.GetAuthURL(scheme + "://" + host + "/callback")
}

// Exchange trades a callback token for a session record. It makes exactly
// one attempt.
func (a *Authenticator) Exchange(ctx context.Context, token string) (session.Record, error) {
	s, err := a.auth.GetSession(ctx, token)
	if err != nil {
		var apiErr *lastfm.Error
		incomplete := errors.Is(err, lastfm.ErrIncompleteSession) || errors.As(err, &apiErr)

		a.logger.Warn().
			Err(err).
			Bool("incomplete", incomplete).
			Msg("Session exchange failed")

		return session.Record{}, &AuthError{Incomplete: incomplete, Err: err}
	}

	a.logger.Info().Str("user", s.Username).Msg("Authenticated")

	return session.Record{SessionKey: s.Key, Username: s.Username}, nil
}
