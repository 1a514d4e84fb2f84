package lastfm

import (
	"errors"
	"fmt"
)

// Error represents a Last.fm API error.
//
// Last.fm reports application-level failures in the response body as
// {"error": <code>, "message": "..."}. The Error type carries that code and
// message back to the caller.
type Error struct {
	Code    int    // Last.fm error code
	Message string // Error message from Last.fm
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("lastfm: error %d: %s", e.Code, e.Message)
}

// Is checks if the target error is a Last.fm error with the same code.
//
// This allows errors.Is() to work with *Error types.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Temporary returns true if Last.fm reported the service as temporarily
// unavailable. The client never retries on its own; callers decide.
//
// The following Last.fm error codes are considered temporary:
//   - 11: Service Offline
//   - 16: Service Temporarily Unavailable
func (e *Error) Temporary() bool {
	switch e.Code {
	case ErrCodeServiceOffline, ErrCodeTempUnavailable:
		return true
	default:
		return false
	}
}

// Common Last.fm error codes.
const (
	ErrCodeInvalidService       = 2
	ErrCodeInvalidMethod        = 3
	ErrCodeAuthenticationFailed = 4
	ErrCodeInvalidFormat        = 5
	ErrCodeInvalidParameters    = 6
	ErrCodeInvalidResourceSpec  = 7
	ErrCodeOperationFailed      = 8
	ErrCodeInvalidSessionKey    = 9
	ErrCodeInvalidAPIKey        = 10
	ErrCodeServiceOffline       = 11
	ErrCodeSubscribersOnly      = 12
	ErrCodeInvalidSignature     = 13
	ErrCodeUnauthorizedToken    = 14
	ErrCodeExpiredToken         = 15
	ErrCodeTempUnavailable      = 16
	ErrCodeRateLimitExceeded    = 29
)

// TransportError is returned when a call never produced a usable HTTP
// exchange: the request could not be sent, the body could not be read, or
// the server answered with a non-2xx status and no Last.fm error body.
type TransportError struct {
	Method string // Last.fm API method, e.g. "track.scrobble"
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("lastfm: %s: transport failure: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Predefined errors for common cases.
var (
	// ErrNoSessionKey is returned when an operation requires authentication
	// but no session key was supplied.
	ErrNoSessionKey = errors.New("lastfm: session key required")

	// ErrInvalidConfig is returned when client configuration is invalid.
	ErrInvalidConfig = errors.New("lastfm: invalid configuration")

	// ErrIncompleteSession is returned by GetSession when the response does
	// not carry both a session key and a username.
	ErrIncompleteSession = errors.New("lastfm: session response missing key or name")

	// ErrMalformedTrack is returned by RecentTracks when an entry lacks the
	// artist or the track name.
	ErrMalformedTrack = errors.New("lastfm: malformed track entry")
)

// IsTransport reports whether err is (or wraps) a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
