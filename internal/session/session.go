// Package session binds a Last.fm session record to one browser.
//
// Records live in memory and are gone after a restart. The browser only
// holds a signed token naming its session id.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	cookieName = "scrobbleloop_session"
	issuer     = "scrobbleloop"

	// DefaultTTL is how long a browser session stays valid.
	DefaultTTL = 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("session: invalid token")
	ErrTokenExpired = errors.New("session: token expired")
)

// Record is the Last.fm login bound to one caller.
type Record struct {
	SessionKey string
	Username   string
}

// claims is the payload of the session cookie.
type claims struct {
	SessionID uuid.UUID `json:"sid"`
	jwt.RegisteredClaims
}

type entry struct {
	record    Record
	expiresAt time.Time
}

// Store manages caller sessions in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry

	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a store whose cookies are signed with secret.
func NewStore(secret string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[uuid.UUID]*entry),
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Load returns the record bound to the request's session, or nil when the
// caller has no valid session or has not logged in yet.
func (s *Store) Load(r *http.Request) *Record {
	id, err := s.sessionID(r)
	if err != nil {
		return nil
	}

	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil
	}

	rec := e.record
	return &rec
}

// Save binds rec to the caller's session, creating the session and its
// cookie when the request does not carry a valid one.
func (s *Store) Save(w http.ResponseWriter, r *http.Request, rec Record) error {
	id, err := s.sessionID(r)
	if err != nil {
		id = uuid.New()
	}

	expiresAt := s.now().Add(s.ttl)

	s.mu.Lock()
	s.sweepLocked()
	s.sessions[id] = &entry{record: rec, expiresAt: expiresAt}
	s.mu.Unlock()

	token, err := s.sign(id, expiresAt)
	if err != nil {
		return fmt.Errorf("session: failed to sign cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   RequestScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
	})

	return nil
}

// RequestScheme returns the scheme the browser used, honoring a reverse
// proxy's X-Forwarded-Proto.
func RequestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// sweepLocked drops expired sessions. Callers hold s.mu.
func (s *Store) sweepLocked() {
	now := s.now()
	for id, e := range s.sessions {
		if now.After(e.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) sessionID(r *http.Request) (uuid.UUID, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return uuid.Nil, err
	}
	c, err := s.parse(cookie.Value)
	if err != nil {
		return uuid.Nil, err
	}
	return c.SessionID, nil
}

func (s *Store) sign(id uuid.UUID, expiresAt time.Time) (string, error) {
	c := claims{
		SessionID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(s.now()),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(s.secret)
}

func (s *Store) parse(tokenString string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return c, nil
}
