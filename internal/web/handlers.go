package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jfmyers9/scrobbleloop/internal/ledger"
	"github.com/jfmyers9/scrobbleloop/internal/session"
	"github.com/jfmyers9/scrobbleloop/internal/spoof"
	"github.com/rs/zerolog"
)

// TotalsSource summarizes recorded submissions. *ledger.Ledger implements it.
type TotalsSource interface {
	Totals(ctx context.Context, username string) (ledger.Totals, error)
}

// Handlers contains the HTTP handlers.
type Handlers struct {
	auth     *spoof.Authenticator
	sessions *session.Store
	loop     *spoof.Loop
	totals   TotalsSource
	logger   zerolog.Logger
}

// NewHandlers creates a Handlers instance. totals may be nil.
func NewHandlers(auth *spoof.Authenticator, sessions *session.Store, loop *spoof.Loop, totals TotalsSource, logger zerolog.Logger) *Handlers {
	return &Handlers{
		auth:     auth,
		sessions: sessions,
		loop:     loop,
		totals:   totals,
		logger:   logger.With().Str("component", "handlers").Logger(),
	}
}

// Health reports liveness (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

// Auth redirects the browser to Last.fm for authorization (GET /auth).
func (h *Handlers) Auth(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.auth.RedirectURL(session.RequestScheme(r), r.Host), http.StatusFound)
}

// Callback finishes the handshake and binds the session (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeText(w, http.StatusBadRequest, "Missing token")
		return
	}

	rec, err := h.auth.Exchange(r.Context(), token)
	if err != nil {
		var authErr *spoof.AuthError
		if errors.As(err, &authErr) && authErr.Incomplete {
			writeText(w, http.StatusBadRequest, "Failed to get session key")
			return
		}
		writeText(w, http.StatusInternalServerError, "Failed to get session key")
		return
	}

	if err := h.sessions.Save(w, r, rec); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save session")
		writeText(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	writeText(w, http.StatusOK, "Authenticated as "+rec.Username)
}

// Start arms the spoof loop for the authenticated user (GET /spoof/start).
func (h *Handlers) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.loop.Start(h.sessions.Load(r)); err != nil {
		if errors.Is(err, spoof.ErrUnauthorized) {
			writeText(w, http.StatusUnauthorized, "You are not authenticated. Please authenticate first at /auth")
			return
		}
		h.logger.Error().Err(err).Msg("Failed to start loop")
		writeText(w, http.StatusInternalServerError, "Failed to start spoofing")
		return
	}

	writeText(w, http.StatusOK, fmt.Sprintf("Started spoofing plays for user %s %s times per second.", h.loop.Username(), h.loop.Rate()))
}

// Stop disarms the spoof loop (GET /spoof/stop).
func (h *Handlers) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.loop.Stop(); err != nil {
		writeText(w, http.StatusNotFound, fmt.Sprintf("No active spoofing found for user %s.", h.loop.Username()))
		return
	}

	writeText(w, http.StatusOK, fmt.Sprintf("Stopped spoofing plays for user %s.", h.loop.Username()))
}

// statusResponse is the body of GET /spoof/status.
type statusResponse struct {
	spoof.Status
	Recorded *ledger.Totals `json:"recorded,omitempty"`
}

// Status reports loop state and recorded totals (GET /spoof/status).
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: h.loop.Status()}

	if h.totals != nil {
		totals, err := h.totals.Totals(r.Context(), h.loop.Username())
		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to read ledger totals")
		} else {
			resp.Recorded = &totals
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write status")
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
