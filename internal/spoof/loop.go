// Package spoof drives the repeated scrobbling of a user's current track.
package spoof

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfmyers9/scrobbleloop/internal/ledger"
	"github.com/jfmyers9/scrobbleloop/internal/session"
	"github.com/rs/zerolog"
)

var (
	// ErrUnauthorized is returned by Start when the caller has no session
	// or is logged in as someone other than the configured user.
	ErrUnauthorized = errors.New("spoof: not authenticated")

	// ErrNotFound is returned by Stop when no loop is armed.
	ErrNotFound = errors.New("spoof: no loop running")
)

// Recorder stores completed submissions. *ledger.Ledger implements it.
type Recorder interface {
	Record(ctx context.Context, e ledger.Entry) (int64, error)
}

// Config holds loop configuration.
type Config struct {
	Username    string        // only this Last.fm user may start the loop
	Interval    time.Duration // time between ticks
	TickTimeout time.Duration // upper bound for one poll+submit round-trip
}

// Status describes the loop of the configured user.
type Status struct {
	Username  string    `json:"username"`
	Armed     bool      `json:"armed"`
	Since     time.Time `json:"since,omitempty"`
	Ticks     int64     `json:"ticks"`
	Scrobbles int64     `json:"scrobbles"`
}

// Loop arms and disarms the spoofing task.
type Loop struct {
	config    Config
	registry  *Registry
	poller    *Poller
	submitter *Submitter
	recorder  Recorder
	logger    zerolog.Logger
	now       func() time.Time

	mu        sync.Mutex
	scrobbles *atomic.Int64 // accepted submissions of the current task
}

// NewLoop creates a Loop. recorder may be nil.
func NewLoop(cfg Config, registry *Registry, poller *Poller, submitter *Submitter, recorder Recorder, logger zerolog.Logger) *Loop {
	if cfg.TickTimeout <= 0 {
		cfg.TickTimeout = 10 * time.Second
	}
	return &Loop{
		config:    cfg,
		registry:  registry,
		poller:    poller,
		submitter: submitter,
		recorder:  recorder,
		logger:    logger.With().Str("component", "loop").Logger(),
		now:       time.Now,
		scrobbles: new(atomic.Int64),
	}
}

// Username returns the configured user.
func (l *Loop) Username() string {
	return l.config.Username
}

// Rate formats the number of ticks per second, e.g. "5".
func (l *Loop) Rate() string {
	perSecond := float64(time.Second) / float64(l.config.Interval)
	return strconv.FormatFloat(perSecond, 'f', -1, 64)
}

// Start arms the loop for rec, replacing a loop that is already running.
func (l *Loop) Start(rec *session.Record) error {
	if rec == nil || rec.Username != l.config.Username {
		return ErrUnauthorized
	}

	counter := new(atomic.Int64)
	record := *rec
	task := NewTask(l.config.Interval, l.config.TickTimeout, func(ctx context.Context) {
		l.tick(ctx, record, counter)
	})

	l.mu.Lock()
	l.scrobbles = counter
	replaced := l.registry.Replace(record.Username, task)
	task.Start(context.Background())
	l.mu.Unlock()

	l.logger.Info().
		Str("user", record.Username).
		Dur("interval", l.config.Interval).
		Bool("replaced", replaced).
		Msg("Spoof loop started")

	return nil
}

// Stop disarms the loop. Ticks already in flight still complete.
func (l *Loop) Stop() error {
	if !l.registry.Remove(l.config.Username) {
		return ErrNotFound
	}

	l.logger.Info().Str("user", l.config.Username).Msg("Spoof loop stopped")
	return nil
}

// Status reports the current loop state.
func (l *Loop) Status() Status {
	st := Status{Username: l.config.Username}

	l.mu.Lock()
	defer l.mu.Unlock()

	task := l.registry.Get(l.config.Username)
	if task == nil {
		return st
	}

	st.Armed = task.Armed()
	st.Since = task.Since()
	st.Ticks = task.Fired()
	st.Scrobbles = l.scrobbles.Load()
	return st
}

// Shutdown cancels every task and waits for in-flight ticks until ctx
// expires.
func (l *Loop) Shutdown(ctx context.Context) error {
	tasks := l.registry.CancelAll()
	if len(tasks) == 0 {
		return nil
	}

	l.logger.Info().Int("tasks", len(tasks)).Msg("Waiting for in-flight ticks")

	done := make(chan struct{})
	go func() {
		for _, t := range tasks {
			t.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tick polls once and, when a track is playing, scrobbles it with the
// current time.
func (l *Loop) tick(ctx context.Context, rec session.Record, accepted *atomic.Int64) {
	track := l.poller.Poll(ctx, rec.SessionKey)
	if track == nil {
		l.logger.Debug().Str("user", rec.Username).Msg("No track to spoof")
		return
	}

	ts := l.now().Unix()
	sub := l.submitter.Submit(ctx, rec.SessionKey, *track, ts)

	if sub == nil || sub.Failed() {
		event := l.logger.Warn().
			Str("user", rec.Username).
			Str("artist", track.Artist).
			Str("track", track.Track)
		if sub != nil {
			event = event.Int("code", sub.ErrorCode).Str("message", sub.Message)
		}
		event.Msg("Failed to spoof play")
	} else {
		accepted.Add(int64(sub.Accepted))
		l.logger.Info().
			Str("user", rec.Username).
			Str("artist", track.Artist).
			Str("track", track.Track).
			Int("accepted", sub.Accepted).
			Int("ignored", sub.Ignored).
			Msg("Spoofed play")
	}

	if l.recorder == nil || sub == nil {
		return
	}

	entry := ledger.Entry{
		Username:  rec.Username,
		Artist:    track.Artist,
		Track:     track.Track,
		Album:     track.Album,
		Timestamp: time.Unix(ts, 0),
		Accepted:  !sub.Failed() && sub.Accepted > 0,
		ErrorCode: sub.ErrorCode,
		Message:   sub.Message,
	}
	if _, err := l.recorder.Record(ctx, entry); err != nil {
		l.logger.Error().Err(err).Msg("Failed to record submission")
	}
}
