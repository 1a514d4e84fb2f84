package spoof

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jfmyers9/scrobbleloop/internal/ledger"
	"github.com/jfmyers9/scrobbleloop/internal/session"
	"github.com/jfmyers9/scrobbleloop/pkg/lastfm"
	"github.com/rs/zerolog"
)

type loopFixture struct {
	loop     *Loop
	registry *Registry
	source   *fakeSource
	sink     *fakeSink
	recorder *fakeRecorder
}

func newLoopFixture(t *testing.T, interval time.Duration) *loopFixture {
	t.Helper()

	f := &loopFixture{
		registry: NewRegistry(),
		source:   &fakeSource{track: &lastfm.RecentTrack{Artist: "A", Name: "T", Album: "L", NowPlaying: true}},
		sink:     &fakeSink{resp: accepted()},
		recorder: &fakeRecorder{},
	}
	logger := zerolog.Nop()
	f.loop = NewLoop(
		Config{Username: "alice", Interval: interval},
		f.registry,
		NewPoller(f.source, logger),
		NewSubmitter(f.sink, logger),
		f.recorder,
		logger,
	)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = f.loop.Shutdown(ctx)
	})

	return f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestLoop_StartUnauthorized(t *testing.T) {
	tests := []struct {
		name string
		rec  *session.Record
	}{
		{name: "no session", rec: nil},
		{name: "other user", rec: &session.Record{SessionKey: "K", Username: "mallory"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLoopFixture(t, time.Hour)

			err := f.loop.Start(tt.rec)
			if !errors.Is(err, ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
			if f.registry.Len() != 0 {
				t.Error("unauthorized start registered a task")
			}
		})
	}
}

func TestLoop_StopTwice(t *testing.T) {
	f := newLoopFixture(t, time.Hour)

	if err := f.loop.Start(&session.Record{SessionKey: "K", Username: "alice"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !f.loop.Status().Armed {
		t.Error("expected armed status after Start")
	}

	if err := f.loop.Stop(); err != nil {
		t.Errorf("first Stop: %v", err)
	}
	if err := f.loop.Stop(); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Stop: expected ErrNotFound, got %v", err)
	}
	if f.loop.Status().Armed {
		t.Error("expected idle status after Stop")
	}
}

func TestLoop_StopWhenIdle(t *testing.T) {
	f := newLoopFixture(t, time.Hour)

	if err := f.loop.Stop(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoop_StartSupersedes(t *testing.T) {
	f := newLoopFixture(t, time.Hour)
	rec := &session.Record{SessionKey: "K", Username: "alice"}

	if err := f.loop.Start(rec); err != nil {
		t.Fatalf("Start: %v", err)
	}
	first := f.registry.Get("alice")

	if err := f.loop.Start(rec); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	second := f.registry.Get("alice")

	if first == second {
		t.Fatal("second Start did not replace the task")
	}
	if first.Armed() {
		t.Error("superseded task still armed")
	}
	if f.registry.Len() != 1 {
		t.Errorf("expected 1 task, got %d", f.registry.Len())
	}
}

func TestLoop_TicksScrobbleAndRecord(t *testing.T) {
	f := newLoopFixture(t, 5*time.Millisecond)
	now := time.Unix(1700000000, 0)
	f.loop.now = func() time.Time { return now }

	if err := f.loop.Start(&session.Record{SessionKey: "K", Username: "alice"}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, "three scrobbles", func() bool { return len(f.sink.Calls()) >= 3 })
	waitFor(t, "three ledger rows", func() bool { return len(f.recorder.Entries()) >= 3 })

	call := f.sink.Calls()[0]
	if call.sessionKey != "K" {
		t.Errorf("session key = %q", call.sessionKey)
	}
	if call.track != (lastfm.Track{Artist: "A", Track: "T", Album: "L"}) {
		t.Errorf("track = %+v", call.track)
	}
	if !call.timestamp.Equal(now) {
		t.Errorf("timestamp = %v, want %v", call.timestamp, now)
	}

	entry := f.recorder.Entries()[0]
	if entry.Username != "alice" || !entry.Accepted || entry.Track != "T" {
		t.Errorf("unexpected ledger entry %+v", entry)
	}

	st := f.loop.Status()
	if st.Ticks < 3 || st.Scrobbles < 3 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestLoop_NothingPlayingSkipsSubmit(t *testing.T) {
	f := newLoopFixture(t, 5*time.Millisecond)
	f.source.track = nil

	if err := f.loop.Start(&session.Record{SessionKey: "K", Username: "alice"}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, "polls", func() bool { return f.source.Calls() >= 3 })

	if n := len(f.sink.Calls()); n != 0 {
		t.Errorf("expected no scrobbles, got %d", n)
	}
	if n := len(f.recorder.Entries()); n != 0 {
		t.Errorf("expected no ledger rows, got %d", n)
	}
}

func TestLoop_RejectedSubmissionIsRecorded(t *testing.T) {
	f := newLoopFixture(t, 5*time.Millisecond)
	f.sink.err = &lastfm.Error{Code: lastfm.ErrCodeInvalidSessionKey, Message: "Invalid session key"}

	if err := f.loop.Start(&session.Record{SessionKey: "K", Username: "alice"}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, "ledger row", func() bool { return len(f.recorder.Entries()) >= 1 })

	entry := f.recorder.Entries()[0]
	if entry.Accepted {
		t.Error("rejected submission recorded as accepted")
	}
	if entry.ErrorCode != lastfm.ErrCodeInvalidSessionKey {
		t.Errorf("ErrorCode = %d", entry.ErrorCode)
	}
	if f.loop.Status().Scrobbles != 0 {
		t.Error("rejected submission counted as scrobble")
	}
}

func TestLoop_Rate(t *testing.T) {
	tests := []struct {
		interval time.Duration
		want     string
	}{
		{200 * time.Millisecond, "5"},
		{time.Second, "1"},
		{2 * time.Second, "0.5"},
	}

	for _, tt := range tests {
		l := NewLoop(Config{Username: "u", Interval: tt.interval}, NewRegistry(), nil, nil, nil, zerolog.Nop())
		if got := l.Rate(); got != tt.want {
			t.Errorf("Rate() for %v = %q, want %q", tt.interval, got, tt.want)
		}
	}
}

// TestLoop_AgainstLastFM runs the loop against a fake Last.fm endpoint
// through the real client and ledger.
func TestLoop_AgainstLastFM(t *testing.T) {
	var scrobbles atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"recenttracks":{"track":[{
				"artist":{"#text":"Boards of Canada"},
				"name":"Roygbiv",
				"album":{"#text":""},
				"@attr":{"nowplaying":"true"}
			}]}}`))
			return
		}

		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.PostForm.Get("method"); got != "track.scrobble" {
			t.Errorf("unexpected method %q", got)
		}
		if _, ok := r.PostForm["album[0]"]; !ok {
			t.Error("album[0] not sent")
		}
		scrobbles.Add(1)
		_, _ = w.Write([]byte(`{"scrobbles":{"scrobble":{
			"artist":{"#text":"Boards of Canada"},
			"track":{"#text":"Roygbiv"},
			"album":{"#text":""},
			"timestamp":"1700000000",
			"ignoredMessage":{"code":"0","#text":""}
		},"@attr":{"accepted":1,"ignored":0}}}`))
	}))
	defer server.Close()

	client, err := lastfm.NewClient(lastfm.Config{APIKey: "key", APISecret: "secret", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	l, err := ledger.Open(":memory:")
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	defer func() { _ = l.Close() }()

	logger := zerolog.Nop()
	loop := NewLoop(
		Config{Username: "alice", Interval: 10 * time.Millisecond},
		NewRegistry(),
		NewPoller(client.User(), logger),
		NewSubmitter(client.Scrobble(), logger),
		l,
		logger,
	)

	if err := loop.Start(&session.Record{SessionKey: "K", Username: "alice"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, "scrobbles", func() bool { return scrobbles.Load() >= 2 })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := loop.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	entries, err := l.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected at least 2 ledger rows, got %d", len(entries))
	}
	for _, e := range entries {
		if !e.Accepted || !strings.EqualFold(e.Artist, "Boards of Canada") {
			t.Errorf("unexpected ledger row %+v", e)
		}
	}
}
