package spoof

import (
	"context"
	"sync"
	"time"

	"github.com/jfmyers9/scrobbleloop/internal/ledger"
	"github.com/jfmyers9/scrobbleloop/pkg/lastfm"
)

type fakeExchanger struct {
	session *lastfm.Session
	err     error
	tokens  []string
}

func (f *fakeExchanger) GetAuthURL(callbackURL string) string {
	return "https://auth.example/?cb=" + callbackURL
}

func (f *fakeExchanger) GetSession(ctx context.Context, token string) (*lastfm.Session, error) {
	f.tokens = append(f.tokens, token)
	return f.session, f.err
}

type fakeSource struct {
	mu    sync.Mutex
	track *lastfm.RecentTrack
	err   error
	calls int
}

func (f *fakeSource) NowPlaying(ctx context.Context, sessionKey string) (*lastfm.RecentTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.track, f.err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type scrobbleCall struct {
	sessionKey string
	track      lastfm.Track
	timestamp  time.Time
}

type fakeSink struct {
	mu    sync.Mutex
	resp  *lastfm.ScrobbleResponse
	err   error
	calls []scrobbleCall
}

func (f *fakeSink) Scrobble(ctx context.Context, sessionKey string, track lastfm.Track, timestamp time.Time) (*lastfm.ScrobbleResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, scrobbleCall{sessionKey, track, timestamp})
	return f.resp, f.err
}

func (f *fakeSink) Calls() []scrobbleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scrobbleCall(nil), f.calls...)
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []ledger.Entry
}

func (f *fakeRecorder) Record(ctx context.Context, e ledger.Entry) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return int64(len(f.entries)), nil
}

func (f *fakeRecorder) Entries() []ledger.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ledger.Entry(nil), f.entries...)
}

func accepted() *lastfm.ScrobbleResponse {
	return &lastfm.ScrobbleResponse{Accepted: 1}
}
