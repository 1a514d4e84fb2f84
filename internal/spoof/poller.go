package spoof

import (
	"context"

	"github.com/jfmyers9/scrobbleloop/pkg/lastfm"
	"github.com/rs/zerolog"
)

// TrackSource reports what a user is listening to. *lastfm.UserService
// implements it.
type TrackSource interface {
	NowPlaying(ctx context.Context, sessionKey string) (*lastfm.RecentTrack, error)
}

// TrackInfo is the track observed by one poll.
type TrackInfo struct {
	Artist string
	Track  string
	Album  string // "" when Last.fm has no album
}

// Poller fetches the current track of an authenticated user.
type Poller struct {
	source TrackSource
	logger zerolog.Logger
}

// NewPoller creates a Poller.
func NewPoller(source TrackSource, logger zerolog.Logger) *Poller {
	return &Poller{
		source: source,
		logger: logger.With().Str("component", "poller").Logger(),
	}
}

// Poll returns the current track, or nil when nothing is playing or the
// request failed. Failures are logged, never returned.
func (p *Poller) Poll(ctx context.Context, sessionKey string) *TrackInfo {
	track, err := p.source.NowPlaying(ctx, sessionKey)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Poll failed")
		return nil
	}
	if track == nil {
		p.logger.Debug().Msg("Nothing playing")
		return nil
	}

	return &TrackInfo{
		Artist: track.Artist,
		Track:  track.Name,
		Album:  track.Album,
	}
}
