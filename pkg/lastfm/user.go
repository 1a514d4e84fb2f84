package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// UserService provides read operations on a user's listening history.
type UserService struct {
	client *Client
}

// recentTracksResponse is the JSON body of user.getRecentTracks.
type recentTracksResponse struct {
	RecentTracks struct {
		Track oneOrMany[recentTrackJSON] `json:"track"`
	} `json:"recenttracks"`
}

type recentTrackJSON struct {
	Artist textNode `json:"artist"`
	Name   string   `json:"name"`
	Album  textNode `json:"album"`
	Attr   *struct {
		NowPlaying string `json:"nowplaying"`
	} `json:"@attr"`
	// Raw so that a present "date": null still counts as dated.
	Date json.RawMessage `json:"date"`
}

type dateJSON struct {
	UTS string `json:"uts"`
}

// RecentTracks returns the most recent entries of the authenticated user's
// history, newest first. The in-progress track, if any, comes first.
//
// The call is read-only and unsigned; the session key identifies the user.
func (u *UserService) RecentTracks(ctx context.Context, sessionKey string, limit int) ([]RecentTrack, error) {
	if sessionKey == "" {
		return nil, ErrNoSessionKey
	}
	if limit <= 0 {
		limit = 1
	}

	body, err := u.client.get(ctx, "user.getrecenttracks", map[string]string{
		"sk":    sessionKey,
		"limit": strconv.Itoa(limit),
	})
	if err != nil {
		return nil, err
	}

	var resp recentTracksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse recent tracks response: %w", err)
	}

	tracks := make([]RecentTrack, 0, len(resp.RecentTracks.Track))
	for i, t := range resp.RecentTracks.Track {
		if t.Artist.Text == "" || t.Name == "" {
			return nil, fmt.Errorf("%w: entry %d has no artist or name", ErrMalformedTrack, i)
		}

		rt := RecentTrack{
			Artist:     t.Artist.Text,
			Name:       t.Name,
			Album:      t.Album.Text,
			NowPlaying: t.Attr != nil && t.Attr.NowPlaying == "true",
			HasDate:    len(t.Date) > 0,
		}
		var date dateJSON
		if rt.HasDate && json.Unmarshal(t.Date, &date) == nil {
			if uts, err := strconv.ParseInt(date.UTS, 10, 64); err == nil {
				rt.PlayedAt = time.Unix(uts, 0)
			}
		}
		tracks = append(tracks, rt)
	}

	return tracks, nil
}

// NowPlaying returns the track the user is listening to, or nil when the
// newest history entry is already a completed play.
func (u *UserService) NowPlaying(ctx context.Context, sessionKey string) (*RecentTrack, error) {
	tracks, err := u.RecentTracks(ctx, sessionKey, 1)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 || !tracks[0].IsCurrent() {
		return nil, nil
	}
	return &tracks[0], nil
}
