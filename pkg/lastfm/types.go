package lastfm

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Track represents a music track for scrobbling.
type Track struct {
	Artist string // Required: Artist name
	Track  string // Required: Track name
	Album  string // Optional: Album name, sent as "" when unknown
}

// Scrobble represents a single scrobble with timestamp.
type Scrobble struct {
	Track     Track     // The track being scrobbled
	Timestamp time.Time // When the track was played
}

// Session represents an authenticated session from auth.getSession.
type Session struct {
	Key        string // Session key for authenticated requests
	Username   string // Last.fm username
	Subscriber bool   // Whether user is a subscriber
}

// RecentTrack is one entry of user.getRecentTracks.
type RecentTrack struct {
	Artist     string
	Name       string
	Album      string
	NowPlaying bool      // @attr.nowplaying == "true"
	HasDate    bool      // entry carries a play date
	PlayedAt   time.Time // zero when HasDate is false or the date is unparseable
}

// IsCurrent reports whether the entry describes the track playing right
// now. Last.fm omits the date exactly for the in-progress track, so an
// undated entry counts even when the nowplaying flag is missing.
func (t RecentTrack) IsCurrent() bool {
	return t.NowPlaying || !t.HasDate
}

// ScrobbleResponse represents the response from track.scrobble.
type ScrobbleResponse struct {
	Accepted  int // Number of scrobbles accepted
	Ignored   int // Number of scrobbles ignored
	Scrobbles []ScrobbleResult
}

// ScrobbleResult is the per-entry outcome inside a ScrobbleResponse.
type ScrobbleResult struct {
	Artist         string
	Track          string
	Album          string
	Timestamp      int64
	IgnoredCode    int
	IgnoredMessage string
}

// oneOrMany decodes a JSON value that Last.fm sends as a bare object when
// there is exactly one element and as an array otherwise.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = nil
		return nil
	}
	if data[0] == '[' {
		var many []T
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*o = []T{one}
	return nil
}

// flexInt accepts both 3 and "3".
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

// textNode is the {"#text": "..."} shape Last.fm uses for artist/album.
type textNode struct {
	Text string `json:"#text"`
}
