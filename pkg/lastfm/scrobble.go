package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ScrobbleService provides scrobbling operations for the Last.fm API.
type ScrobbleService struct {
	client *Client
}

const (
	// MaxBatchSize is the maximum number of scrobbles allowed in a single batch.
	MaxBatchSize = 50
)

// Scrobble submits a single scrobble to Last.fm.
//
// The request uses the batch shape with index 0 (artist[0], track[0], ...).
//
// Example:
//
//	track := lastfm.Track{
//	    Artist: "The Beatles",
//	    Track:  "Yesterday",
//	    Album:  "Help!",
//	}
//	resp, err := client.Scrobble().Scrobble(ctx, sessionKey, track, time.Now())
func (s *ScrobbleService) Scrobble(ctx context.Context, sessionKey string, track Track, timestamp time.Time) (*ScrobbleResponse, error) {
	return s.ScrobbleBatch(ctx, sessionKey, []Scrobble{{Track: track, Timestamp: timestamp}})
}

// ScrobbleBatch submits multiple scrobbles to Last.fm in a single request.
//
// Up to 50 scrobbles can be submitted at once. If more than 50 scrobbles
// are provided, only the first 50 will be submitted.
//
// When Last.fm answers with an error body the parsed *Error is returned and
// the response is nil.
func (s *ScrobbleService) ScrobbleBatch(ctx context.Context, sessionKey string, scrobbles []Scrobble) (*ScrobbleResponse, error) {
	if sessionKey == "" {
		return nil, ErrNoSessionKey
	}
	if len(scrobbles) == 0 {
		return &ScrobbleResponse{}, nil
	}
	if len(scrobbles) > MaxBatchSize {
		scrobbles = scrobbles[:MaxBatchSize]
	}

	params := map[string]string{
		"sk": sessionKey,
	}

	// Add batch parameters with indexed keys
	for i, scrobble := range scrobbles {
		idx := fmt.Sprintf("[%d]", i)
		params["artist"+idx] = scrobble.Track.Artist
		params["track"+idx] = scrobble.Track.Track
		params["album"+idx] = scrobble.Track.Album
		params["timestamp"+idx] = strconv.FormatInt(scrobble.Timestamp.Unix(), 10)
	}

	body, err := s.client.post(ctx, "track.scrobble", params)
	if err != nil {
		return nil, err
	}

	resp, err := unmarshalScrobbles(body)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse scrobble response: %w", err)
	}

	return resp, nil
}

// scrobbleResponse represents the JSON response from track.scrobble.
type scrobbleResponse struct {
	Scrobbles struct {
		Scrobble oneOrMany[scrobbleJSON] `json:"scrobble"`
		Attr     struct {
			Accepted flexInt `json:"accepted"`
			Ignored  flexInt `json:"ignored"`
		} `json:"@attr"`
	} `json:"scrobbles"`
}

type scrobbleJSON struct {
	Artist         textNode `json:"artist"`
	Track          textNode `json:"track"`
	Album          textNode `json:"album"`
	Timestamp      flexInt  `json:"timestamp"`
	IgnoredMessage struct {
		Code flexInt `json:"code"`
		Text string  `json:"#text"`
	} `json:"ignoredMessage"`
}

// unmarshalScrobbles parses the JSON response from track.scrobble.
func unmarshalScrobbles(data []byte) (*ScrobbleResponse, error) {
	var resp scrobbleResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}

	result := &ScrobbleResponse{
		Accepted:  int(resp.Scrobbles.Attr.Accepted),
		Ignored:   int(resp.Scrobbles.Attr.Ignored),
		Scrobbles: make([]ScrobbleResult, len(resp.Scrobbles.Scrobble)),
	}

	for i, s := range resp.Scrobbles.Scrobble {
		result.Scrobbles[i] = ScrobbleResult{
			Artist:         s.Artist.Text,
			Track:          s.Track.Text,
			Album:          s.Album.Text,
			Timestamp:      int64(s.Timestamp),
			IgnoredCode:    int(s.IgnoredMessage.Code),
			IgnoredMessage: s.IgnoredMessage.Text,
		}
	}

	return result, nil
}
