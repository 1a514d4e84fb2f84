package spoof

import (
	"context"
	"errors"
	"time"

	"github.com/jfmyers9/scrobbleloop/pkg/lastfm"
	"github.com/rs/zerolog"
)

// ScrobbleSink accepts scrobbles. *lastfm.ScrobbleService implements it.
type ScrobbleSink interface {
	Scrobble(ctx context.Context, sessionKey string, track lastfm.Track, timestamp time.Time) (*lastfm.ScrobbleResponse, error)
}

// Submission is the outcome of one completed scrobble exchange.
type Submission struct {
	Accepted int
	Ignored  int

	// ErrorCode and Message carry the Last.fm error when the call was
	// rejected as a whole, or the ignored-message when the scrobble was
	// ignored.
	ErrorCode int
	Message   string

	rejected bool
}

// Failed reports whether Last.fm answered with an error body.
func (s *Submission) Failed() bool {
	return s.rejected
}

// Submitter sends single scrobbles.
type Submitter struct {
	sink   ScrobbleSink
	logger zerolog.Logger
}

// NewSubmitter creates a Submitter.
func NewSubmitter(sink ScrobbleSink, logger zerolog.Logger) *Submitter {
	return &Submitter{
		sink:   sink,
		logger: logger.With().Str("component", "submitter").Logger(),
	}
}

// Submit scrobbles track at unixSeconds. It returns nil only when no HTTP
// exchange completed; an error answered by Last.fm yields a Submission
// whose Failed method reports true.
func (s *Submitter) Submit(ctx context.Context, sessionKey string, track TrackInfo, unixSeconds int64) *Submission {
	resp, err := s.sink.Scrobble(ctx, sessionKey, lastfm.Track{
		Artist: track.Artist,
		Track:  track.Track,
		Album:  track.Album,
	}, time.Unix(unixSeconds, 0))
	if err != nil {
		var apiErr *lastfm.Error
		if errors.As(err, &apiErr) {
			return &Submission{
				ErrorCode: apiErr.Code,
				Message:   apiErr.Message,
				rejected:  true,
			}
		}
		s.logger.Debug().Err(err).Msg("Scrobble request failed")
		return nil
	}

	sub := &Submission{
		Accepted: resp.Accepted,
		Ignored:  resp.Ignored,
	}
	for _, r := range resp.Scrobbles {
		if r.IgnoredCode != 0 {
			sub.ErrorCode = r.IgnoredCode
			sub.Message = r.IgnoredMessage
			break
		}
	}
	return sub
}
