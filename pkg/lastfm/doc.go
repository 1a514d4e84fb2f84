// Package lastfm provides a client library for the Last.fm API 2.0.
//
// # Overview
//
// This package implements the subset of the Last.fm API needed to log a
// user in through the browser, read what they are playing, and scrobble
// on their behalf. All calls use the JSON response format, accept a
// context.Context, and are attempted exactly once.
//
// # Quick Start
//
// First, create a client with your API credentials:
//
//	import "github.com/jfmyers9/scrobbleloop/pkg/lastfm"
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey:    "your-api-key",
//	    APISecret: "your-api-secret",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Authentication
//
// Last.fm web authentication works through a browser redirect:
//
//  1. Send the user to GetAuthURL with your callback URL
//  2. Last.fm redirects back to the callback with ?token=...
//  3. Exchange the token for a session key with GetSession
//
// Example:
//
//	http.Redirect(w, r, client.Auth().GetAuthURL("https://example.com/callback"), http.StatusFound)
//
//	// in the callback handler
//	session, err := client.Auth().GetSession(ctx, r.URL.Query().Get("token"))
//
// # Reading and Scrobbling
//
//	current, err := client.User().NowPlaying(ctx, session.Key)
//	if err == nil && current != nil {
//	    track := lastfm.Track{Artist: current.Artist, Track: current.Name, Album: current.Album}
//	    resp, err := client.Scrobble().Scrobble(ctx, session.Key, track, time.Now())
//	}
//
// # Signatures
//
// Sign implements the api_sig algorithm. It is exported so callers can
// verify signatures in tests or sign requests built by hand.
//
// # Error Handling
//
// Application errors reported by Last.fm come back as *Error. Failures
// that never produced a usable response are *TransportError:
//
//	resp, err := client.Scrobble().Scrobble(ctx, sk, track, timestamp)
//	var apiErr *lastfm.Error
//	switch {
//	case errors.As(err, &apiErr):
//	    // Last.fm rejected the request; apiErr.Code says why
//	case lastfm.IsTransport(err):
//	    // network problem; try again on the next cycle
//	}
//
// # Last.fm API Documentation
//
// For more information about the Last.fm API:
// https://www.last.fm/api/webauth
package lastfm
