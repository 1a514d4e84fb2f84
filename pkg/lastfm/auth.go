package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// AuthService provides authentication operations for the Last.fm API.
type AuthService struct {
	client *Client
}

// GetAuthURL returns the URL where users authorize the API key.
//
// Last.fm sends the browser back to callbackURL with a one-time token in
// the "token" query parameter. Exchange it with GetSession.
//
// Example:
//
//	authURL := client.Auth().GetAuthURL("https://example.com/callback")
//	http.Redirect(w, r, authURL, http.StatusFound)
func (a *AuthService) GetAuthURL(callbackURL string) string {
	return a.client.authURL + "?api_key=" + url.QueryEscape(a.client.apiKey) + "&cb=" + url.QueryEscape(callbackURL)
}

// sessionResponse is the JSON body of auth.getSession.
type sessionResponse struct {
	Session struct {
		Name       string  `json:"name"`
		Key        string  `json:"key"`
		Subscriber flexInt `json:"subscriber"`
	} `json:"session"`
}

// GetSession exchanges an authorized token for a session key.
//
// Last.fm session keys do not expire, but the token is single use: a
// failed exchange has to start over from the authorization page.
//
// Returns ErrIncompleteSession when the response lacks the key or the
// name, an *Error when Last.fm rejected the token, and a *TransportError
// when the call itself failed.
//
// Example:
//
//	session, err := client.Auth().GetSession(ctx, token)
//	if err != nil {
//	    return err
//	}
//	fmt.Println("Authenticated as", session.Username)
func (a *AuthService) GetSession(ctx context.Context, token string) (*Session, error) {
	body, err := a.client.post(ctx, "auth.getSession", map[string]string{
		"token": token,
	})
	if err != nil {
		return nil, err
	}

	var resp sessionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse session response: %w", err)
	}

	if resp.Session.Key == "" || resp.Session.Name == "" {
		return nil, ErrIncompleteSession
	}

	return &Session{
		Key:        resp.Session.Key,
		Username:   resp.Session.Name,
		Subscriber: resp.Session.Subscriber != 0,
	}, nil
}
