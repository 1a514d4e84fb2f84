package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// apiError is the body Last.fm returns for application-level failures.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// post sends a signed, form-encoded POST.
//
// method and api_key are added to params before signing; format=json is
// added after, since it never takes part in the signature.
func (c *Client) post(ctx context.Context, method string, params map[string]string) ([]byte, error) {
	reqParams := make(map[string]string, len(params)+4)
	for k, v := range params {
		reqParams[k] = v
	}
	reqParams["method"] = method
	reqParams["api_key"] = c.apiKey

	form := url.Values{}
	for k, v := range reqParams {
		form.Set(k, v)
	}
	form.Set("api_sig", c.sign(reqParams))
	form.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, method)
}

// get sends an unsigned GET with params in the query string.
func (c *Client) get(ctx context.Context, method string, params map[string]string) ([]byte, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("method", method)
	query.Set("api_key", c.apiKey)
	query.Set("format", "json")

	reqURL := c.baseURL + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req, method)
}

// do executes req once. There is no retry: callers that poll on a fixed
// cadence get their next attempt from the cadence itself.
//
// A body carrying a Last.fm error is returned together with an *Error so
// callers can still inspect it. Network failures, unreadable bodies and
// non-2xx statuses without an error body come back as *TransportError.
func (c *Client) do(req *http.Request, method string) ([]byte, error) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("method", method).Msg("calling Last.fm")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		c.logger.Debug().
			Str("method", method).
			Int("code", apiErr.Error).
			Str("message", apiErr.Message).
			Msg("Last.fm returned an error")
		return body, &Error{Code: apiErr.Error, Message: apiErr.Message}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	c.logger.Debug().Str("method", method).Msg("Last.fm call succeeded")
	return body, nil
}
