package lastfm

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Config holds client configuration.
type Config struct {
	APIKey     string          // Required: Last.fm API key
	APISecret  string          // Required: Last.fm API secret
	HTTPClient *http.Client    // Optional: HTTP client (defaults to a 10s timeout client)
	BaseURL    string          // Optional: Base URL for API (defaults to Last.fm API, used for testing)
	AuthURL    string          // Optional: Browser authorization page (defaults to Last.fm)
	UserAgent  string          // Optional: User-Agent header
	Logger     *zerolog.Logger // Optional: debug logging of API calls
}

// Client is the main entry point for Last.fm API operations.
//
// A Client holds no per-user state: session keys are passed to each call,
// so one Client can be shared between goroutines.
type Client struct {
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	baseURL    string
	authURL    string
	userAgent  string
	logger     zerolog.Logger

	auth     *AuthService
	user     *UserService
	scrobble *ScrobbleService
}

const (
	// DefaultBaseURL is the default Last.fm API endpoint.
	DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

	// DefaultAuthURL is the page where users grant an API key access.
	DefaultAuthURL = "http://www.last.fm/api/auth/"

	defaultUserAgent = "scrobbleloop/1.0"
)

// NewClient creates a new Last.fm API client.
//
// Returns an error if required configuration (APIKey, APISecret) is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: APIKey is required", ErrInvalidConfig)
	}
	if cfg.APISecret == "" {
		return nil, fmt.Errorf("%w: APISecret is required", ErrInvalidConfig)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = DefaultAuthURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "lastfm").Logger()
	}

	c := &Client{
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: httpClient,
		baseURL:    baseURL,
		authURL:    authURL,
		userAgent:  userAgent,
		logger:     logger,
	}

	c.auth = &AuthService{client: c}
	c.user = &UserService{client: c}
	c.scrobble = &ScrobbleService{client: c}

	return c, nil
}

// Auth returns the authentication service.
func (c *Client) Auth() *AuthService {
	return c.auth
}

// User returns the user service.
func (c *Client) User() *UserService {
	return c.user
}

// Scrobble returns the scrobbling service.
func (c *Client) Scrobble() *ScrobbleService {
	return c.scrobble
}

// sign computes api_sig for params with the client's secret.
func (c *Client) sign(params map[string]string) string {
	return Sign(params, c.apiSecret)
}
