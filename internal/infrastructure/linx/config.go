package linx

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config holds LINX Commerce API settings.
type Config struct {
	// BaseURL is the store API root, e.g. https://store.layer.core.dcg.com.br
	BaseURL string
	// Username and Password are the API basic-auth credentials
	Username string
	Password string
	// TimeoutSeconds bounds each HTTP request
	TimeoutSeconds int
	// RequestsPerSecond throttles calls to the API; 0 disables throttling
	RequestsPerSecond float64
	// Burst is the limiter bucket size
	Burst int
	// Location is the zone LINX interprets search filter dates in
	Location *time.Location
}

const (
	defaultTimeoutSeconds = 60
	defaultBurst          = 1
)

// Errors for LINX configuration
var (
	ErrLinxConfigMissingBaseURL  = errors.New("linx: base URL is required")
	ErrLinxConfigInvalidBaseURL  = errors.New("linx: base URL must be an absolute http(s) URL")
	ErrLinxConfigMissingUsername = errors.New("linx: username is required")
	ErrLinxConfigMissingPassword = errors.New("linx: password is required")
)

// Validate checks required settings and fills defaults.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrLinxConfigMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrLinxConfigInvalidBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.Username == "" {
		return ErrLinxConfigMissingUsername
	}
	if c.Password == "" {
		return ErrLinxConfigMissingPassword
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.RequestsPerSecond < 0 {
		c.RequestsPerSecond = 0
	}
	if c.Burst <= 0 {
		c.Burst = defaultBurst
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return nil
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
