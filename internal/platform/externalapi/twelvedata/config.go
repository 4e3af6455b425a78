// Package twelvedata provides a daily price source backed by the Twelve Data API.
package twelvedata

import (
	"time"
)

// DefaultBaseURL is the public Twelve Data endpoint.
const DefaultBaseURL = "https://api.twelvedata.com"

// DefaultTimeout bounds one time_series request.
const DefaultTimeout = 10 * time.Second

// Config holds configuration for the Twelve Data API client.
type Config struct {
	TwelveDataAPIKey string        // API key for authentication
	BaseURL          string        // Base URL for the API (e.g., "https://api.twelvedata.com")
	Timeout          time.Duration // HTTP request timeout
}

// NewConfig fills in the default base URL and timeout where they are unset.
func NewConfig(apiKey, baseURL string, timeout time.Duration) Config {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return Config{TwelveDataAPIKey: apiKey, BaseURL: baseURL, Timeout: timeout}
}
