package carrier

import (
	"errors"
	"net/url"
)

// EkartConfig holds the Ekart reverse-logistics API settings
type EkartConfig struct {
	// BaseURL is the API root, e.g. "https://api.ekartlogistics.com"
	BaseURL string
	// APIKey authenticates requests via the HTTP Authorization header
	APIKey string
	// TimeoutSeconds bounds each HTTP call
	TimeoutSeconds int
	// MaxConcurrency bounds parallel per-id calls during a batch status fetch
	MaxConcurrency int
}

// Validate checks the configuration is usable
func (c *EkartConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("ekart: base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return errors.New("ekart: base URL is not a valid URL")
	}
	if c.APIKey == "" {
		return errors.New("ekart: API key is required")
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 8
	}
	return nil
}
