package services

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned when every available TMDB credential was rate limited for a call
var ErrRateLimited = errors.New("TMDB rate limit exceeded on all credentials")

// ProviderError is a non-429 HTTP failure, a transport failure or an undecodable body
type ProviderError struct {
	Endpoint   string
	StatusCode int // 0 for transport and decode failures
	Message    string
	Timeout    bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		if e.Message != "" {
			return fmt.Sprintf("TMDB %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Message)
		}
		return fmt.Sprintf("TMDB %s returned status %d", e.Endpoint, e.StatusCode)
	}
	if e.Timeout {
		return fmt.Sprintf("TMDB %s timed out: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("TMDB %s request failed: %v", e.Endpoint, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NormalizationError reports a required field missing from a TMDB payload
type NormalizationError struct {
	Field string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// rateLimitError marks a single 429 response and the credential that received it
type rateLimitError struct {
	endpoint string
	cred     credential
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("TMDB %s rate limited on %s credential", e.endpoint, e.cred)
}
