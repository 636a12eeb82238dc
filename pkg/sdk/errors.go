package marketsearch

import (
	"errors"
	"fmt"
)

// ErrInvalidBaseURL is returned by New for a base URL that is not absolute http(s).
var ErrInvalidBaseURL = errors.New("marketsearch: invalid base url")

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("marketsearch: http %d", e.StatusCode)
	}
	return fmt.Sprintf("marketsearch: http %d: %s: %s", e.StatusCode, e.Code, e.Message)
}
