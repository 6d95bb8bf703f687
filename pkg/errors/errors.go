package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeValidation represents pre-flight validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeTimeout represents a request that exceeded its deadline
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeHTTPStatus represents an unexpected HTTP status from the marketplace
	ErrorTypeHTTPStatus ErrorType = "http_status"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ErrInvalidRequestKind is wrapped by validation errors raised for a scrape kind
// without a known endpoint.
var ErrInvalidRequestKind = stderrors.New("invalid request kind")

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type       ErrorType
	Source     string
	Message    string
	StatusCode int
	Err        error
	Time       time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether re-invoking the whole operation later may succeed.
// Nothing inside the scraper retries on its own.
func (e *ScrapeError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	case ErrorTypeHTTPStatus:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// IsTransport returns true for timeout, network, http status and rate limit failures
func (e *ScrapeError) IsTransport() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeNetwork, ErrorTypeHTTPStatus, ErrorTypeRateLimit:
		return true
	}
	return false
}

// New creates a new ScrapeError
func New(errType ErrorType, source, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *ScrapeError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewInvalidRequestKind creates a validation error for an unknown scrape kind
func NewInvalidRequestKind(source, kind string) *ScrapeError {
	return New(ErrorTypeValidation, source, fmt.Sprintf("no endpoint for scrape kind %q", kind), ErrInvalidRequestKind)
}

// NewTimeout creates a new timeout error
func NewTimeout(source, message string, err error) *ScrapeError {
	return New(ErrorTypeTimeout, source, message, err)
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *ScrapeError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewHTTPStatus creates a new error for an unexpected response status
func NewHTTPStatus(source string, statusCode int) *ScrapeError {
	e := New(ErrorTypeHTTPStatus, source, fmt.Sprintf("unexpected status code: %d", statusCode), nil)
	e.StatusCode = statusCode
	return e
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *ScrapeError {
	message := fmt.Sprintf("rate limited for %v", duration)
	e := New(ErrorTypeRateLimit, source, message, nil)
	e.StatusCode = 429
	return e
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *ScrapeError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *ScrapeError {
	return New(ErrorTypeCache, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *ScrapeError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the ErrorType of the first ScrapeError in err's chain, or "" when there is none
func TypeOf(err error) ErrorType {
	var se *ScrapeError
	if stderrors.As(err, &se) {
		return se.Type
	}
	return ""
}

// IsValidation reports whether err is a pre-flight validation failure
func IsValidation(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

// IsTransport reports whether err came from the transport layer
func IsTransport(err error) bool {
	var se *ScrapeError
	return stderrors.As(err, &se) && se.IsTransport()
}
