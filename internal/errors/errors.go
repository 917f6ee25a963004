// Package errors provides the error types surfaced by the chat client.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common cases
var (
	ErrNoAPIService    = errors.New("no API service selected")
	ErrCompletion      = errors.New("completion failed")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrRateLimited     = errors.New("rate limited")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrNoContent       = errors.New("no content in response")
)

const defaultNoServiceMessage = "No API service selected. Select the API service to send your first message"

// NoAPIServiceError is returned when a send is attempted for a chat that has
// no resolvable API service. It is user-correctable and blocks the send.
type NoAPIServiceError struct {
	Message string
}

func (e *NoAPIServiceError) Error() string {
	if e.Message == "" {
		return defaultNoServiceMessage
	}
	return e.Message
}

// Is allows comparison with sentinel errors
func (e *NoAPIServiceError) Is(target error) bool {
	if target == ErrNoAPIService {
		return true
	}
	_, ok := target.(*NoAPIServiceError)
	return ok
}

// NewNoAPIServiceError creates a new NoAPIServiceError
func NewNoAPIServiceError() *NoAPIServiceError {
	return &NoAPIServiceError{}
}

// ErrorKind classifies a completion failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetwork
	KindAuth
	KindRateLimit
	KindTimeout
	KindMalformedResponse
	KindServer
	KindBadRequest
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate-limit"
	case KindTimeout:
		return "timeout"
	case KindMalformedResponse:
		return "malformed-response"
	case KindServer:
		return "server"
	case KindBadRequest:
		return "bad-request"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CompletionError wraps whatever the completion client reported.
type CompletionError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *CompletionError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("completion failed (%s, HTTP %d): %s", e.Kind, e.StatusCode, msg)
	}
	if msg == "" {
		return fmt.Sprintf("completion failed (%s)", e.Kind)
	}
	return fmt.Sprintf("completion failed (%s): %s", e.Kind, msg)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Is allows comparison with sentinel errors
func (e *CompletionError) Is(target error) bool {
	if target == ErrCompletion {
		return true
	}
	if target == ErrAuthFailed {
		return e.Kind == KindAuth
	}
	if target == ErrRateLimited {
		return e.Kind == KindRateLimit
	}
	return false
}

// NewCompletionError creates a new CompletionError
func NewCompletionError(kind ErrorKind, statusCode int, message string, err error) *CompletionError {
	return &CompletionError{
		Kind:       kind,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// State is the error shown inline at the tail of a chat.
type State struct {
	Err error
	At  time.Time
}

// Kind returns the kind of the recorded error. A missing service reports
// KindUnknown.
func (s State) Kind() ErrorKind {
	return KindOf(s.Err)
}

// AuthError represents an authentication failure
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication failed: check the API key"
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *AuthError) Is(target error) bool {
	if target == ErrAuthFailed {
		return true
	}
	_, ok := target.(*AuthError)
	return ok
}

// NewAuthError creates a new AuthError
func NewAuthError(message string) *AuthError {
	return &AuthError{Message: message}
}

// APIError represents an API request failure
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// TimeoutError represents a request timeout
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "request timed out"
	}
	return fmt.Sprintf("request timed out: %s", e.Message)
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(message string) *TimeoutError {
	return &TimeoutError{Message: message}
}

// UsageLimitError represents a rate limit or quota failure
type UsageLimitError struct {
	Message string
}

func (e *UsageLimitError) Error() string {
	if e.Message == "" {
		return "usage limit exceeded"
	}
	return fmt.Sprintf("usage limit exceeded: %s", e.Message)
}

// Is allows comparison with sentinel errors
func (e *UsageLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// NewUsageLimitError creates a new UsageLimitError
func NewUsageLimitError(message string) *UsageLimitError {
	return &UsageLimitError{Message: message}
}

// NetworkError represents a transport failure before a response arrived
type NetworkError struct {
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("network error: %s", e.Message)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(message string, err error) *NetworkError {
	return &NetworkError{Message: message, Err: err}
}

// ParseError represents a response parsing error
type ParseError struct {
	Message string
	Path    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Message)
}

// NewParseError creates a new ParseError
func NewParseError(message, path string) *ParseError {
	return &ParseError{Message: message, Path: path}
}

// Is allows comparison with sentinel errors
func (e *ParseError) Is(target error) bool {
	if target == ErrInvalidResponse {
		return true
	}
	_, ok := target.(*ParseError)
	return ok
}

// KindOf returns the completion kind carried by err, inferring it from the
// typed errors of this package when err is not a CompletionError.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	switch {
	case IsAuthError(err):
		return KindAuth
	case IsRateLimitError(err):
		return KindRateLimit
	case IsTimeoutError(err):
		return KindTimeout
	case IsNetworkError(err):
		return KindNetwork
	case errors.Is(err, ErrInvalidResponse), errors.Is(err, ErrNoContent):
		return KindMalformedResponse
	}
	return KindUnknown
}

// GetHTTPStatus returns the HTTP status carried by err, or 0.
func GetHTTPStatus(err error) int {
	var ce *CompletionError
	if errors.As(err, &ce) && ce.StatusCode > 0 {
		return ce.StatusCode
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNoAPIServiceError reports whether err is a missing-service error
func IsNoAPIServiceError(err error) bool {
	return errors.Is(err, ErrNoAPIService)
}

// IsAuthError reports whether err is an authentication failure
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) || errors.Is(err, ErrAuthFailed)
}

// IsRateLimitError reports whether err is a rate limit failure
func IsRateLimitError(err error) bool {
	var limitErr *UsageLimitError
	return errors.As(err, &limitErr) || errors.Is(err, ErrRateLimited)
}

// IsNetworkError reports whether err is a transport failure
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var ce *CompletionError
	return errors.As(err, &ce) && ce.Kind == KindNetwork
}

// IsTimeoutError reports whether err is a timeout
func IsTimeoutError(err error) bool {
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var ce *CompletionError
	return errors.As(err, &ce) && ce.Kind == KindTimeout
}
