package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNoAPIServiceError(t *testing.T) {
	err := NewNoAPIServiceError()

	expected := "No API service selected. Select the API service to send your first message"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}

	if !errors.Is(err, ErrNoAPIService) {
		t.Error("NoAPIServiceError should match ErrNoAPIService")
	}

	wrapped := fmt.Errorf("send: %w", err)
	if !IsNoAPIServiceError(wrapped) {
		t.Error("IsNoAPIServiceError should see through wrapping")
	}

	if IsNoAPIServiceError(errors.New("other")) {
		t.Error("plain errors are not missing-service errors")
	}
}

func TestCompletionError(t *testing.T) {
	cause := context.DeadlineExceeded
	err := NewCompletionError(KindTimeout, 0, "", cause)

	expected := "completion failed (timeout): context deadline exceeded"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}

	if !errors.Is(err, ErrCompletion) {
		t.Error("CompletionError should match ErrCompletion")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("CompletionError should unwrap to its cause")
	}
	if !IsTimeoutError(err) {
		t.Error("IsTimeoutError should accept a timeout CompletionError")
	}

	withStatus := NewCompletionError(KindRateLimit, 429, "slow down", nil)
	expected = "completion failed (rate-limit, HTTP 429): slow down"
	if withStatus.Error() != expected {
		t.Errorf("Error() = %s, want %s", withStatus.Error(), expected)
	}
	if !errors.Is(withStatus, ErrRateLimited) {
		t.Error("rate limit kind should match ErrRateLimited")
	}
	if GetHTTPStatus(withStatus) != 429 {
		t.Errorf("GetHTTPStatus() = %d, want 429", GetHTTPStatus(withStatus))
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindNetwork, "network"},
		{KindAuth, "auth"},
		{KindRateLimit, "rate-limit"},
		{KindTimeout, "timeout"},
		{KindMalformedResponse, "malformed-response"},
		{KindServer, "server"},
		{KindBadRequest, "bad-request"},
		{KindCancelled, "cancelled"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"completion", NewCompletionError(KindServer, 502, "bad gateway", nil), KindServer},
		{"auth", NewAuthError("bad key"), KindAuth},
		{"usage", NewUsageLimitError(""), KindRateLimit},
		{"timeout", NewTimeoutError(""), KindTimeout},
		{"network", NewNetworkError("dial", errors.New("refused")), KindNetwork},
		{"parse", NewParseError("bad json", ""), KindMalformedResponse},
		{"plain", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAuthError(t *testing.T) {
	err := NewAuthError("test auth error")

	expected := "authentication failed: test auth error"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}

	if !err.Is(NewAuthError("target")) {
		t.Error("Expected error to be auth error type")
	}
	if err.Is(NewAPIError(400, "test", "other error")) {
		t.Error("Expected error not to match different type")
	}
	if !err.Is(ErrAuthFailed) {
		t.Error("AuthError should match ErrAuthFailed")
	}
}

func TestAPIError(t *testing.T) {
	err := NewAPIError(400, "chat/completions", "bad request")

	expected := "API error [400] at chat/completions: bad request"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}
	if GetHTTPStatus(fmt.Errorf("wrapped: %w", err)) != 400 {
		t.Error("GetHTTPStatus should unwrap APIError")
	}
}

func TestNetworkError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("dial api.openai.com", cause)

	expected := "network error: dial api.openai.com: connection refused"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}
	if !errors.Is(err, cause) {
		t.Error("NetworkError should unwrap to its cause")
	}
}

func TestParseError(t *testing.T) {
	err := NewParseError("test parse error", "choices[0]")

	expected := "parse error: test parse error"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}
	if !err.Is(ErrInvalidResponse) {
		t.Error("ParseError should match ErrInvalidResponse")
	}
	if err.Is(NewTimeoutError("")) {
		t.Error("Expected error not to match different type")
	}
}
