package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/sashabaranov/go-openai"

	apierrors "github.com/diogo/llmchat/internal/errors"
)

const endpoint = "chat/completions"

// Classify maps a go-openai or transport failure to a CompletionError.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var ce *apierrors.CompletionError
	if errors.As(err, &ce) {
		return ce
	}

	switch {
	case errors.Is(err, context.Canceled):
		return apierrors.NewCompletionError(apierrors.KindCancelled, 0, "request cancelled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apierrors.NewCompletionError(apierrors.KindTimeout, 0, "", apierrors.NewTimeoutError(err.Error()))
	case errors.Is(err, openai.ErrTooManyEmptyStreamMessages):
		return apierrors.NewCompletionError(apierrors.KindMalformedResponse, 0, "",
			apierrors.NewParseError(err.Error(), "stream"))
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fromStatus(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return fromStatus(reqErr.HTTPStatusCode, msg)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return apierrors.NewCompletionError(apierrors.KindTimeout, 0, "", apierrors.NewTimeoutError(err.Error()))
		}
		return apierrors.NewCompletionError(apierrors.KindNetwork, 0, "",
			apierrors.NewNetworkError("request failed", err))
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return apierrors.NewCompletionError(apierrors.KindNetwork, 0, "",
			apierrors.NewNetworkError("request failed", err))
	}

	return apierrors.NewCompletionError(apierrors.KindUnknown, 0, "", err)
}

func fromStatus(status int, msg string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apierrors.NewCompletionError(apierrors.KindAuth, status, msg, apierrors.NewAuthError(msg))
	case status == http.StatusTooManyRequests:
		return apierrors.NewCompletionError(apierrors.KindRateLimit, status, msg, apierrors.NewUsageLimitError(msg))
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return apierrors.NewCompletionError(apierrors.KindTimeout, status, msg, apierrors.NewTimeoutError(msg))
	case status >= 500:
		return apierrors.NewCompletionError(apierrors.KindServer, status, msg, apierrors.NewAPIError(status, endpoint, msg))
	case status >= 400:
		return apierrors.NewCompletionError(apierrors.KindBadRequest, status, msg, apierrors.NewAPIError(status, endpoint, msg))
	default:
		return apierrors.NewCompletionError(apierrors.KindUnknown, status, msg, apierrors.NewAPIError(status, endpoint, msg))
	}
}
