package models

import "errors"

var (
	// ErrUsageLimitReached means the user's daily generation quota is spent.
	ErrUsageLimitReached = errors.New("daily generation limit reached")

	// ErrUsageStoreUnavailable means the usage counter backend could not be reached.
	ErrUsageStoreUnavailable = errors.New("usage store unavailable")

	// ErrModelGatewayUnavailable means both the primary and fallback model failed.
	ErrModelGatewayUnavailable = errors.New("model gateway unavailable")

	// ErrMalformedModelResponse means the model responded but no usable text
	// could be extracted.
	ErrMalformedModelResponse = errors.New("malformed model response")

	// ErrInsufficientContent means the sanitized text was too short to form a thread.
	ErrInsufficientContent = errors.New("insufficient content for a thread")

	// ErrUpstreamDataUnavailable means a market data source failed entirely.
	ErrUpstreamDataUnavailable = errors.New("upstream market data unavailable")
)
