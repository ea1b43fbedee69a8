package services

import "errors"

// Sentinel errors shared by all upstream providers. Callers classify
// provider failures with errors.Is against these.
var (
	// ErrRateLimited means the provider refused the request because the
	// API quota is exhausted. Alpha Vantage signals this with a 200 body
	// carrying a "Note" or "Information" field.
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrUpstreamUnavailable covers network failures, 5xx responses, and
	// open circuit breakers.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")

	// ErrInvalidPayload means the provider answered but the payload is
	// unusable for the requested symbol, typically an unknown ticker.
	// Not worth retrying.
	ErrInvalidPayload = errors.New("provider returned no usable data for symbol")

	// ErrNotConfigured means the provider has no API key and can not be
	// used at all.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrNoUsableData means every provider in the chain was tried and none
	// produced data the caller could serve.
	ErrNoUsableData = errors.New("no provider returned usable data")
)
