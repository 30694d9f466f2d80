package domain

import "errors"

var (
	// ErrSourceUnavailable covers network failures and 5xx answers from a provider.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrRateLimited is returned when a provider rejects the call for quota reasons.
	ErrRateLimited = errors.New("source rate limited")
	// ErrValidation marks a raw item that cannot be stored.
	ErrValidation = errors.New("validation failed")
	// ErrSummarizationFailed is any summarizer failure other than a timeout.
	ErrSummarizationFailed = errors.New("summarization failed")
	// ErrTimeout is returned when an external call exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrNotFound is returned for unknown article ids.
	ErrNotFound = errors.New("not found")
	// ErrNotClaimed means the article left the processing state before the result was persisted.
	ErrNotClaimed = errors.New("article is not claimed")
)

// IsTransient reports whether a fetch error should simply wait for the next trigger.
func IsTransient(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrRateLimited)
}
