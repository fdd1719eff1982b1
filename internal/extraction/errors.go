package extraction

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an extraction failure so callers can map it to transport
// semantics without string matching.
type Kind int

const (
	KindUpstream Kind = iota // unclassified provider or transport failure
	KindInvalidInput
	KindNoText
	KindPolicyViolation
	KindTimeout
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNoText:
		return "no_text"
	case KindPolicyViolation:
		return "policy_violation"
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "upstream"
	}
}

// HTTPStatus maps the kind to the status the handler responds with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput, KindNoText, KindPolicyViolation:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusRequestTimeout
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified extraction failure. Message is safe to surface to
// clients; the wrapped cause is not.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// classifyProviderError buckets a provider failure into timeout, policy
// violation, or generic upstream. Provider SDKs do not expose stable error
// types for these conditions, so detection falls back to well-known
// substrings.
func classifyProviderError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, "the extraction request timed out", err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return newError(KindTimeout, "the extraction request timed out", err)
	case strings.Contains(msg, "content policy") ||
		strings.Contains(msg, "content management policy") ||
		strings.Contains(msg, "safety"):
		return newError(KindPolicyViolation, "the image was rejected by the model's content policy", err)
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return newError(KindRateLimited, "the model provider rate limited the request", err)
	}
	return newError(KindUpstream, "text extraction failed", err)
}
