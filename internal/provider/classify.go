package provider

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/kapu/post-reactors/pkg/errors"
)

// messageRule maps provider error text to a kind. When allOf is set every substring
// must be present, otherwise one of anyOf is enough.
type messageRule struct {
	kind  errors.Kind
	allOf []string
	anyOf []string
}

// Checked top to bottom. The credential-length rule is the only one hoisted: its
// message always contains "session", so below the session rule it could never match.
var messageRules = []messageRule{
	{kind: errors.KindCredentialTooShort, allOf: []string{"sessionCookie", "must NOT have fewer than 15 characters"}},
	{kind: errors.KindSessionExpired, anyOf: []string{"session", "cookie", "authentication"}},
	{kind: errors.KindRateLimited, anyOf: []string{"rate limit", "too many"}},
	{kind: errors.KindConfigMalformed, anyOf: []string{"must have required property"}},
}

var userMessages = map[errors.Kind]string{
	errors.KindCredentialTooShort:      "LinkedIn session cookie is too short; copy the full li_at value",
	errors.KindConfigMalformed:         "Provider job configuration is missing a required argument",
	errors.KindSessionExpired:          "LinkedIn session expired; refresh the stored session cookie",
	errors.KindRateLimited:             "Provider rate limit reached; try again later",
	errors.KindProviderExecutionFailed: "Provider job failed",
	errors.KindAuthFailed:              "Provider rejected the API key",
	errors.KindJobNotFound:             "Provider job or container not found",
	errors.KindNetwork:                 "Could not reach the provider",
	errors.KindProvider:                "Unexpected provider response",
}

// outputErrorMarkers flag failures the provider reports inside a nominally successful output.
var outputErrorMarkers = []string{
	"Error:",
	"error:",
	"Can't connect",
	"failed",
	"Failed",
	"expired",
	"must have required property",
	"must NOT have fewer than",
}

func (r messageRule) matches(msg string) bool {
	if len(r.allOf) > 0 {
		for _, s := range r.allOf {
			if !strings.Contains(msg, s) {
				return false
			}
		}
		return true
	}
	for _, s := range r.anyOf {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// ClassifyMessage maps a provider error message to a kind. Matching is case-sensitive.
func ClassifyMessage(msg string) errors.Kind {
	for _, rule := range messageRules {
		if rule.matches(msg) {
			return rule.kind
		}
	}
	return errors.KindProviderExecutionFailed
}

// ClassifyStatus maps a non-2xx provider HTTP status to a kind.
func ClassifyStatus(status int) errors.Kind {
	switch status {
	case 401:
		return errors.KindAuthFailed
	case 429:
		return errors.KindRateLimited
	case 404:
		return errors.KindJobNotFound
	default:
		return errors.KindProvider
	}
}

// Classify prefers the message when present and falls back to the HTTP status.
// A zero status means none was available.
func Classify(msg string, status int) errors.Kind {
	if strings.TrimSpace(msg) != "" {
		return ClassifyMessage(msg)
	}
	if status > 0 {
		return ClassifyStatus(status)
	}
	return errors.KindProviderExecutionFailed
}

// UserMessage is the human-readable text shown for a provider kind.
func UserMessage(kind errors.Kind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return "Failed to scrape LinkedIn profiles"
}

// MessageError builds the error returned for a failure reported by the provider job itself.
// The raw message is kept as detail.
func MessageError(msg string) *errors.AppError {
	kind := ClassifyMessage(msg)
	return errors.New(kind, UserMessage(kind)).WithDetail(strings.TrimSpace(msg))
}

// StatusError builds the error for a non-2xx provider response.
func StatusError(status int, body string) *errors.AppError {
	kind := ClassifyStatus(status)
	return errors.NewProviderError(kind, UserMessage(kind), status, body).
		WithDetail(fmt.Sprintf("provider responded with HTTP %d", status))
}

// ClassifyTransport converts a failed request (no HTTP response) into an error.
// Context cancellation is kept distinct from network failures.
func ClassifyTransport(err error) *errors.AppError {
	if appErr, ok := errors.As(err); ok {
		return appErr
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.New(errors.KindInternal, "Provider request cancelled").WithCause(err)
	}

	var netErr net.Error
	var urlErr *url.Error
	var opErr *net.OpError
	switch {
	case stderrors.Is(err, context.DeadlineExceeded),
		stderrors.As(err, &netErr),
		stderrors.As(err, &urlErr),
		stderrors.As(err, &opErr):
		return errors.New(errors.KindNetwork, UserMessage(errors.KindNetwork)).
			WithDetail(err.Error()).
			WithCause(err)
	}
	return errors.New(errors.KindProvider, UserMessage(errors.KindProvider)).WithCause(err)
}

// ContainsErrorMarker reports whether an output string looks like a failure message.
func ContainsErrorMarker(s string) bool {
	for _, marker := range outputErrorMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
