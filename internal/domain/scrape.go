package domain

import (
	"encoding/json"
	"time"
)

// ScrapeRequest is built once per orchestration.
type ScrapeRequest struct {
	PostURL           string
	ProjectID         int64
	SessionCredential string
}

// Job identifies one in-flight provider execution.
type Job struct {
	ContainerID string    `json:"containerId"`
	LaunchedAt  time.Time `json:"launchedAt"`
}

// OutcomeKind tags a PollOutcome.
type OutcomeKind string

const (
	OutcomePending       OutcomeKind = "pending"
	OutcomeProviderError OutcomeKind = "provider_error"
	OutcomeCompleted     OutcomeKind = "completed"
)

// PollOutcome is the classification of one poll attempt.
// Message is set for OutcomeProviderError, RawOutput for OutcomeCompleted.
type PollOutcome struct {
	Kind      OutcomeKind
	Message   string
	RawOutput json.RawMessage
}

func Pending() PollOutcome {
	return PollOutcome{Kind: OutcomePending}
}

func ProviderFailure(message string) PollOutcome {
	return PollOutcome{Kind: OutcomeProviderError, Message: message}
}

func Completed(raw json.RawMessage) PollOutcome {
	return PollOutcome{Kind: OutcomeCompleted, RawOutput: raw}
}

// IsTerminal reports whether polling should stop after this outcome.
func (o PollOutcome) IsTerminal() bool {
	return o.Kind != OutcomePending
}

// ScrapeResult is returned to the caller of a successful orchestration.
type ScrapeResult struct {
	PostID      int64           `json:"postId"`
	ProjectID   int64           `json:"projectId"`
	PostURL     string          `json:"postUrl"`
	ContainerID string          `json:"containerId"`
	Profiles    []ProfileRecord `json:"profiles"`
	Attempts    int             `json:"attempts"`
	Elapsed     time.Duration   `json:"elapsed"`
}
