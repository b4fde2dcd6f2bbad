package domain

import "time"

// LogType is the display category of a terminal log line.
type LogType string

const (
	LogInfo      LogType = "info"
	LogSuccess   LogType = "success"
	LogError     LogType = "error"
	LogWarning   LogType = "warning"
	LogAPI       LogType = "api"
	LogOperation LogType = "operation"
)

// LogEntry is one line of the operation log mirrored to the web terminal.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      LogType   `json:"type"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
}
