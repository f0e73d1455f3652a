package model

import "time"

// Stream event types
const (
	StreamEventStatus    = "status"
	StreamEventProgress  = "progress"
	StreamEventUpdate    = "update"
	StreamEventComplete  = "complete"
	StreamEventHeartbeat = "heartbeat"
	StreamEventError     = "error"
)

// StreamEvent is one line-delimited JSON payload on a video's event stream.
// Data is set for status/update/complete, Progress and Message for progress,
// Message alone for error. Timestamp orders events and drives deduplication.
type StreamEvent struct {
	Type      string    `json:"type"`
	Data      *Video    `json:"data,omitempty"`
	Progress  int       `json:"progress,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// IsTerminal reports whether the stream closes after this event.
func (e *StreamEvent) IsTerminal() bool {
	return e.Type == StreamEventComplete || e.Type == StreamEventError
}
