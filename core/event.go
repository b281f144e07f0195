package core

import (
	"time"

	"github.com/google/uuid"
)

// ConnectionEstablished is emitted once per connection created by a manager,
// whether inbound (accepted request) or outbound (confirmed request).
type ConnectionEstablished struct {
	ID              string `json:"id"`
	TopicID         string `json:"topic_id"`
	TargetAccountID string `json:"target_account_id"`
}

// ConnectionClosed is emitted when a connection transitions to inactive.
type ConnectionClosed struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// MessageMeta carries provenance for a delivered message.
type MessageMeta struct {
	// IsLargeContent is true when the payload was resolved from a reference.
	IsLargeContent bool `json:"is_large_content"`
	// Memo is the entry memo, if any.
	Memo string `json:"memo,omitempty"`
	// Raw is the untouched log entry.
	Raw LogEntry `json:"raw"`
}

// Message is a normalized, content-resolved application message. Data holds
// either the decoded JSON value (map[string]any, []any) or the opaque text.
type Message struct {
	ID        int64       `json:"id"`
	Sender    string      `json:"sender"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
	Meta      MessageMeta `json:"meta"`
}

// Text returns Data as a string when the payload was opaque text.
func (m Message) Text() (string, bool) {
	s, ok := m.Data.(string)
	return s, ok
}

// IsStructured reports whether Data holds a decoded JSON value.
func (m Message) IsStructured() bool {
	switch m.Data.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

// Envelope decodes the message data into the payload tagged union.
func (m Message) Envelope() (Envelope, error) { return ParseEnvelope(m.Data) }

// NewID generates a new unique identifier.
//
// This function creates a UUID-based unique identifier that can be used
// for correlation and memo tagging throughout the module.
func NewID() string { return uuid.NewString() }
