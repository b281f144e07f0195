package core

import "time"

// ConnectionMetadata records how a connection came into existence.
type ConnectionMetadata struct {
	// Initiator is true when this side sent the connection request.
	Initiator bool `json:"initiator"`
	// CreatedAt is the local time the connection was recorded.
	CreatedAt time.Time `json:"created_at"`
	// RequestID is the sequence number of the originating connection_request entry.
	RequestID int64 `json:"request_id"`
}

// Connection is a dedicated topic shared with one peer. Connections are never
// removed from their manager; closing only flips IsActive.
type Connection struct {
	ID                string             `json:"id"`
	ConnectionTopicID string             `json:"connection_topic_id"`
	TargetAccountID   string             `json:"target_account_id"`
	IsActive          bool               `json:"is_active"`
	LastActivity      time.Time          `json:"last_activity"`
	Metadata          ConnectionMetadata `json:"metadata"`
}

// Established converts the connection into its lifecycle event form.
func (c Connection) Established() ConnectionEstablished {
	return ConnectionEstablished{ID: c.ID, TopicID: c.ConnectionTopicID, TargetAccountID: c.TargetAccountID}
}
