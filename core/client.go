package core

import (
	"context"
	"time"
)

// Receipt acknowledges an appended entry.
type Receipt struct {
	TopicID            string    `json:"topic_id"`
	SequenceNumber     int64     `json:"sequence_number"`
	ConsensusTimestamp time.Time `json:"consensus_timestamp"`
}

// Confirmation is returned once a peer accepted an outbound connection request.
type Confirmation struct {
	ConnectionTopicID string `json:"connection_topic_id"`
	TargetAccountID   string `json:"target_account_id"`
}

// Acceptance is returned after accepting an inbound connection request.
type Acceptance struct {
	ConnectionTopicID string `json:"connection_topic_id"`
}

// Fetcher reads the full visible log of a topic. Implementations must return
// every entry available since topic creation; callers filter, sort and
// deduplicate themselves.
type Fetcher interface {
	FetchMessages(ctx context.Context, topicID string) ([]LogEntry, error)
}

// Sender appends an application payload to a topic.
type Sender interface {
	Send(ctx context.Context, topicID, payload, memo string) (Receipt, error)
}

// Resolver resolves a large-content reference (see LargeContentPrefix).
type Resolver interface {
	ResolveLargeContent(ctx context.Context, ref string) (string, error)
}

// Handshaker provides the connection handshake primitives of the log service.
type Handshaker interface {
	// RequestConnection appends a connection request to a peer's inbound topic
	// and returns its sequence number, which serves as the request id.
	RequestConnection(ctx context.Context, targetInboundTopicID, memo string) (int64, error)
	// AwaitConfirmation polls the peer's inbound topic until the request is
	// confirmed or maxAttempts polls spaced by interval were made. Exhausting
	// the budget yields an error wrapping ErrConnectionTimeout.
	AwaitConfirmation(ctx context.Context, targetInboundTopicID string, requestID int64, maxAttempts int, interval time.Duration) (Confirmation, error)
	// AcceptConnectionRequest materializes the shared connection topic for an
	// inbound request and confirms it on the inbound topic.
	AcceptConnectionRequest(ctx context.Context, inboundTopicID, peerAccountID string, requestSequenceNumber int64) (Acceptance, error)
}

// LogClient is the complete contract consumed by the connection manager.
type LogClient interface {
	Fetcher
	Sender
	Resolver
	Handshaker
}
