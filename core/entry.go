package core

import (
	"strings"
	"time"
)

// OperationKind tags what a log entry represents on its topic.
type OperationKind string

const (
	// OpConnectionRequest is appended to an inbound topic by a peer asking to connect.
	OpConnectionRequest OperationKind = "connection_request"
	// OpConnectionCreated is appended to an inbound topic when a request was accepted.
	OpConnectionCreated OperationKind = "connection_created"
	// OpMessage carries an application payload on a connection topic.
	OpMessage OperationKind = "message"
	// OpCloseConnection marks a connection as closed by its sender.
	OpCloseConnection OperationKind = "close_connection"
	// OpChunk is one slice of out-of-band large content.
	OpChunk OperationKind = "chunk"
)

// LogEntry is a single record of a topic as returned by the log service.
// Entries are owned by the log and must be treated as read-only.
type LogEntry struct {
	SequenceNumber     int64         `json:"sequence_number" msgpack:"seq"`
	ConsensusTimestamp time.Time     `json:"consensus_timestamp" msgpack:"ts"`
	OperatorID         string        `json:"operator_id" msgpack:"op_id"`
	Operation          OperationKind `json:"op" msgpack:"op"`
	Payload            string        `json:"data" msgpack:"data"`
	Memo               string        `json:"m,omitempty" msgpack:"m,omitempty"`
}

// AccountID returns the account part of OperatorID (format <prefix>@<accountId>).
// An operator id without '@' is returned unchanged.
func (e LogEntry) AccountID() string {
	if i := strings.LastIndexByte(e.OperatorID, '@'); i >= 0 {
		return e.OperatorID[i+1:]
	}
	return e.OperatorID
}

// LargeContentPrefix is the reserved scheme marking a payload that references
// content stored out-of-band.
const LargeContentPrefix = "hcs://1/"

// IsLargeContentRef reports whether payload is a large-content reference.
func IsLargeContentRef(payload string) bool {
	return strings.HasPrefix(payload, LargeContentPrefix)
}

// LooksStructured reports whether s textually looks like a JSON object or array.
func LooksStructured(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}
