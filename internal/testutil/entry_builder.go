package testutil

import (
	"encoding/json"
	"time"

	"github.com/hupe1980/topicmesh/core"
)

// Epoch is the base consensus timestamp used by EntryBuilder.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// At returns Epoch plus n seconds, handy for readable timestamps in tests.
func At(n int) time.Time { return Epoch.Add(time.Duration(n) * time.Second) }

// EntryBuilder provides a fluent helper for constructing log entries in tests.
// Example:
//
//	e := NewEntryBuilder().Seq(3).At(3).Operator("0.0.9@0.0.42").Message(`{"type":"query"}`).Build()
//
// Chain only the parts you need; the timestamp defaults to At(seq).
type EntryBuilder struct {
	entry core.LogEntry
	tsSet bool
}

// NewEntryBuilder creates a builder for a message entry from operator "0.0.1@0.0.100".
func NewEntryBuilder() *EntryBuilder {
	return &EntryBuilder{entry: core.LogEntry{Operation: core.OpMessage, OperatorID: "0.0.1@0.0.100"}}
}

// Seq sets the sequence number (chainable).
func (b *EntryBuilder) Seq(n int64) *EntryBuilder { b.entry.SequenceNumber = n; return b }

// At sets the consensus timestamp to At(n) (chainable).
func (b *EntryBuilder) At(n int) *EntryBuilder {
	b.entry.ConsensusTimestamp = At(n)
	b.tsSet = true
	return b
}

// Operator sets the operator id (chainable).
func (b *EntryBuilder) Operator(id string) *EntryBuilder { b.entry.OperatorID = id; return b }

// Memo sets the memo (chainable).
func (b *EntryBuilder) Memo(m string) *EntryBuilder { b.entry.Memo = m; return b }

// Op sets the operation kind (chainable).
func (b *EntryBuilder) Op(op core.OperationKind) *EntryBuilder { b.entry.Operation = op; return b }

// Message marks the entry as a message with the raw payload (chainable).
func (b *EntryBuilder) Message(payload string) *EntryBuilder {
	b.entry.Operation = core.OpMessage
	b.entry.Payload = payload
	return b
}

// JSON marks the entry as a message whose payload is v encoded as JSON (chainable).
func (b *EntryBuilder) JSON(v any) *EntryBuilder {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b.Message(string(raw))
}

// ConnectionRequest marks the entry as a connection request from account (chainable).
func (b *EntryBuilder) ConnectionRequest(account string) *EntryBuilder {
	b.entry.Operation = core.OpConnectionRequest
	b.entry.OperatorID = "0.0.1@" + account
	return b
}

// Build returns the entry.
func (b *EntryBuilder) Build() core.LogEntry {
	e := b.entry
	if !b.tsSet {
		e.ConsensusTimestamp = At(int(e.SequenceNumber))
	}
	return e
}

// Response returns a message entry carrying a response payload for requestID.
func Response(seq int64, requestID int64, answer string) core.LogEntry {
	return NewEntryBuilder().Seq(seq).JSON(core.NewResponse(requestID, answer, "")).Build()
}

// Request returns a connection_request entry from account at seq.
func Request(seq int64, account string) core.LogEntry {
	return NewEntryBuilder().Seq(seq).ConnectionRequest(account).Build()
}
