package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/topicmesh/core"
)

// SentMessage records a Send call.
type SentMessage struct {
	TopicID string
	Payload string
	Memo    string
}

// AcceptCall records an AcceptConnectionRequest call.
type AcceptCall struct {
	InboundTopicID string
	PeerAccountID  string
	RequestSeq     int64
}

// FakeClient is a scripted core.LogClient. Fetches for a topic return the
// scripted batches in order and keep returning the last batch afterwards.
// It is safe for concurrent use.
type FakeClient struct {
	mu sync.Mutex

	scripts    map[string][][]core.LogEntry
	fetchErrs  map[string]map[int]error
	fetchCalls map[string]int

	// Resolved maps large-content references to content.
	Resolved map[string]string
	// SendErr, when set, fails every Send.
	SendErr error
	// RequestSeq is returned by RequestConnection.
	RequestSeq int64
	// RequestErr fails RequestConnection.
	RequestErr error
	// Confirmation is returned by AwaitConfirmation unless ConfirmErr is set.
	Confirmation core.Confirmation
	ConfirmErr   error
	// AcceptErr maps request sequence numbers to acceptance failures.
	AcceptErr map[int64]error

	sent     []SentMessage
	accepted []AcceptCall
	resolves int
}

// NewFakeClient creates an empty fake.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		scripts:    map[string][][]core.LogEntry{},
		fetchErrs:  map[string]map[int]error{},
		fetchCalls: map[string]int{},
		Resolved:   map[string]string{},
		AcceptErr:  map[int64]error{},
	}
}

// Script appends fetch results for topicID, one batch per FetchMessages call.
func (f *FakeClient) Script(topicID string, batches ...[]core.LogEntry) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[topicID] = append(f.scripts[topicID], batches...)
	return f
}

// FailFetch makes the call-th (zero based) fetch of topicID fail with err.
func (f *FakeClient) FailFetch(topicID string, call int, err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErrs[topicID] == nil {
		f.fetchErrs[topicID] = map[int]error{}
	}
	f.fetchErrs[topicID][call] = err
	return f
}

// FetchCalls returns how many times topicID was fetched.
func (f *FakeClient) FetchCalls(topicID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls[topicID]
}

// Sent returns a copy of all Send calls.
func (f *FakeClient) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage(nil), f.sent...)
}

// Accepted returns a copy of all AcceptConnectionRequest calls.
func (f *FakeClient) Accepted() []AcceptCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AcceptCall(nil), f.accepted...)
}

// Resolves returns how many references were resolved.
func (f *FakeClient) Resolves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolves
}

// FetchMessages implements core.Fetcher.
func (f *FakeClient) FetchMessages(_ context.Context, topicID string) ([]core.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.fetchCalls[topicID]
	f.fetchCalls[topicID]++
	if err, ok := f.fetchErrs[topicID][call]; ok {
		return nil, err
	}
	script := f.scripts[topicID]
	if len(script) == 0 {
		return nil, nil
	}
	if call >= len(script) {
		call = len(script) - 1
	}
	return append([]core.LogEntry(nil), script[call]...), nil
}

// Send implements core.Sender.
func (f *FakeClient) Send(_ context.Context, topicID, payload, memo string) (core.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return core.Receipt{}, f.SendErr
	}
	f.sent = append(f.sent, SentMessage{TopicID: topicID, Payload: payload, Memo: memo})
	return core.Receipt{TopicID: topicID, SequenceNumber: int64(len(f.sent)), ConsensusTimestamp: time.Now()}, nil
}

// ResolveLargeContent implements core.Resolver.
func (f *FakeClient) ResolveLargeContent(_ context.Context, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves++
	content, ok := f.Resolved[ref]
	if !ok {
		return "", fmt.Errorf("%w: %s", core.ErrTopicNotFound, ref)
	}
	return content, nil
}

// RequestConnection implements core.Handshaker.
func (f *FakeClient) RequestConnection(context.Context, string, string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.RequestSeq, f.RequestErr
}

// AwaitConfirmation implements core.Handshaker.
func (f *FakeClient) AwaitConfirmation(context.Context, string, int64, int, time.Duration) (core.Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfirmErr != nil {
		return core.Confirmation{}, f.ConfirmErr
	}
	return f.Confirmation, nil
}

// AcceptConnectionRequest implements core.Handshaker. The connection topic is
// derived from the request sequence number ("conn-topic-<seq>").
func (f *FakeClient) AcceptConnectionRequest(_ context.Context, inbound, peer string, seq int64) (core.Acceptance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted = append(f.accepted, AcceptCall{InboundTopicID: inbound, PeerAccountID: peer, RequestSeq: seq})
	if err, ok := f.AcceptErr[seq]; ok {
		return core.Acceptance{}, err
	}
	return core.Acceptance{ConnectionTopicID: fmt.Sprintf("conn-topic-%d", seq)}, nil
}

var _ core.LogClient = (*FakeClient)(nil)
