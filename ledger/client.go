package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/topicmesh/core"
	"github.com/hupe1980/topicmesh/logging"
)

const (
	// DefaultLargeContentThreshold is the payload size above which Send moves
	// content out-of-band.
	DefaultLargeContentThreshold = 1024
	// DefaultChunkSize is the size of a single chunk entry.
	DefaultChunkSize = 1024
)

// ConnectionCreated is the payload of the confirmation appended to an
// inbound topic when a connection request was accepted.
type ConnectionCreated struct {
	ConnectionTopicID  string `json:"connection_topic_id"`
	ConnectedAccountID string `json:"connected_account_id"`
	ConnectionID       int64  `json:"connection_id"`
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// InboundTopicID binds the client to an existing inbound topic.
	InboundTopicID string
	// LargeContentThreshold defaults to DefaultLargeContentThreshold.
	LargeContentThreshold int
	// ChunkSize defaults to DefaultChunkSize.
	ChunkSize int
	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
}

// Client is the log client of one account. It implements core.LogClient.
type Client struct {
	store     Store
	accountID string
	threshold int
	chunkSize int
	logger    logging.Logger

	mu             sync.RWMutex
	inboundTopicID string
}

// NewClient binds store to accountID.
func NewClient(store Store, accountID string, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		LargeContentThreshold: DefaultLargeContentThreshold,
		ChunkSize:             DefaultChunkSize,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	return &Client{
		store:          store,
		accountID:      accountID,
		threshold:      opts.LargeContentThreshold,
		chunkSize:      opts.ChunkSize,
		logger:         logging.Scoped(opts.Logger, "ledger", accountID),
		inboundTopicID: opts.InboundTopicID,
	}
}

// AccountID returns the account the client acts for.
func (c *Client) AccountID() string { return c.accountID }

// InboundTopicID returns the inbound topic, empty until one was created or bound.
func (c *Client) InboundTopicID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inboundTopicID
}

// OperatorID identifies entries written by this client as <inboundTopic>@<account>.
func (c *Client) OperatorID() string { return c.InboundTopicID() + "@" + c.accountID }

// CreateInboundTopic allocates the account's inbound topic and binds it.
func (c *Client) CreateInboundTopic(ctx context.Context) (string, error) {
	id, err := c.store.CreateTopic(ctx, "hcs-10:0:60:0:"+c.accountID)
	if err != nil {
		return "", fmt.Errorf("create inbound topic: %w", err)
	}

	c.mu.Lock()
	c.inboundTopicID = id
	c.mu.Unlock()

	c.logger.Info("Created inbound topic %s for %s", id, c.accountID)

	return id, nil
}

// CreateTopic allocates a plain topic.
func (c *Client) CreateTopic(ctx context.Context, memo string) (string, error) {
	return c.store.CreateTopic(ctx, memo)
}

// FetchMessages implements core.Fetcher.
func (c *Client) FetchMessages(ctx context.Context, topicID string) ([]core.LogEntry, error) {
	return c.store.Entries(ctx, topicID)
}

// Send implements core.Sender. Payloads larger than the threshold are
// written as chunks to a fresh content topic and replaced by a reference.
func (c *Client) Send(ctx context.Context, topicID, payload, memo string) (core.Receipt, error) {
	if c.threshold > 0 && len(payload) > c.threshold {
		ref, err := c.storeLargeContent(ctx, payload)
		if err != nil {
			return core.Receipt{}, err
		}
		payload = ref
	}

	e, err := c.store.Append(ctx, topicID, Record{
		Operation:  core.OpMessage,
		OperatorID: c.OperatorID(),
		Payload:    payload,
		Memo:       memo,
	})
	if err != nil {
		return core.Receipt{}, fmt.Errorf("send to %s: %w", topicID, err)
	}

	return core.Receipt{TopicID: topicID, SequenceNumber: e.SequenceNumber, ConsensusTimestamp: e.ConsensusTimestamp}, nil
}

func (c *Client) storeLargeContent(ctx context.Context, content string) (string, error) {
	topicID, err := c.store.CreateTopic(ctx, "hcs-1:"+c.accountID)
	if err != nil {
		return "", fmt.Errorf("create content topic: %w", err)
	}

	for start := 0; start < len(content); start += c.chunkSize {
		end := min(start+c.chunkSize, len(content))
		if _, err := c.store.Append(ctx, topicID, Record{
			Operation:  core.OpChunk,
			OperatorID: c.OperatorID(),
			Payload:    content[start:end],
		}); err != nil {
			return "", fmt.Errorf("write chunk to %s: %w", topicID, err)
		}
	}

	c.logger.Debug("Stored %d bytes of large content on %s", len(content), topicID)

	return core.LargeContentPrefix + topicID, nil
}

// ResolveLargeContent implements core.Resolver.
func (c *Client) ResolveLargeContent(ctx context.Context, ref string) (string, error) {
	if !core.IsLargeContentRef(ref) {
		return "", fmt.Errorf("%w: not a content reference: %q", core.ErrContentResolution, ref)
	}

	topicID := strings.TrimPrefix(ref, core.LargeContentPrefix)
	entries, err := c.store.Entries(ctx, topicID)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", core.ErrContentResolution, ref, err)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].SequenceNumber < entries[j].SequenceNumber })

	var (
		b      strings.Builder
		chunks int
	)
	for _, e := range entries {
		if e.Operation == core.OpChunk {
			b.WriteString(e.Payload)
			chunks++
		}
	}
	if chunks == 0 {
		return "", fmt.Errorf("%w: %s holds no content", core.ErrContentResolution, ref)
	}

	return b.String(), nil
}

// RequestConnection implements core.Handshaker.
func (c *Client) RequestConnection(ctx context.Context, targetInboundTopicID, memo string) (int64, error) {
	payload, err := json.Marshal(map[string]string{"operator_id": c.OperatorID()})
	if err != nil {
		return 0, err
	}

	e, err := c.store.Append(ctx, targetInboundTopicID, Record{
		Operation:  core.OpConnectionRequest,
		OperatorID: c.OperatorID(),
		Payload:    string(payload),
		Memo:       memo,
	})
	if err != nil {
		return 0, fmt.Errorf("append connection request: %w", err)
	}

	return e.SequenceNumber, nil
}

// AwaitConfirmation implements core.Handshaker.
func (c *Client) AwaitConfirmation(ctx context.Context, targetInboundTopicID string, requestID int64, maxAttempts int, interval time.Duration) (core.Confirmation, error) {
	budget := core.NewAttemptBudget(maxAttempts)

	for budget.Take() == nil {
		entries, err := c.store.Entries(ctx, targetInboundTopicID)
		if err != nil && !errors.Is(err, core.ErrTopicNotFound) {
			c.logger.Warn("Fetching %s for confirmation failed: %v", targetInboundTopicID, err)
		}

		for _, e := range entries {
			if e.Operation != core.OpConnectionCreated {
				continue
			}
			var created ConnectionCreated
			if err := json.Unmarshal([]byte(e.Payload), &created); err != nil {
				continue
			}
			if created.ConnectionID == requestID {
				return core.Confirmation{ConnectionTopicID: created.ConnectionTopicID, TargetAccountID: e.AccountID()}, nil
			}
		}

		if budget.Last() {
			break
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return core.Confirmation{}, ctx.Err()
		case <-t.C:
		}
	}

	return core.Confirmation{}, fmt.Errorf("%w: request %d on %s after %d attempts",
		core.ErrConnectionTimeout, requestID, targetInboundTopicID, budget.Used())
}

// AcceptConnectionRequest implements core.Handshaker.
func (c *Client) AcceptConnectionRequest(ctx context.Context, inboundTopicID, peerAccountID string, requestSequenceNumber int64) (core.Acceptance, error) {
	topicID, err := c.store.CreateTopic(ctx, "hcs-10:1:60:1:"+inboundTopicID+":"+strconv.FormatInt(requestSequenceNumber, 10))
	if err != nil {
		return core.Acceptance{}, fmt.Errorf("create connection topic: %w", err)
	}

	payload, err := json.Marshal(ConnectionCreated{
		ConnectionTopicID:  topicID,
		ConnectedAccountID: peerAccountID,
		ConnectionID:       requestSequenceNumber,
	})
	if err != nil {
		return core.Acceptance{}, err
	}

	if _, err := c.store.Append(ctx, inboundTopicID, Record{
		Operation:  core.OpConnectionCreated,
		OperatorID: c.OperatorID(),
		Payload:    string(payload),
		Memo:       "Connection created",
	}); err != nil {
		return core.Acceptance{}, fmt.Errorf("confirm connection request %d: %w", requestSequenceNumber, err)
	}

	return core.Acceptance{ConnectionTopicID: topicID}, nil
}

// RestoreConnections rebuilds the connections this client accepted on
// inboundTopicID from its own connection_created entries, so a restarted
// manager does not accept the same requests again. Repeated confirmations of
// one request keep the first. A connection whose topic carries a
// close_connection message is restored inactive; LastActivity is the
// timestamp of the topic's last entry.
func (c *Client) RestoreConnections(ctx context.Context, inboundTopicID string) ([]core.Connection, error) {
	entries, err := c.store.Entries(ctx, inboundTopicID)
	if err != nil {
		return nil, fmt.Errorf("restore connections of %s: %w", inboundTopicID, err)
	}

	var (
		conns    []core.Connection
		restored = map[int64]bool{}
	)

	for _, e := range entries {
		if e.Operation != core.OpConnectionCreated || e.AccountID() != c.accountID {
			continue
		}
		var created ConnectionCreated
		if err := json.Unmarshal([]byte(e.Payload), &created); err != nil || restored[created.ConnectionID] {
			continue
		}
		restored[created.ConnectionID] = true

		conn := core.Connection{
			ID:                fmt.Sprintf("conn-%d-%d", e.ConsensusTimestamp.UnixMilli(), created.ConnectionID),
			ConnectionTopicID: created.ConnectionTopicID,
			TargetAccountID:   created.ConnectedAccountID,
			IsActive:          true,
			LastActivity:      e.ConsensusTimestamp,
			Metadata: core.ConnectionMetadata{
				CreatedAt: e.ConsensusTimestamp,
				RequestID: created.ConnectionID,
			},
		}

		msgs, err := c.store.Entries(ctx, created.ConnectionTopicID)
		if err != nil {
			return nil, fmt.Errorf("restore connection %d: %w", created.ConnectionID, err)
		}
		for _, m := range msgs {
			if m.ConsensusTimestamp.After(conn.LastActivity) {
				conn.LastActivity = m.ConsensusTimestamp
			}
			if m.Operation != core.OpMessage {
				continue
			}
			if env, err := core.ParseEnvelope(m.Payload); err == nil && env.Type == core.PayloadCloseConnection {
				conn.IsActive = false
			}
		}

		conns = append(conns, conn)
	}

	c.logger.Info("Restored %d connection(s) from %s", len(conns), inboundTopicID)

	return conns, nil
}

var _ core.LogClient = (*Client)(nil)
