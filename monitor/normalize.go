package monitor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/topicmesh/core"
)

// Resolve returns the entry payload with a large-content reference replaced
// by the referenced content. The boolean reports whether a reference was
// resolved.
func Resolve(ctx context.Context, resolver core.Resolver, e core.LogEntry) (string, bool, error) {
	if !core.IsLargeContentRef(e.Payload) {
		return e.Payload, false, nil
	}
	content, err := resolver.ResolveLargeContent(ctx, e.Payload)
	if err != nil {
		return "", true, fmt.Errorf("%w: %s: %v", core.ErrContentResolution, e.Payload, err)
	}
	return content, true, nil
}

// Decode parses s as JSON when it looks like an object or array. Text that
// does not look structured, or fails to parse, is returned unchanged.
func Decode(s string) any {
	if !core.LooksStructured(s) {
		return s
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// Normalize resolves and decodes a message entry.
func Normalize(ctx context.Context, resolver core.Resolver, e core.LogEntry) (core.Message, error) {
	payload, large, err := Resolve(ctx, resolver, e)
	if err != nil {
		return core.Message{}, err
	}
	return core.Message{
		ID:        e.SequenceNumber,
		Sender:    e.OperatorID,
		Timestamp: e.ConsensusTimestamp,
		Data:      Decode(payload),
		Meta: core.MessageMeta{
			IsLargeContent: large,
			Memo:           e.Memo,
			Raw:            e,
		},
	}, nil
}
