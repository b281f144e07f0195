package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// PayloadType tags the structured payloads exchanged on connection topics.
type PayloadType string

const (
	PayloadQuery           PayloadType = "query"
	PayloadResponse        PayloadType = "response"
	PayloadCloseConnection PayloadType = "close_connection"
	PayloadEcho            PayloadType = "echo"
	// PayloadUnknown marks a structured payload whose type is not recognized.
	PayloadUnknown PayloadType = "unknown"
)

// Envelope is the decoded, tagged view of a structured payload. Unknown types
// are preserved in RawType instead of being dropped.
type Envelope struct {
	Type      PayloadType
	RawType   string
	RequestID *int64
	Fields    map[string]any
	raw       []byte
}

// ParseEnvelope decodes data (a JSON string or an already decoded JSON object)
// into an Envelope. Anything else yields ErrMalformedEntry.
func ParseEnvelope(data any) (Envelope, error) {
	var (
		fields map[string]any
		raw    []byte
	)
	switch v := data.(type) {
	case string:
		if !LooksStructured(v) {
			return Envelope{}, fmt.Errorf("%w: payload is not a JSON object", ErrMalformedEntry)
		}
		raw = []byte(v)
		if err := json.Unmarshal(raw, &fields); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
		}
	case map[string]any:
		fields = v
		b, err := json.Marshal(v)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
		}
		raw = b
	default:
		return Envelope{}, fmt.Errorf("%w: unexpected payload type %T", ErrMalformedEntry, data)
	}

	env := Envelope{Type: PayloadUnknown, Fields: fields, raw: raw}
	if t, ok := fields["type"].(string); ok {
		env.RawType = t
		switch PayloadType(t) {
		case PayloadQuery, PayloadResponse, PayloadCloseConnection, PayloadEcho:
			env.Type = PayloadType(t)
		}
	}
	if id, ok := numericID(fields["requestId"]); ok {
		env.RequestID = &id
	}
	return env, nil
}

// Matches reports whether the envelope carries type t and, for correlated types, requestID.
func (e Envelope) Matches(t PayloadType, requestID int64) bool {
	return e.Type == t && e.RequestID != nil && *e.RequestID == requestID
}

// Query decodes the envelope as a query payload.
func (e Envelope) Query() (Query, error) {
	var q Query
	return q, e.decode(PayloadQuery, &q)
}

// Response decodes the envelope as a response payload.
func (e Envelope) Response() (Response, error) {
	var r Response
	return r, e.decode(PayloadResponse, &r)
}

// CloseConnection decodes the envelope as a close notification.
func (e Envelope) CloseConnection() (CloseConnection, error) {
	var c CloseConnection
	return c, e.decode(PayloadCloseConnection, &c)
}

func (e Envelope) decode(want PayloadType, v any) error {
	if e.Type != want {
		return fmt.Errorf("%w: expected %s payload, got %q", ErrMalformedEntry, want, e.RawType)
	}
	if err := json.Unmarshal(e.raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}
	return nil
}

func numericID(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// QueryParameters qualifies a query.
type QueryParameters struct {
	// CanHandle asks the peer for a plain yes/no capability answer.
	CanHandle bool   `json:"canHandle,omitempty"`
	Agent     string `json:"agent,omitempty"`
}

// Query asks a peer a question; the reply must carry the same RequestID.
type Query struct {
	Type       PayloadType     `json:"type"`
	RequestID  int64           `json:"requestId"`
	Question   string          `json:"question"`
	Parameters QueryParameters `json:"parameters"`
}

// NewQuery builds a query payload.
func NewQuery(requestID int64, question string, params QueryParameters) Query {
	return Query{Type: PayloadQuery, RequestID: requestID, Question: question, Parameters: params}
}

// Response answers a Query.
type Response struct {
	Type      PayloadType `json:"type"`
	RequestID int64       `json:"requestId"`
	CanHandle *bool       `json:"canHandle,omitempty"`
	Answer    string      `json:"answer,omitempty"`
	ReplyTo   string      `json:"replyTo,omitempty"`
}

// NewResponse builds a response payload correlated to requestID.
func NewResponse(requestID int64, answer, replyTo string) Response {
	return Response{Type: PayloadResponse, RequestID: requestID, Answer: answer, ReplyTo: replyTo}
}

// CloseConnection notifies the peer that a connection is closed.
type CloseConnection struct {
	Type      PayloadType `json:"type"`
	Reason    string      `json:"reason"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewCloseConnection builds a close notification.
func NewCloseConnection(reason string, at time.Time) CloseConnection {
	return CloseConnection{Type: PayloadCloseConnection, Reason: reason, Timestamp: at.UTC()}
}

// Echo mirrors an unstructured message back to its sender.
type Echo struct {
	Type     PayloadType `json:"type"`
	Original any         `json:"original"`
}

// NewEcho builds an echo payload.
func NewEcho(original any) Echo { return Echo{Type: PayloadEcho, Original: original} }

// EncodePayload renders v as the JSON text sent on a topic.
func EncodePayload(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(b), nil
}
