package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseEnvelope_KnownTypes(t *testing.T) {
	cases := []struct {
		name string
		data any
		want PayloadType
		id   int64
	}{
		{"query", `{"type":"query","requestId":7,"question":"hi"}`, PayloadQuery, 7},
		{"response", `{"type":"response","requestId":8,"answer":"ok"}`, PayloadResponse, 8},
		{"decoded map", map[string]any{"type": "response", "requestId": float64(9)}, PayloadResponse, 9},
		{"int id", map[string]any{"type": "query", "requestId": 10}, PayloadQuery, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := ParseEnvelope(tc.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if env.Type != tc.want {
				t.Fatalf("type = %s, want %s", env.Type, tc.want)
			}
			if env.RequestID == nil || *env.RequestID != tc.id {
				t.Fatalf("request id = %v, want %d", env.RequestID, tc.id)
			}
			if !env.Matches(tc.want, tc.id) || env.Matches(tc.want, tc.id+1) {
				t.Fatalf("Matches disagrees with request id %d", tc.id)
			}
		})
	}
}

func TestParseEnvelope_UnknownTypeIsPreserved(t *testing.T) {
	env, err := ParseEnvelope(`{"type":"handoff","requestId":1.5}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Type != PayloadUnknown || env.RawType != "handoff" {
		t.Fatalf("unknown type not preserved: %+v", env)
	}
	if env.RequestID != nil {
		t.Fatalf("fractional request id must not be accepted")
	}

	env, err = ParseEnvelope(`{"answer":"no type"}`)
	if err != nil || env.Type != PayloadUnknown || env.RawType != "" {
		t.Fatalf("typeless object: env=%+v err=%v", env, err)
	}
}

func TestParseEnvelope_Malformed(t *testing.T) {
	for _, data := range []any{"plain text", `{"type":`, 42, nil} {
		if _, err := ParseEnvelope(data); !errors.Is(err, ErrMalformedEntry) {
			t.Fatalf("ParseEnvelope(%v) err = %v, want ErrMalformedEntry", data, err)
		}
	}
}

func TestEnvelope_Decode(t *testing.T) {
	raw, err := EncodePayload(NewQuery(3, "can you summarize?", QueryParameters{CanHandle: true, Agent: "summarizer"}))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env, err := ParseEnvelope(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q, err := env.Query()
	if err != nil {
		t.Fatalf("decode query: %v", err)
	}
	if q.RequestID != 3 || q.Question != "can you summarize?" || !q.Parameters.CanHandle || q.Parameters.Agent != "summarizer" {
		t.Fatalf("decoded query mismatch: %+v", q)
	}
	if _, err := env.Response(); !errors.Is(err, ErrMalformedEntry) {
		t.Fatalf("decoding a query as response should fail, got %v", err)
	}
}

func TestPayloadWireFormat(t *testing.T) {
	yes := true
	resp := NewResponse(5, "", "0.0.42")
	resp.CanHandle = &yes
	raw, err := EncodePayload(resp)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fields["type"] != "response" || fields["requestId"] != float64(5) || fields["canHandle"] != true || fields["replyTo"] != "0.0.42" {
		t.Fatalf("unexpected wire form: %s", raw)
	}
	if _, ok := fields["answer"]; ok {
		t.Fatalf("empty answer should be omitted: %s", raw)
	}

	closeRaw, _ := EncodePayload(NewCloseConnection("done", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	if closeRaw != `{"type":"close_connection","reason":"done","timestamp":"2025-01-01T00:00:00Z"}` {
		t.Fatalf("unexpected close payload: %s", closeRaw)
	}

	echoRaw, _ := EncodePayload(NewEcho("hello"))
	if echoRaw != `{"type":"echo","original":"hello"}` {
		t.Fatalf("unexpected echo payload: %s", echoRaw)
	}
}
