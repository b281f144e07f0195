package core

import "testing"

func TestLogEntry_AccountID(t *testing.T) {
	cases := map[string]string{
		"0.0.1@0.0.42": "0.0.42",
		"a@b@0.0.7":    "0.0.7",
		"0.0.9":        "0.0.9",
		"0.0.1@":       "",
	}
	for op, want := range cases {
		if got := (LogEntry{OperatorID: op}).AccountID(); got != want {
			t.Fatalf("AccountID(%q) = %q, want %q", op, got, want)
		}
	}
}

func TestContentHelpers(t *testing.T) {
	if !IsLargeContentRef("hcs://1/0.0.5") || IsLargeContentRef("hcs://2/0.0.5") {
		t.Fatalf("IsLargeContentRef mismatch")
	}
	for s, want := range map[string]bool{`{"a":1}`: true, "[1]": true, "hello": false, " {}": false, "": false} {
		if LooksStructured(s) != want {
			t.Fatalf("LooksStructured(%q) != %v", s, want)
		}
	}
}

func TestMessage_Views(t *testing.T) {
	text := Message{Data: "hi"}
	if s, ok := text.Text(); !ok || s != "hi" || text.IsStructured() {
		t.Fatalf("text view mismatch")
	}
	structured := Message{Data: map[string]any{"type": "echo", "original": "x"}}
	if !structured.IsStructured() {
		t.Fatalf("map data should be structured")
	}
	env, err := structured.Envelope()
	if err != nil || env.Type != PayloadEcho {
		t.Fatalf("envelope: %+v %v", env, err)
	}
}

func TestObservers_EachUsesSnapshot(t *testing.T) {
	var obs Observers[MessageObserver]
	var got []string
	obs.Add(MessageObserverFuncs{Message: func(m Message) {
		got = append(got, "first")
		obs.Add(MessageObserverFuncs{Message: func(Message) { got = append(got, "late") }})
	}})
	obs.Each(func(o MessageObserver) { o.OnMessage(Message{}) })
	if len(got) != 1 || obs.Len() != 2 {
		t.Fatalf("snapshot violated: got=%v len=%d", got, obs.Len())
	}
	// nil funcs are ignored
	MessageObserverFuncs{}.OnError(nil)
	ConnectionObserverFuncs{}.OnConnectionClosed(ConnectionClosed{})
}

func TestNewID(t *testing.T) {
	if a, b := NewID(), NewID(); a == "" || a == b {
		t.Fatalf("ids must be unique: %q %q", a, b)
	}
}
