package logging

import "time"

// Scoped narrows l to a component and topic when it is a StructuredLogger;
// other implementations are returned unchanged.
func Scoped(l Logger, component, topicID string) Logger {
	l = OrNoOp(l)
	if sl, ok := l.(*StructuredLogger); ok {
		return sl.WithComponent(component).WithTopic(topicID)
	}
	return l
}

// Poll reports a poll cycle on any Logger, using the structured helper when available.
func Poll(l Logger, topicID string, fetched, emitted int, dur time.Duration, err error) {
	if sl, ok := l.(*StructuredLogger); ok {
		sl.LogPoll(topicID, fetched, emitted, dur, err)
		return
	}
	if err != nil {
		l.Error("poll of topic %s failed after %s: %v", topicID, dur, err)
		return
	}
	l.Debug("poll of topic %s fetched=%d emitted=%d duration=%s", topicID, fetched, emitted, dur)
}

// Handshake reports a connection handshake on any Logger.
func Handshake(l Logger, connectionID, topicID, peer string, initiator bool, err error) {
	if sl, ok := l.(*StructuredLogger); ok {
		sl.LogHandshake(connectionID, topicID, peer, initiator, err)
		return
	}
	if err != nil {
		l.Error("connection handshake with %s failed: %v", peer, err)
		return
	}
	l.Info("Connection established: %s -> %s", connectionID, topicID)
}
