// Package ledger is a local implementation of the topic log that agents
// communicate over.
//
// A Store keeps append-only topics of core.LogEntry records. Sequence numbers
// start at 1 per topic and consensus timestamps strictly increase per topic,
// so a Store behaves like the remote consensus log the connection manager,
// message monitor and response correlator are written against. Two stores
// are provided: InMemoryStore for tests and single-process setups, and the
// Pebble-backed store in ledger/pebble for durable local deployments.
//
// Client binds a Store to one account and implements core.LogClient on top of
// it: message sending with out-of-band large content, content resolution and
// the connection handshake (request, accept, confirm).
package ledger
