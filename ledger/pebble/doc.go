// Package pebblestore provides a durable ledger.Store backed by Pebble.
//
// Keyspace (byte-wise, lexicographically sortable):
//
//	g/topics                 last allocated topic number (be8)
//	t/{topic}/m              topic metadata (msgpack)
//	t/{topic}/e/{seq_be8}    log entry (msgpack)
//
// Each append writes the entry and the updated topic metadata in one batch.
package pebblestore
