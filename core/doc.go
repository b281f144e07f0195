// Package core provides the foundational domain types and interfaces shared by
// the topicmesh packages. It defines:
//
//   - Log entries (the read-only records of an append-only, polled topic)
//   - Connections (dedicated topics established between two agents)
//   - Events surfaced to application code (connection lifecycle, messages)
//   - Observer interfaces replacing ad-hoc callback registration
//   - The log client contract consumed by the connection manager, message
//     monitor and response correlator
//   - Payload envelopes exchanged on connection topics (query, response,
//     close_connection, echo and an explicit unknown variant)
//   - Watermark and seen-set primitives for idempotent consumption
//
// The package keeps transport and persistence concerns out of scope, exposing
// small interfaces so any ledger backend can be plugged in.
package core
