// Package logging provides a minimal logging interface and adapters for topicmesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// used by the connection manager, message monitors, the correlator and the
// ledger. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - StructuredLogger with component/topic context and poll helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	mgr := connection.New(client, inbound, func(o *connection.Options) { o.Logger = logger })
package logging
