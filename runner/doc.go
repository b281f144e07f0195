// Package runner hosts an agent on the topic log.
//
// A Runner owns the connection manager for the agent's inbound topic and one
// message monitor per active connection. Incoming payloads are dispatched by
// type:
//
//   - query: answered on a bounded worker pool through the configured
//     Answerer; a response carrying the same requestId is sent back. Queries
//     flagged with parameters.canHandle get a yes/no capability answer.
//   - close_connection: the connection is marked closed locally and its
//     monitor stopped.
//   - plain text: echoed back as {"type":"echo","original":...}.
//   - response, echo and unknown types: logged only; responses are consumed
//     by Ask through the response correlator.
//
// Structured payloads that cannot be decoded are skipped.
//
// Outbound, Connect initiates a connection to another agent and Ask sends a
// query and waits for the correlated response.
package runner
