package core

import "errors"

var (
	// ErrConnectionTimeout signals that a peer never confirmed a connection request
	// within the wait budget.
	ErrConnectionTimeout = errors.New("connection confirmation timed out")
	// ErrConnectionNotFound is returned by lookups that found no connection.
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrContentResolution wraps failures to resolve a large-content reference.
	ErrContentResolution = errors.New("large content resolution failed")
	// ErrMalformedEntry marks a payload that is not parseable where structure is required.
	ErrMalformedEntry = errors.New("malformed entry")
	// ErrTopicNotFound is returned by log backends for unknown topics.
	ErrTopicNotFound = errors.New("topic not found")
)
