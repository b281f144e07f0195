package core

import "sync"

// ConnectionObserver receives connection lifecycle events from a manager.
// Callbacks run on the manager's poll goroutine (or the caller's goroutine
// for initiate/close) and must not block for long.
type ConnectionObserver interface {
	OnConnectionEstablished(ev ConnectionEstablished)
	OnConnectionClosed(ev ConnectionClosed)
	OnError(err error)
}

// MessageObserver receives normalized messages from a monitor.
type MessageObserver interface {
	OnMessage(msg Message)
	OnError(err error)
}

// ConnectionObserverFuncs adapts plain functions to ConnectionObserver. Nil
// fields are ignored.
type ConnectionObserverFuncs struct {
	Established func(ev ConnectionEstablished)
	Closed      func(ev ConnectionClosed)
	Error       func(err error)
}

// OnConnectionEstablished implements ConnectionObserver.
func (f ConnectionObserverFuncs) OnConnectionEstablished(ev ConnectionEstablished) {
	if f.Established != nil {
		f.Established(ev)
	}
}

// OnConnectionClosed implements ConnectionObserver.
func (f ConnectionObserverFuncs) OnConnectionClosed(ev ConnectionClosed) {
	if f.Closed != nil {
		f.Closed(ev)
	}
}

// OnError implements ConnectionObserver.
func (f ConnectionObserverFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// MessageObserverFuncs adapts plain functions to MessageObserver.
type MessageObserverFuncs struct {
	Message func(msg Message)
	Error   func(err error)
}

// OnMessage implements MessageObserver.
func (f MessageObserverFuncs) OnMessage(msg Message) {
	if f.Message != nil {
		f.Message(msg)
	}
}

// OnError implements MessageObserver.
func (f MessageObserverFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// Observers is a registry of observers of one kind. Emission iterates over a
// snapshot so observers may register further observers from a callback.
type Observers[T any] struct {
	mu   sync.RWMutex
	list []T
}

// Add registers an observer.
func (o *Observers[T]) Add(obs T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.list = append(o.list, obs)
}

// Len returns the number of registered observers.
func (o *Observers[T]) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.list)
}

// Each calls fn once for every registered observer.
func (o *Observers[T]) Each(fn func(T)) {
	o.mu.RLock()
	snapshot := make([]T, len(o.list))
	copy(snapshot, o.list)
	o.mu.RUnlock()
	for _, obs := range snapshot {
		fn(obs)
	}
}
