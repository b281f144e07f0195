// Package connection implements the connection lifecycle manager of one
// inbound topic.
//
// A Manager polls its inbound topic for connection_request entries, accepts
// them strictly in sequence order and records a Connection per accepted
// request. It also initiates outbound connections to other agents' inbound
// topics and closes connections by notifying the peer on the connection
// topic. Lifecycle events are delivered to registered core.ConnectionObserver
// implementations.
//
// Example:
//
//	mgr := connection.New(client, inboundTopicID).StartMonitoring(ctx)
//	mgr.AddObserver(core.ConnectionObserverFuncs{
//	    Established: func(ev core.ConnectionEstablished) { /* attach a monitor */ },
//	})
//	defer mgr.StopMonitoring()
package connection
