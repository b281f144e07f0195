// Package monitor turns the raw, polled log of one topic into an ordered,
// content-resolved stream of core.Message values.
//
// Each poll fetches the whole visible log, keeps entries whose consensus
// timestamp lies beyond the watermark, sorts them oldest first and emits one
// message per "message" entry to every registered observer. Large-content
// references are resolved before the payload is inspected; payloads that look
// like JSON objects or arrays are decoded, everything else is passed through
// as text.
//
// Example:
//
//	m := monitor.New(client, "0.0.1234", func(o *monitor.Options) {
//		o.PollInterval = time.Second
//	})
//	m.AddObserver(core.MessageObserverFuncs{
//		Message: func(msg core.Message) { fmt.Println(msg.ID, msg.Data) },
//	})
//	m.Start(ctx)
//	defer m.Stop()
package monitor
