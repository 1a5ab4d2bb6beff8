// Package node implements the causal process, the driver that ties a
// delivery strategy, a delivery buffer and a transport together.
//
// A Process is one participant of a causal group. The application calls Send
// to broadcast a payload; the process asks its strategy for the metadata,
// wraps the payload in one or more envelopes and hands them to the
// transport. Envelopes received from the transport are passed to Receive,
// which discards duplicates, rejects malformed envelopes, and either delivers
// the message to the application or keeps it in the buffer until its causal
// predecessors have been delivered. Every delivery triggers a re-scan of the
// buffer, so a single message can unblock a cascade of buffered ones.
//
// All the state of a Process is guarded by a single mutex, so Send and
// Receive can be called from different goroutines. The delivery callback and
// the observers are invoked synchronously while the mutex is held; they must
// not call back into the same Process.
//
// States
//
// A Process is Active from creation until Stop is called, after which it is
// Stopped and refuses every operation. There is no way back.
//
// Observers
//
// Observers receive the signals of a process: sends, deliveries, buffered
// and discarded envelopes, and buffer size changes. They are used by the
// metrics collector, the HTTP service and the simulation checker, and must
// never modify the process.
package node
