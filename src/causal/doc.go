// Package causal implements the delivery conditions and the delivery buffer
// of the causal broadcast engine.
//
// A Strategy encapsulates one algorithm: how the sender builds the metadata
// attached to an outgoing message, whether a received message can be
// delivered given the local clocks, and how the local clocks absorb a
// delivered message. Three strategies are provided:
//
// BSS (Birman, Schiper, Stephenson) attaches the sender's full vector clock.
// A message from s carrying VC_m is deliverable at r when it is the next
// message expected from s, VC_m[s] == VC_r[s]+1, and when r already knows
// everything s knew about other processes, VC_m[k] <= VC_r[k] for k != s.
//
// SES (Schiper, Eggli, Sandoz) attaches a sparse list of dependencies. The
// sender keeps, for each destination, the vector it attached to the last
// message sent there, and only includes entries that changed since then and
// that the destination is not already known to have delivered. A message is
// deliverable when the receiver has delivered at least q messages from k for
// every dependency (k, q).
//
// Matrix attaches the sender's full matrix clock. Row k of a matrix is the
// holder's knowledge of process k's vector clock, so besides ordering
// messages each process learns what every other process has delivered.
//
// The Buffer holds messages that are not yet deliverable and is drained to a
// fixed point whenever the local clocks change.
//
// Strategies and buffers are not safe for concurrent use. The process driver
// in package node serialises access to them.
package causal
