// Package envelope defines the messages exchanged by causal delivery
// processes.
//
// An Envelope carries an opaque application payload together with the
// ordering metadata produced by the sender's delivery algorithm. The metadata
// takes one of three shapes depending on the Algorithm:
//
//	BSS:    a full vector clock snapshot taken after the send
//	SES:    a sparse list of (process, sequence) dependencies
//	Matrix: a full matrix clock snapshot taken after the send
//
// Envelopes are values. Once built they are never mutated; New deep-copies
// every slice it is given so that the sender's clocks cannot alias the
// metadata of an envelope in flight.
//
// A Delivery is the record produced when a process hands a message to the
// application. Deliveries are what the store persists and what the service
// streams to observers.
package envelope
