package node

import (
	"github.com/mosaicnetworks/causal/src/envelope"
)

// DiscardReason says why a received envelope was not buffered or delivered.
type DiscardReason int

const (
	// Duplicate envelopes were already delivered or are already buffered.
	Duplicate DiscardReason = iota
	// Malformed envelopes do not have the shape expected by the algorithm.
	Malformed
)

// String ...
func (r DiscardReason) String() string {
	switch r {
	case Duplicate:
		return "duplicate"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Observer receives the signals of a Process. Methods are called with the
// process lock held, in the order the events happen.
type Observer interface {
	// Sent is called when process p sends message seq, before the envelopes
	// are handed to the transport.
	Sent(p int, seq uint64, envs []*envelope.Envelope)
	// Delivered is called after a message is delivered to the application.
	Delivered(d *envelope.Delivery)
	// Buffered is called when a received envelope is not yet deliverable.
	Buffered(p int, env *envelope.Envelope)
	// Discarded is called when a received envelope is dropped.
	Discarded(p int, env *envelope.Envelope, reason DiscardReason)
	// BufferResized is called whenever the size of the buffer changes.
	BufferResized(p int, size int)
}

// NopObserver implements Observer and ignores every signal. It can be
// embedded by observers interested in a few signals only.
type NopObserver struct{}

// Sent implements Observer
func (NopObserver) Sent(int, uint64, []*envelope.Envelope) {}

// Delivered implements Observer
func (NopObserver) Delivered(*envelope.Delivery) {}

// Buffered implements Observer
func (NopObserver) Buffered(int, *envelope.Envelope) {}

// Discarded implements Observer
func (NopObserver) Discarded(int, *envelope.Envelope, DiscardReason) {}

// BufferResized implements Observer
func (NopObserver) BufferResized(int, int) {}
