package net

import (
	"github.com/mosaicnetworks/causal/src/envelope"
)

// Transport provides an interface for network transports to allow a process
// to communicate with the other processes of its group.
type Transport interface {

	// Starts the transport listening
	Listen()

	// Consumer returns a channel that can be used to consume incoming
	// envelopes.
	Consumer() <-chan *envelope.Envelope

	// LocalAddr is used to return our local address
	LocalAddr() string

	// AdvertiseAddr is used to return our advertise address where other peers
	// can reach us
	AdvertiseAddr() string

	// Send hands env to process target.
	Send(target int, env *envelope.Envelope) error

	// Multicast hands env to every other process of the group.
	Multicast(env *envelope.Envelope) error

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}

// Receiver consumes envelopes synchronously. It is implemented by
// node.Process.
type Receiver interface {
	Receive(env *envelope.Envelope) error
}
