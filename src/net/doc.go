// Package net implements the transports that carry envelopes between causal
// processes.
//
// A Transport hands envelopes to other processes of the group, identified by
// their process ID, and exposes the envelopes it receives on a consumer
// channel. Transports must be reliable and preserve the order of envelopes
// from one sender to one receiver, but they are free to interleave the
// streams of different senders arbitrarily. The delivery algorithms in the
// causal package rely on nothing else.
//
// There are two implementations:
//
// - Inmem: an in-memory network used by tests and simulations. It keeps one
// FIFO queue per (sender, receiver) link and delivers the head of a randomly
// chosen link at each step, which scrambles the order across senders in a
// reproducible way.
//
// - TCP: envelopes are framed and written over plain TCP connections, which
// are pooled per target. Addresses are resolved from a peers.PeerSet.
//
// TCP
//
// The TCP transport is suitable when processes are in the same local network,
// or when users are able to configure their connections appropriately to avoid
// NAT issues.
//
// To use a TCP transport, set the following configuration options in the
// Config object (cf config package):
//
// - BindAddr: the IP:PORT of the TCP socket that the process binds to.
//
// - AdvertiseAddr: (optional) The address that is advertised to other
// processes. If BindAddr is a local address not reachable by other peers, it
// is usefull to set AdvertiseAddr to the reachable public address.
package net
