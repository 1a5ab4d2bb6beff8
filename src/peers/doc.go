// Package peers defines the members of a causal group and implements
// functions to manage collections of them.
//
// Membership is static: the group is fixed when processes start and every
// process must agree on it. Each peer has a process ID in [0, N), a network
// address where it can be reached by the TCP transport, and an optional
// moniker, which is a non-unique user-friendly name.
//
// Upon starting up over TCP, a process expects to find a peers.json file in
// its data directory, listing every peer of the group. The order of the file
// does not matter; peers are identified by their ID, and the IDs must be
// exactly 0 through N-1.
package peers
