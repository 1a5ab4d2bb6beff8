// Package simulation runs groups of causal processes over an in-memory
// network and checks their deliveries.
//
// A Simulation wires N processes running the same algorithm to a seeded
// InmemNetwork, a metrics Collector and a Recorder. The Recorder stamps every
// message with a vector timestamp when it is sent, without looking at the
// metadata built by the algorithm, and Check uses these stamps to verify
// causal safety, FIFO order, the absence of duplicates and liveness.
package simulation
