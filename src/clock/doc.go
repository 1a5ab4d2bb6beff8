// Package clock implements the logical clocks used by the causal delivery
// engine.
//
// A VectorClock holds one counter per process. Entry i counts the events of
// process i that the holder knows about. Two vector clocks are compared
// entrywise: a is Before b when every entry of a is lower or equal to the
// corresponding entry of b and at least one is strictly lower.
//
// A MatrixClock is a square grid of vector clocks. Row i is the holder's best
// knowledge of process i's vector clock, so the holder's own row is its own
// vector clock and the diagonal entry [i][i] is what the holder knows of
// process i's own progress.
//
// Clocks are plain slices. They are owned by a single process and are not safe
// for concurrent use; Copy must be used whenever a clock leaves its owner, for
// example when it is attached to an outgoing message.
package clock
