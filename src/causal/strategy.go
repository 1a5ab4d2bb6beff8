package causal

import (
	"fmt"

	"github.com/mosaicnetworks/causal/src/clock"
	"github.com/mosaicnetworks/causal/src/envelope"
)

// Strategy is a causal delivery algorithm as seen by a single process.
type Strategy interface {
	// Algorithm returns the algorithm implemented by the strategy.
	Algorithm() envelope.Algorithm

	// PerDestination returns true if the metadata depends on the
	// destination, in which case one envelope is built per destination.
	PerDestination() bool

	// BuildMetadata records the local send of message seq to dests and
	// returns the metadata to attach. Strategies that are not per-destination
	// return a single entry. Otherwise the result is aligned with dests.
	BuildMetadata(seq uint64, dests []int) []envelope.Metadata

	// Validate checks the metadata of a received envelope against the
	// algorithm's invariants.
	Validate(env *envelope.Envelope) error

	// IsDeliverable returns true if env can be delivered now.
	IsDeliverable(env *envelope.Envelope) bool

	// MergeOnDeliver updates the local clocks with a delivered envelope.
	MergeOnDeliver(env *envelope.Envelope)

	// Delivered returns the number of messages from sender that were
	// delivered locally. For the local process it is the number of sends.
	Delivered(sender int) uint64

	// Vector returns a copy of the local vector clock: entry k counts the
	// messages from k delivered locally.
	Vector() clock.VectorClock

	// Matrix returns a copy of the local matrix clock, or nil if the
	// algorithm does not keep one.
	Matrix() clock.MatrixClock
}

// NewStrategy returns the Strategy implementing algo for process self in a
// group of n processes.
func NewStrategy(algo envelope.Algorithm, self, n int) (Strategy, error) {
	if n <= 0 {
		return nil, NewErr(ErrInvalidConfiguration, "processes", fmt.Errorf("%d processes", n))
	}
	if self < 0 || self >= n {
		return nil, NewErr(ErrInvalidConfiguration, "process id", fmt.Errorf("%d not in [0, %d)", self, n))
	}

	switch algo {
	case envelope.BSS:
		return NewBSS(self, n), nil
	case envelope.SES:
		return NewSES(self, n), nil
	case envelope.Matrix:
		return NewMatrix(self, n), nil
	}

	return nil, NewErr(ErrInvalidConfiguration, "algorithm", fmt.Errorf("unknown algorithm %d", algo))
}
