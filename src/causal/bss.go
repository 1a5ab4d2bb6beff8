package causal

import (
	"fmt"

	"github.com/mosaicnetworks/causal/src/clock"
	"github.com/mosaicnetworks/causal/src/envelope"
)

// BSS implements the Birman-Schiper-Stephenson vector clock algorithm.
type BSS struct {
	self int
	n    int
	vc   clock.VectorClock
}

// NewBSS creates a BSS strategy for process self in a group of n.
func NewBSS(self, n int) *BSS {
	return &BSS{
		self: self,
		n:    n,
		vc:   clock.NewVectorClock(n),
	}
}

// Algorithm implements the Strategy interface
func (b *BSS) Algorithm() envelope.Algorithm {
	return envelope.BSS
}

// PerDestination implements the Strategy interface
func (b *BSS) PerDestination() bool {
	return false
}

// BuildMetadata sets the local entry to seq and attaches a snapshot of the
// whole vector.
func (b *BSS) BuildMetadata(seq uint64, dests []int) []envelope.Metadata {
	b.vc[b.self] = seq
	return []envelope.Metadata{envelope.NewVectorMetadata(b.vc)}
}

// Validate implements the Strategy interface
func (b *BSS) Validate(env *envelope.Envelope) error {
	if err := env.Metadata.Validate(envelope.BSS, b.n); err != nil {
		return err
	}
	if v := env.Metadata.Vector[env.Sender]; v != env.Seq {
		return fmt.Errorf("vector entry for sender is %d, sequence is %d", v, env.Seq)
	}
	if v := env.Metadata.Vector[b.self]; v > b.vc[b.self] {
		return fmt.Errorf("vector entry for receiver is %d, only %d sent", v, b.vc[b.self])
	}
	return nil
}

// IsDeliverable implements the Strategy interface
func (b *BSS) IsDeliverable(env *envelope.Envelope) bool {
	vm := env.Metadata.Vector
	s := env.Sender

	if vm[s] != b.vc[s]+1 {
		return false
	}
	for k := range vm {
		if k != s && vm[k] > b.vc[k] {
			return false
		}
	}
	return true
}

// MergeOnDeliver implements the Strategy interface
func (b *BSS) MergeOnDeliver(env *envelope.Envelope) {
	b.vc.Merge(env.Metadata.Vector)
	b.vc[env.Sender] = env.Metadata.Vector[env.Sender]
}

// Delivered implements the Strategy interface
func (b *BSS) Delivered(sender int) uint64 {
	return b.vc[sender]
}

// Vector implements the Strategy interface
func (b *BSS) Vector() clock.VectorClock {
	return b.vc.Copy()
}

// Matrix implements the Strategy interface
func (b *BSS) Matrix() clock.MatrixClock {
	return nil
}
