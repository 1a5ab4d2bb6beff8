package causal

import (
	"fmt"

	"github.com/mosaicnetworks/causal/src/clock"
	"github.com/mosaicnetworks/causal/src/envelope"
)

// Matrix implements causal delivery with matrix clocks. The local row of the
// matrix is the local vector clock.
type Matrix struct {
	self int
	n    int
	mc   clock.MatrixClock
}

// NewMatrix creates a Matrix strategy for process self in a group of n.
func NewMatrix(self, n int) *Matrix {
	return &Matrix{
		self: self,
		n:    n,
		mc:   clock.NewMatrixClock(n),
	}
}

// Algorithm implements the Strategy interface
func (m *Matrix) Algorithm() envelope.Algorithm {
	return envelope.Matrix
}

// PerDestination implements the Strategy interface
func (m *Matrix) PerDestination() bool {
	return false
}

// BuildMetadata sets the local diagonal entry to seq and attaches a snapshot
// of the whole matrix.
func (m *Matrix) BuildMetadata(seq uint64, dests []int) []envelope.Metadata {
	m.mc[m.self][m.self] = seq
	return []envelope.Metadata{envelope.NewMatrixMetadata(m.mc)}
}

// Validate implements the Strategy interface
func (m *Matrix) Validate(env *envelope.Envelope) error {
	if err := env.Metadata.Validate(envelope.Matrix, m.n); err != nil {
		return err
	}
	s := env.Sender
	if v := env.Metadata.Matrix[s][s]; v != env.Seq {
		return fmt.Errorf("diagonal entry for sender is %d, sequence is %d", v, env.Seq)
	}
	sent := m.mc[m.self][m.self]
	for k, row := range env.Metadata.Matrix {
		if row[m.self] > sent {
			return fmt.Errorf("entry [%d][%d] is %d, only %d sent", k, m.self, row[m.self], sent)
		}
	}
	return nil
}

// IsDeliverable implements the Strategy interface
func (m *Matrix) IsDeliverable(env *envelope.Envelope) bool {
	s := env.Sender
	sent := env.Metadata.Matrix[s]
	own := m.mc[m.self]

	if sent[s] != own[s]+1 {
		return false
	}
	for k := range sent {
		if k != s && sent[k] > own[k] {
			return false
		}
	}
	return true
}

// MergeOnDeliver implements the Strategy interface
func (m *Matrix) MergeOnDeliver(env *envelope.Envelope) {
	s := env.Sender
	mm := env.Metadata.Matrix

	m.mc.Merge(mm)
	m.mc[m.self].Merge(mm[s])
	m.mc[m.self][s] = mm[s][s]
}

// Delivered implements the Strategy interface
func (m *Matrix) Delivered(sender int) uint64 {
	return m.mc[m.self][sender]
}

// Vector implements the Strategy interface
func (m *Matrix) Vector() clock.VectorClock {
	return m.mc.Row(m.self)
}

// Matrix implements the Strategy interface
func (m *Matrix) Matrix() clock.MatrixClock {
	return m.mc.Copy()
}
