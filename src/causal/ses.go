package causal

import (
	"fmt"

	"github.com/mosaicnetworks/causal/src/clock"
	"github.com/mosaicnetworks/causal/src/envelope"
)

// SES implements the Schiper-Eggli-Sandoz algorithm with differential,
// per-destination dependency lists.
type SES struct {
	self int
	n    int

	// delivered[k] counts messages from k delivered locally; delivered[self]
	// counts local sends.
	delivered clock.VectorClock

	// lastSent[d] is the vector attached, in sparse form, to the last
	// message sent to d.
	lastSent []clock.VectorClock

	// knownBy[d][k] is how many messages from k process d is known to have
	// delivered.
	knownBy []clock.VectorClock
}

// NewSES creates a SES strategy for process self in a group of n.
func NewSES(self, n int) *SES {
	s := &SES{
		self:      self,
		n:         n,
		delivered: clock.NewVectorClock(n),
		lastSent:  make([]clock.VectorClock, n),
		knownBy:   make([]clock.VectorClock, n),
	}
	for i := 0; i < n; i++ {
		s.lastSent[i] = clock.NewVectorClock(n)
		s.knownBy[i] = clock.NewVectorClock(n)
	}
	return s
}

// Algorithm implements the Strategy interface
func (s *SES) Algorithm() envelope.Algorithm {
	return envelope.SES
}

// PerDestination implements the Strategy interface
func (s *SES) PerDestination() bool {
	return true
}

// BuildMetadata computes one dependency list per destination. The vector
// the lists are taken from is the local delivery vector before the send, so
// the entry for the local process is seq-1 and enforces FIFO order.
func (s *SES) BuildMetadata(seq uint64, dests []int) []envelope.Metadata {
	v := s.delivered.Copy()
	v[s.self] = seq - 1

	res := make([]envelope.Metadata, len(dests))
	for i, d := range dests {
		deps := []envelope.Dep{}
		for k, q := range v {
			if q == 0 || k == d {
				continue
			}
			if q <= s.lastSent[d][k] || q <= s.knownBy[d][k] {
				continue
			}
			deps = append(deps, envelope.Dep{Process: k, Seq: q})
		}
		res[i] = envelope.NewDepsMetadata(deps)
		s.lastSent[d] = v.Copy()
	}

	s.delivered[s.self] = seq
	return res
}

// Validate implements the Strategy interface
func (s *SES) Validate(env *envelope.Envelope) error {
	if err := env.Metadata.Validate(envelope.SES, s.n); err != nil {
		return err
	}
	if q, ok := env.Metadata.Dep(env.Sender); ok && q >= env.Seq {
		return fmt.Errorf("message %d depends on later message %d of its sender", env.Seq, q)
	}
	return nil
}

// IsDeliverable implements the Strategy interface
func (s *SES) IsDeliverable(env *envelope.Envelope) bool {
	for _, d := range env.Metadata.Deps {
		if s.delivered[d.Process] < d.Seq {
			return false
		}
	}
	return true
}

// MergeOnDeliver implements the Strategy interface
func (s *SES) MergeOnDeliver(env *envelope.Envelope) {
	sender := env.Sender
	if env.Seq > s.delivered[sender] {
		s.delivered[sender] = env.Seq
	}

	known := s.knownBy[sender]
	for _, d := range env.Metadata.Deps {
		if d.Seq > known[d.Process] {
			known[d.Process] = d.Seq
		}
	}
	if env.Seq > known[sender] {
		known[sender] = env.Seq
	}
}

// Delivered implements the Strategy interface
func (s *SES) Delivered(sender int) uint64 {
	return s.delivered[sender]
}

// Vector implements the Strategy interface
func (s *SES) Vector() clock.VectorClock {
	return s.delivered.Copy()
}

// Matrix implements the Strategy interface
func (s *SES) Matrix() clock.MatrixClock {
	return nil
}
