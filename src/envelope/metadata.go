package envelope

import (
	"fmt"
	"sort"

	"github.com/mosaicnetworks/causal/src/clock"
)

// Dep says that the carrying message must not be delivered before message
// Seq of Process.
type Dep struct {
	Process int    `json:"process"`
	Seq     uint64 `json:"seq"`
}

// Metadata is the ordering information attached to an Envelope. Only the
// field matching Algorithm is populated.
type Metadata struct {
	Algorithm Algorithm         `json:"algorithm"`
	Vector    clock.VectorClock `json:"vector,omitempty"`
	Deps      []Dep             `json:"deps,omitempty"`
	Matrix    clock.MatrixClock `json:"matrix,omitempty"`
}

// NewVectorMetadata returns BSS metadata holding a copy of vc.
func NewVectorMetadata(vc clock.VectorClock) Metadata {
	return Metadata{
		Algorithm: BSS,
		Vector:    vc.Copy(),
	}
}

// NewDepsMetadata returns SES metadata holding a sorted copy of deps.
func NewDepsMetadata(deps []Dep) Metadata {
	cp := make([]Dep, len(deps))
	copy(cp, deps)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Process < cp[j].Process })
	return Metadata{
		Algorithm: SES,
		Deps:      cp,
	}
}

// NewMatrixMetadata returns Matrix metadata holding a copy of mc.
func NewMatrixMetadata(mc clock.MatrixClock) Metadata {
	return Metadata{
		Algorithm: Matrix,
		Matrix:    mc.Copy(),
	}
}

// Entries returns the number of counters carried by the metadata. It is the
// size of the ordering overhead of a message.
func (m Metadata) Entries() int {
	switch m.Algorithm {
	case BSS:
		return len(m.Vector)
	case SES:
		return len(m.Deps)
	case Matrix:
		return len(m.Matrix) * len(m.Matrix)
	}
	return 0
}

// Copy returns a deep copy of m.
func (m Metadata) Copy() Metadata {
	res := Metadata{Algorithm: m.Algorithm}
	if m.Vector != nil {
		res.Vector = m.Vector.Copy()
	}
	if m.Deps != nil {
		res.Deps = make([]Dep, len(m.Deps))
		copy(res.Deps, m.Deps)
	}
	if m.Matrix != nil {
		res.Matrix = m.Matrix.Copy()
	}
	return res
}

// Dep returns the dependency on process p, if any.
func (m Metadata) Dep(p int) (uint64, bool) {
	for _, d := range m.Deps {
		if d.Process == p {
			return d.Seq, true
		}
	}
	return 0, false
}

// Validate checks that the metadata has the shape expected for algo in a
// group of n processes.
func (m Metadata) Validate(algo Algorithm, n int) error {
	if m.Algorithm != algo {
		return fmt.Errorf("metadata for %s, expected %s", m.Algorithm, algo)
	}

	switch algo {
	case BSS:
		if len(m.Vector) != n {
			return fmt.Errorf("vector clock has %d entries, expected %d", len(m.Vector), n)
		}
	case SES:
		seen := make(map[int]bool, len(m.Deps))
		for _, d := range m.Deps {
			if d.Process < 0 || d.Process >= n {
				return fmt.Errorf("dependency on unknown process %d", d.Process)
			}
			if d.Seq == 0 {
				return fmt.Errorf("dependency on process %d has sequence 0", d.Process)
			}
			if seen[d.Process] {
				return fmt.Errorf("duplicate dependency on process %d", d.Process)
			}
			seen[d.Process] = true
		}
	case Matrix:
		if !m.Matrix.Wellformed(n) {
			return fmt.Errorf("matrix clock is not %dx%d", n, n)
		}
	default:
		return fmt.Errorf("unknown algorithm %d", m.Algorithm)
	}

	return nil
}

// String returns a compact representation of the metadata
func (m Metadata) String() string {
	switch m.Algorithm {
	case BSS:
		return fmt.Sprintf("vc=%v", m.Vector)
	case SES:
		return fmt.Sprintf("deps=%v", m.Deps)
	case Matrix:
		return fmt.Sprintf("mc=%v", []clock.VectorClock(m.Matrix))
	}
	return "?"
}
