package clock

import "fmt"

// Ordering is the result of comparing two clocks.
type Ordering int

const (
	// Equal means every entry is identical.
	Equal Ordering = iota
	// Before means the first clock causally precedes the second.
	Before
	// After means the second clock causally precedes the first.
	After
	// Concurrent means neither clock precedes the other.
	Concurrent
)

// String returns the string representation of an Ordering
func (o Ordering) String() string {
	switch o {
	case Equal:
		return "Equal"
	case Before:
		return "Before"
	case After:
		return "After"
	case Concurrent:
		return "Concurrent"
	default:
		return "Unknown"
	}
}

// VectorClock is a vector of per-process event counters indexed by process
// ID.
type VectorClock []uint64

// NewVectorClock returns a VectorClock of size n with all entries set to zero.
func NewVectorClock(n int) VectorClock {
	return make(VectorClock, n)
}

// Increment bumps entry i and returns the new value.
func (v VectorClock) Increment(i int) uint64 {
	v[i]++
	return v[i]
}

// Merge sets v to the entrywise maximum of v and other. Entries of other
// beyond the size of v are ignored.
func (v VectorClock) Merge(other VectorClock) {
	for i := range v {
		if i < len(other) && other[i] > v[i] {
			v[i] = other[i]
		}
	}
}

// Copy returns a copy of v that does not share memory with it.
func (v VectorClock) Copy() VectorClock {
	res := make(VectorClock, len(v))
	copy(res, v)
	return res
}

// LessOrEqual returns true if every entry of v is lower or equal to the
// corresponding entry of other.
func (v VectorClock) LessOrEqual(other VectorClock) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if v[i] > other[i] {
			return false
		}
	}
	return true
}

// Compare returns the causal relation between v and other. Clocks of
// different sizes are not comparable and are reported as Concurrent.
func (v VectorClock) Compare(other VectorClock) Ordering {
	if len(v) != len(other) {
		return Concurrent
	}

	less, greater := false, false
	for i := range v {
		switch {
		case v[i] < other[i]:
			less = true
		case v[i] > other[i]:
			greater = true
		}
		if less && greater {
			return Concurrent
		}
	}

	switch {
	case less:
		return Before
	case greater:
		return After
	default:
		return Equal
	}
}

// Sum returns the total number of events counted by v.
func (v VectorClock) Sum() uint64 {
	var sum uint64
	for _, e := range v {
		sum += e
	}
	return sum
}

// String returns the clock formatted as [e0 e1 ...]
func (v VectorClock) String() string {
	return fmt.Sprint([]uint64(v))
}

// Compare returns the causal relation between a and b.
func Compare(a, b VectorClock) Ordering {
	return a.Compare(b)
}
