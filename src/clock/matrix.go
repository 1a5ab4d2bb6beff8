package clock

import (
	"bytes"
	"fmt"
)

// MatrixClock is an n x n grid of counters. Row i is the holder's knowledge
// of process i's vector clock.
type MatrixClock []VectorClock

// NewMatrixClock returns an n x n MatrixClock with all entries set to zero.
func NewMatrixClock(n int) MatrixClock {
	m := make(MatrixClock, n)
	for i := range m {
		m[i] = NewVectorClock(n)
	}
	return m
}

// Increment bumps the diagonal entry [i][i] and returns the new value.
func (m MatrixClock) Increment(i int) uint64 {
	return m[i].Increment(i)
}

// Merge sets m to the entrywise maximum of m and other.
func (m MatrixClock) Merge(other MatrixClock) {
	for i := range m {
		if i < len(other) {
			m[i].Merge(other[i])
		}
	}
}

// Row returns a copy of row i.
func (m MatrixClock) Row(i int) VectorClock {
	return m[i].Copy()
}

// Diagonal returns the vector of diagonal entries, ie. what the holder knows
// of each process's own progress.
func (m MatrixClock) Diagonal() VectorClock {
	d := NewVectorClock(len(m))
	for i := range m {
		d[i] = m[i][i]
	}
	return d
}

// StableFrontier returns, for each column k, the minimum of m[i][k] over all
// rows. Events of process k up to that value are known by every process.
func (m MatrixClock) StableFrontier() VectorClock {
	if len(m) == 0 {
		return VectorClock{}
	}
	f := m[0].Copy()
	for _, row := range m[1:] {
		for k := range f {
			if row[k] < f[k] {
				f[k] = row[k]
			}
		}
	}
	return f
}

// Copy returns a deep copy of m.
func (m MatrixClock) Copy() MatrixClock {
	res := make(MatrixClock, len(m))
	for i, row := range m {
		res[i] = row.Copy()
	}
	return res
}

// Wellformed returns true if m is square with n rows.
func (m MatrixClock) Wellformed(n int) bool {
	if len(m) != n {
		return false
	}
	for _, row := range m {
		if len(row) != n {
			return false
		}
	}
	return true
}

// Compare returns the causal relation between m and other, treating both as
// flattened vectors.
func (m MatrixClock) Compare(other MatrixClock) Ordering {
	if len(m) != len(other) {
		return Concurrent
	}
	res := Equal
	for i := range m {
		o := m[i].Compare(other[i])
		switch {
		case o == Concurrent:
			return Concurrent
		case o == Equal:
		case res == Equal:
			res = o
		case res != o:
			return Concurrent
		}
	}
	return res
}

// String returns the rows of m separated by newlines.
func (m MatrixClock) String() string {
	var b bytes.Buffer
	for i, row := range m {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprint(&b, row.String())
	}
	return b.String()
}
