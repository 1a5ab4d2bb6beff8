package envelope

import (
	"fmt"
	"strings"
)

// Algorithm identifies a causal delivery algorithm.
type Algorithm uint8

const (
	// BSS is the Birman-Schiper-Stephenson vector clock algorithm.
	BSS Algorithm = iota
	// SES is the Schiper-Eggli-Sandoz algorithm with sparse dependencies.
	SES
	// Matrix is the matrix clock algorithm.
	Matrix
)

// String returns the lowercase name of the algorithm
func (a Algorithm) String() string {
	switch a {
	case BSS:
		return "bss"
	case SES:
		return "ses"
	case Matrix:
		return "matrix"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm returns the Algorithm corresponding to name. It is case
// insensitive.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bss":
		return BSS, nil
	case "ses":
		return SES, nil
	case "matrix":
		return Matrix, nil
	}
	return 0, fmt.Errorf("unknown algorithm %q", name)
}

// Algorithms lists every supported algorithm.
func Algorithms() []Algorithm {
	return []Algorithm{BSS, SES, Matrix}
}
