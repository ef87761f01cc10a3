// Package reduce provides the per-column aggregation state machines driven by
// the pipeline's group-reduce stage.
//
// Each Reducer owns one output column: it may contribute the row's field to
// the grouping key (key-defining reducers such as KeepUnique), folds every
// row of its group into a private accumulator, and finalizes the accumulator
// to a string when the group is emitted.
//
// Design goals:
//   - Reducers are cheap value-ish objects; the engine materializes a fresh
//     set per group via a caller-supplied factory.
//   - Grouping keys are 64-bit xxh3 content hashes over exactly the
//     key-defining columns; pure aggregators contribute nothing.
//   - Sums accumulate in decimal, not float, so repeated small values do not
//     drift.
package reduce

import (
	"github.com/zeebo/xxh3"

	"csvpipe/pkg/rows"
)

// Reducer is one aggregation state machine bound to one output column.
type Reducer interface {
	// Name is the output column this reducer produces.
	Name() string

	// Hash writes this reducer's grouping contribution to h. Reducers that
	// do not define the group key write nothing and return nil.
	Hash(h *xxh3.Hasher, hdr *rows.Headers, row rows.Row) error

	// Fold combines one row into the accumulator.
	Fold(hdr *rows.Headers, row rows.Row) error

	// Value finalizes the accumulator to its output string.
	Value() string
}

// Key computes the 64-bit group key for row over the key-defining reducers
// in set. Contributions are separated by 0x1f so adjacent fields cannot
// collide by concatenation.
func Key(set []Reducer, hdr *rows.Headers, row rows.Row) (uint64, error) {
	h := xxh3.New()
	for _, r := range set {
		if err := r.Hash(h, hdr, row); err != nil {
			return 0, err
		}
		h.Write(keySep)
	}
	return h.Sum64(), nil
}

var keySep = []byte{0x1f}

// Spec names a reducer's output column and the input column it reads.
// By default both are the same; From points the reducer at a differently
// named input column.
type Spec struct {
	name string
	from string
}

// New starts a Spec reading from and writing to col.
func New(col string) Spec {
	return Spec{name: col, from: col}
}

// From redirects the reducer's input to col, keeping the output name.
func (s Spec) From(col string) Spec {
	s.from = col
	return s
}
