package pipeline

import (
	"io"

	"csvpipe/internal/reduce"
	"csvpipe/pkg/rows"
)

// GroupReduce appends the grouping barrier: rows are bucketed by the content
// hash of the key-defining reducers' columns and folded into per-group
// reducer sets; nothing is emitted until the upstream is exhausted, then one
// output row per group, in first-seen group order.
//
// newSet materializes a fresh, ordered reducer set; it is invoked once per
// distinct group (plus once up front for the output column names). The new
// headers are the reducer names, in set order; a duplicate output name is a
// structural error.
func (p *Pipeline) GroupReduce(newSet func() []reduce.Reducer) *Pipeline {
	if p.err != nil {
		return p
	}
	proto := newSet()
	next := rows.NewHeaders()
	for _, r := range proto {
		if !next.Push(r.Name()) {
			p.setErr(&rows.DuplicateColumnError{Column: r.Name()})
			return p
		}
	}
	p.it = &groupReduceStage{
		up:      p.it,
		headers: p.headers.Clone(),
		newSet:  newSet,
		proto:   proto,
		groups:  map[uint64][]reduce.Reducer{},
	}
	p.headers = next
	return p
}

// groupReduceStage is a two-state machine: accumulating until the upstream
// reports io.EOF, then draining the group registry in insertion order.
type groupReduceStage struct {
	up      Iterator
	headers *rows.Headers
	newSet  func() []reduce.Reducer
	proto   []reduce.Reducer

	groups map[uint64][]reduce.Reducer
	order  []uint64

	draining bool
	pos      int
}

func (s *groupReduceStage) Next() (rows.Row, error) {
	for !s.draining {
		r, err := s.up.Next()
		if err == io.EOF {
			s.draining = true
			break
		}
		if err != nil {
			// Upstream error items pass through; the registry is untouched.
			return nil, err
		}
		if err := s.fold(r); err != nil {
			return nil, err
		}
	}
	if s.pos >= len(s.order) {
		return nil, io.EOF
	}
	key := s.order[s.pos]
	s.pos++
	set := s.groups[key]
	delete(s.groups, key)
	out := make(rows.Row, len(set))
	for i, r := range set {
		out[i] = r.Value()
	}
	return out, nil
}

// fold hashes the row into its group, materializing the group's reducer set
// on first sight, and feeds the row to every reducer in the set. A fold
// failure drops the row from further folding but keeps the group alive.
func (s *groupReduceStage) fold(r rows.Row) error {
	key, err := reduce.Key(s.proto, s.headers, r)
	if err != nil {
		return err
	}
	set, ok := s.groups[key]
	if !ok {
		set = s.newSet()
		s.groups[key] = set
		s.order = append(s.order, key)
	}
	for _, red := range set {
		if err := red.Fold(s.headers, r); err != nil {
			return err
		}
	}
	return nil
}
