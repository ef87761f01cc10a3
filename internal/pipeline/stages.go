package pipeline

import (
	"csvpipe/pkg/rows"
)

// AddCol appends a column whose value is computed per row by get. The name
// is pushed onto the shared headers at attach time so every downstream stage
// sees the final column count from the start; a duplicate name is a
// structural error.
func (p *Pipeline) AddCol(name string, get func(*rows.Headers, rows.Row) (string, error)) *Pipeline {
	if p.err != nil {
		return p
	}
	snapshot := p.headers.Clone()
	if !p.headers.Push(name) {
		p.setErr(&rows.DuplicateColumnError{Column: name})
		return p
	}
	p.it = &addColStage{up: p.it, headers: snapshot, get: get}
	return p
}

type addColStage struct {
	up      Iterator
	headers *rows.Headers
	get     func(*rows.Headers, rows.Row) (string, error)
}

func (s *addColStage) Next() (rows.Row, error) {
	r, err := s.up.Next()
	if err != nil {
		return nil, err
	}
	v, err := s.get(s.headers, r)
	if err != nil {
		return nil, err
	}
	return r.WithField(v), nil
}

// Map replaces each row wholesale. The closure must return rows whose arity
// matches the current headers; this is a caller contract, not enforced
// structurally.
func (p *Pipeline) Map(f func(*rows.Headers, rows.Row) (rows.Row, error)) *Pipeline {
	if p.err != nil {
		return p
	}
	p.it = &mapStage{up: p.it, headers: p.headers.Clone(), f: f}
	return p
}

type mapStage struct {
	up      Iterator
	headers *rows.Headers
	f       func(*rows.Headers, rows.Row) (rows.Row, error)
}

func (s *mapStage) Next() (rows.Row, error) {
	r, err := s.up.Next()
	if err != nil {
		return nil, err
	}
	return s.f(s.headers, r)
}

// MapCol rewrites one named field per row. An unknown name, or a row shorter
// than the recorded position, yields a per-row MissingColumn stream error.
func (p *Pipeline) MapCol(name string, f func(string) (string, error)) *Pipeline {
	if p.err != nil {
		return p
	}
	index := -1
	if i, ok := p.headers.Index(name); ok {
		index = i
	}
	p.it = &mapColStage{up: p.it, name: name, index: index, f: f}
	return p
}

type mapColStage struct {
	up    Iterator
	name  string
	index int
	f     func(string) (string, error)
}

func (s *mapColStage) Next() (rows.Row, error) {
	r, err := s.up.Next()
	if err != nil {
		return nil, err
	}
	if s.index < 0 || s.index >= len(r) {
		return nil, &rows.MissingColumnError{Column: s.name}
	}
	v, err := s.f(r[s.index])
	if err != nil {
		return nil, err
	}
	out := r.Clone()
	out[s.index] = v
	return out, nil
}

// Filter keeps only rows for which pred returns true. False rows are
// silently dropped; a predicate error is forwarded as a stream error in that
// row's place.
func (p *Pipeline) Filter(pred func(*rows.Headers, rows.Row) (bool, error)) *Pipeline {
	if p.err != nil {
		return p
	}
	p.it = &filterStage{up: p.it, headers: p.headers.Clone(), pred: pred}
	return p
}

type filterStage struct {
	up      Iterator
	headers *rows.Headers
	pred    func(*rows.Headers, rows.Row) (bool, error)
}

func (s *filterStage) Next() (rows.Row, error) {
	for {
		r, err := s.up.Next()
		if err != nil {
			return nil, err
		}
		keep, err := s.pred(s.headers, r)
		if err != nil {
			return nil, err
		}
		if keep {
			return r, nil
		}
	}
}

// Select narrows and reorders the columns to names. Duplicate names in the
// list are a structural error; a name absent upstream yields a per-row
// MissingColumn stream error.
func (p *Pipeline) Select(names ...string) *Pipeline {
	if p.err != nil {
		return p
	}
	next := rows.NewHeaders()
	for _, n := range names {
		if !next.Push(n) {
			p.setErr(&rows.DuplicateColumnError{Column: n})
			return p
		}
	}
	indexes := make([]int, len(names))
	for i, n := range names {
		indexes[i] = -1
		if at, ok := p.headers.Index(n); ok {
			indexes[i] = at
		}
	}
	p.it = &selectStage{up: p.it, names: names, indexes: indexes}
	p.headers = next
	return p
}

type selectStage struct {
	up      Iterator
	names   []string
	indexes []int
}

func (s *selectStage) Next() (rows.Row, error) {
	r, err := s.up.Next()
	if err != nil {
		return nil, err
	}
	out := make(rows.Row, len(s.indexes))
	for i, at := range s.indexes {
		if at < 0 || at >= len(r) {
			return nil, &rows.MissingColumnError{Column: s.names[i]}
		}
		out[i] = r[at]
	}
	return out, nil
}

// RenameCol renames one column, keeping its position. A missing source name
// or an existing target name is a structural error.
func (p *Pipeline) RenameCol(from, to string) *Pipeline {
	if p.err != nil {
		return p
	}
	if err := p.headers.Rename(from, to); err != nil {
		p.setErr(err)
	}
	return p
}

// RenameAll rebuilds the headers by applying f to every column positionally.
// A rename that produces duplicate names is a structural error; rows are
// untouched.
func (p *Pipeline) RenameAll(f func(i int, name string) string) *Pipeline {
	if p.err != nil {
		return p
	}
	old := p.headers.Row()
	next := rows.NewHeaders()
	for i, name := range old {
		renamed := f(i, name)
		if !next.Push(renamed) {
			p.setErr(&rows.DuplicateColumnError{Column: renamed})
			return p
		}
	}
	p.headers = next
	return p
}

// Validate runs a side-effect-free check on each row. A check failure is
// converted to a stream error; a passing row flows through unchanged.
func (p *Pipeline) Validate(check func(*rows.Headers, rows.Row) error) *Pipeline {
	if p.err != nil {
		return p
	}
	p.it = &validateStage{up: p.it, headers: p.headers.Clone(), check: check}
	return p
}

type validateStage struct {
	up      Iterator
	headers *rows.Headers
	check   func(*rows.Headers, rows.Row) error
}

func (s *validateStage) Next() (rows.Row, error) {
	r, err := s.up.Next()
	if err != nil {
		return nil, err
	}
	if err := s.check(s.headers, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ValidateCol runs a check against one named field per row.
func (p *Pipeline) ValidateCol(name string, check func(string) error) *Pipeline {
	return p.Validate(func(h *rows.Headers, r rows.Row) error {
		field, ok := h.Field(r, name)
		if !ok {
			return &rows.MissingColumnError{Column: name}
		}
		return check(field)
	})
}
