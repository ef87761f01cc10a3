package rows

// Headers owns the ordered list of column names (the canonical header Row)
// and the name→position mapping. The two are kept mutually consistent and
// names are unique.
//
// Stages clone the Headers they close over at attach time, so a stage's view
// of the column layout is frozen even when later stages evolve their own.
type Headers struct {
	indexes map[string]int
	row     Row
}

// NewHeaders returns an empty Headers to be built up with Push.
func NewHeaders() *Headers {
	return &Headers{indexes: map[string]int{}}
}

// HeadersFromRow builds Headers from a header row, validating uniqueness.
// Returns a DuplicateColumnError naming the first repeated column.
func HeadersFromRow(r Row) (*Headers, error) {
	h := NewHeaders()
	for _, name := range r {
		if !h.Push(name) {
			return nil, &DuplicateColumnError{Column: name}
		}
	}
	return h, nil
}

// Push appends a new column. It returns false, without mutating, when the
// name already exists.
func (h *Headers) Push(name string) bool {
	if _, ok := h.indexes[name]; ok {
		return false
	}
	h.row = append(h.row, name)
	h.indexes[name] = len(h.row) - 1
	return true
}

// Rename changes a column's name in place, preserving its position.
// Fails with MissingColumnError when from is absent and DuplicateColumnError
// when to already exists; Headers are untouched on failure.
func (h *Headers) Rename(from, to string) error {
	if _, ok := h.indexes[to]; ok {
		return &DuplicateColumnError{Column: to}
	}
	i, ok := h.indexes[from]
	if !ok {
		return &MissingColumnError{Column: from}
	}
	delete(h.indexes, from)
	h.indexes[to] = i
	h.row[i] = to
	return nil
}

// Index returns the position of name.
func (h *Headers) Index(name string) (int, bool) {
	i, ok := h.indexes[name]
	return i, ok
}

// Contains reports whether name is a known column.
func (h *Headers) Contains(name string) bool {
	_, ok := h.indexes[name]
	return ok
}

// Field looks up name's position and indexes row with it. The second return
// is false when the name is unknown or the row is shorter than the recorded
// position; callers treat the latter as a data error, not a panic.
func (h *Headers) Field(r Row, name string) (string, bool) {
	i, ok := h.indexes[name]
	if !ok {
		return "", false
	}
	return r.Get(i)
}

// Row returns a copy of the canonical header row.
func (h *Headers) Row() Row {
	return h.row.Clone()
}

// Len returns the column count.
func (h *Headers) Len() int { return len(h.row) }

// Clone returns an independent copy with no shared mutable state.
func (h *Headers) Clone() *Headers {
	idx := make(map[string]int, len(h.indexes))
	for k, v := range h.indexes {
		idx[k] = v
	}
	return &Headers{indexes: idx, row: h.row.Clone()}
}

// Equal reports whether both Headers describe the same columns in the same
// order.
func (h *Headers) Equal(other *Headers) bool {
	return h.row.Equal(other.row)
}
