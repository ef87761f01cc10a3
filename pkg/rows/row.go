// Package rows defines the shared row model for the pipeline: positional
// string rows, the Headers name↔index mapping, and the error taxonomy used
// by every stage. It is intentionally small and dependency-free so that
// sources, stages, and targets can all share it without glue code.
package rows

// Row is one ordered record of text fields. Arity is fixed once constructed;
// fields are accessed by position. Stages that change column layout produce
// fresh rows rather than mutating in place.
type Row []string

// Get returns the field at index i, or ("", false) when the row is shorter.
func (r Row) Get(i int) (string, bool) {
	if i < 0 || i >= len(r) {
		return "", false
	}
	return r[i], true
}

// Equal reports field-wise equality.
func (r Row) Equal(other Row) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// WithField returns a new row with value appended. The receiver is not
// modified; add-column stages rely on this to keep upstream rows intact.
func (r Row) WithField(value string) Row {
	out := make(Row, len(r)+1)
	copy(out, r)
	out[len(r)] = value
	return out
}
