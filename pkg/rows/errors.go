package rows

import (
	"errors"
	"fmt"
	"strings"
)

// MissingColumnError reports a reference to a column name that is not present
// in the headers (or a row too short to hold its position).
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}

// DuplicateColumnError reports an attempt to introduce a column name that
// already exists.
type DuplicateColumnError struct {
	Column string
}

func (e *DuplicateColumnError) Error() string {
	return fmt.Sprintf("duplicate column %q", e.Column)
}

// InvalidFieldError reports a field value a stage or reducer could not
// interpret (e.g. a non-numeric value fed to a sum).
type InvalidFieldError struct {
	Value string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid field %q", e.Value)
}

// HeaderMismatchError reports incompatible header rows at a concatenation
// boundary. Expected is the first source's header row, Got the offender's.
type HeaderMismatchError struct {
	Expected Row
	Got      Row
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("mismatched headers: want [%s], got [%s]",
		strings.Join(e.Expected, ","), strings.Join(e.Got, ","))
}

// SourceError tags a stream error with the index of the source pipeline that
// produced it. Index is 0 for a single-source pipeline; concatenation
// re-tags forwarded errors with the position of the originating source.
type SourceError struct {
	Index int
	Err   error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %d: %v", e.Index, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// TagSource wraps err with a source index. An already-tagged error is
// re-tagged (the innermost cause is preserved), so concatenation can claim
// errors from its member pipelines.
func TagSource(index int, err error) error {
	if err == nil {
		return nil
	}
	var se *SourceError
	if errors.As(err, &se) {
		return &SourceError{Index: index, Err: se.Err}
	}
	return &SourceError{Index: index, Err: err}
}

// SourceIndex extracts the source tag from err, defaulting to 0 for
// untagged errors.
func SourceIndex(err error) int {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Index
	}
	return 0
}
