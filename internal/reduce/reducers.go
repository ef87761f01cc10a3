package reduce

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zeebo/xxh3"

	"csvpipe/pkg/rows"
)

// KeepUnique groups rows by equality of the input column and records the
// value seen. It is the key-defining variant: its field content feeds the
// grouping hash.
func (s Spec) KeepUnique() Reducer {
	return &keepUnique{spec: s}
}

type keepUnique struct {
	spec  Spec
	value string
}

func (k *keepUnique) Name() string { return k.spec.name }

func (k *keepUnique) Hash(h *xxh3.Hasher, hdr *rows.Headers, row rows.Row) error {
	field, ok := hdr.Field(row, k.spec.from)
	if !ok {
		return &rows.MissingColumnError{Column: k.spec.from}
	}
	_, _ = h.WriteString(field)
	return nil
}

func (k *keepUnique) Fold(hdr *rows.Headers, row rows.Row) error {
	field, ok := hdr.Field(row, k.spec.from)
	if !ok {
		return &rows.MissingColumnError{Column: k.spec.from}
	}
	k.value = field
	return nil
}

func (k *keepUnique) Value() string { return k.value }

// Sum accumulates the input column as an exact decimal. Values that do not
// parse fail the fold with InvalidField; the sum is not key-defining.
func (s Spec) Sum() Reducer {
	return &sum{spec: s}
}

type sum struct {
	spec  Spec
	total decimal.Decimal
}

func (a *sum) Name() string { return a.spec.name }

func (a *sum) Hash(*xxh3.Hasher, *rows.Headers, rows.Row) error { return nil }

func (a *sum) Fold(hdr *rows.Headers, row rows.Row) error {
	field, ok := hdr.Field(row, a.spec.from)
	if !ok {
		return &rows.MissingColumnError{Column: a.spec.from}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(field))
	if err != nil {
		return &rows.InvalidFieldError{Value: field}
	}
	a.total = a.total.Add(d)
	return nil
}

func (a *sum) Value() string { return a.total.String() }

// Count counts the rows folded into the group. It reads no column and is not
// key-defining.
func (s Spec) Count() Reducer {
	return &count{spec: s}
}

type count struct {
	spec Spec
	n    int64
}

func (c *count) Name() string { return c.spec.name }

func (c *count) Hash(*xxh3.Hasher, *rows.Headers, rows.Row) error { return nil }

func (c *count) Fold(*rows.Headers, rows.Row) error {
	c.n++
	return nil
}

func (c *count) Value() string { return strconv.FormatInt(c.n, 10) }

// Fold builds a custom reducer from a binary function and an initial value.
// fn receives the accumulator and the input column's field for each row of
// the group; the final accumulator is formatted with fmt.Sprint. Not
// key-defining; compose with a KeepUnique on the same column when the folded
// column should also partition groups.
func Fold[V any](s Spec, init V, fn func(V, string) (V, error)) Reducer {
	return &foldReducer[V]{spec: s, value: init, fn: fn}
}

type foldReducer[V any] struct {
	spec  Spec
	value V
	fn    func(V, string) (V, error)
}

func (f *foldReducer[V]) Name() string { return f.spec.name }

func (f *foldReducer[V]) Hash(*xxh3.Hasher, *rows.Headers, rows.Row) error { return nil }

func (f *foldReducer[V]) Fold(hdr *rows.Headers, row rows.Row) error {
	field, ok := hdr.Field(row, f.spec.from)
	if !ok {
		return &rows.MissingColumnError{Column: f.spec.from}
	}
	v, err := f.fn(f.value, field)
	if err != nil {
		return err
	}
	f.value = v
	return nil
}

func (f *foldReducer[V]) Value() string { return fmt.Sprint(f.value) }
