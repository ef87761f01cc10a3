package pipeline

import (
	"errors"
	"io"
	"testing"

	"csvpipe/pkg/rows"
)

func TestConcatPreservesSourceOrder(t *testing.T) {
	a := fromRows(t, rows.Row{"A", "B"},
		rows.Row{"a1", "b1"}, rows.Row{"a2", "b2"})
	b := fromRows(t, rows.Row{"A", "B"},
		rows.Row{"a3", "b3"})

	p, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	got := drain(t, p)
	want := []rows.Row{{"a1", "b1"}, {"a2", "b2"}, {"a3", "b3"}}
	if len(got) != len(want) {
		t.Fatalf("rows = %v", got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("row %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestConcatHeaderMismatch(t *testing.T) {
	a := fromRows(t, rows.Row{"A", "B"}, rows.Row{"a1", "b1"})
	b := fromRows(t, rows.Row{"A", "B"}, rows.Row{"a2", "b2"})
	c := fromRows(t, rows.Row{"ID", "Country"}, rows.Row{"1", "Norway"})

	p, err := Concat(a, b, c)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}

	var seen []rows.Row
	var streamErr error
	for {
		r, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if streamErr != nil {
				t.Fatalf("second stream error: %v", err)
			}
			streamErr = err
			continue
		}
		seen = append(seen, r)
	}

	if len(seen) != 2 {
		t.Fatalf("rows before mismatch = %v", seen)
	}
	var mism *rows.HeaderMismatchError
	if !errors.As(streamErr, &mism) {
		t.Fatalf("want HeaderMismatchError, got %v", streamErr)
	}
	if !mism.Expected.Equal(rows.Row{"A", "B"}) || !mism.Got.Equal(rows.Row{"ID", "Country"}) {
		t.Fatalf("mismatch detail: %v", mism)
	}
	if got := rows.SourceIndex(streamErr); got != 2 {
		t.Fatalf("SourceIndex = %d, want 2", got)
	}
	// The mismatched source was never read.
	if r, err := c.Next(); err != nil || !r.Equal(rows.Row{"1", "Norway"}) {
		t.Fatalf("mismatched source was advanced: row=%v err=%v", r, err)
	}
}

func TestConcatTagsRowErrors(t *testing.T) {
	h1, _ := rows.HeadersFromRow(rows.Row{"A"})
	h2, _ := rows.HeadersFromRow(rows.Row{"A"})
	a := New(h1, &sliceIter{items: []item{{row: rows.Row{"a"}}}})
	b := New(h2, &sliceIter{items: []item{
		{err: &rows.InvalidFieldError{Value: "x"}},
		{row: rows.Row{"b"}},
	}})

	p, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if r, err := p.Next(); err != nil || !r.Equal(rows.Row{"a"}) {
		t.Fatalf("first: row=%v err=%v", r, err)
	}
	_, err = p.Next()
	if err == nil {
		t.Fatal("want tagged stream error")
	}
	if got := rows.SourceIndex(err); got != 1 {
		t.Fatalf("SourceIndex = %d, want 1", got)
	}
	// Still pollable past the error.
	if r, err := p.Next(); err != nil || !r.Equal(rows.Row{"b"}) {
		t.Fatalf("after error: row=%v err=%v", r, err)
	}
}

func TestConcatSingleSource(t *testing.T) {
	p, err := Concat(countries(t))
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if got := drain(t, p); len(got) != 2 {
		t.Fatalf("rows = %v", got)
	}
}

func TestConcatNoSources(t *testing.T) {
	if _, err := Concat(); err == nil {
		t.Fatal("want construction error for empty concat")
	}
}
