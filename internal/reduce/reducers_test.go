package reduce

import (
	"errors"
	"strconv"
	"testing"

	"csvpipe/pkg/rows"
)

func testHeaders(t *testing.T, names ...string) *rows.Headers {
	t.Helper()
	h, err := rows.HeadersFromRow(rows.Row(names))
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	return h
}

func TestKeepUnique(t *testing.T) {
	hdr := testHeaders(t, "Person", "Score")
	r := New("Person").KeepUnique()

	if err := r.Fold(hdr, rows.Row{"A", "1"}); err != nil {
		t.Fatalf("Fold: %v", err)
	}
	if got := r.Value(); got != "A" {
		t.Fatalf("Value = %q, want A", got)
	}
	// Within one group every value is the same; latest wins by contract.
	if err := r.Fold(hdr, rows.Row{"A", "8"}); err != nil {
		t.Fatalf("Fold: %v", err)
	}
	if got := r.Value(); got != "A" {
		t.Fatalf("Value = %q, want A", got)
	}
}

func TestKeepUniqueMissingColumn(t *testing.T) {
	hdr := testHeaders(t, "Score")
	r := New("Person").KeepUnique()

	var miss *rows.MissingColumnError
	if err := r.Fold(hdr, rows.Row{"1"}); !errors.As(err, &miss) {
		t.Fatalf("want MissingColumnError, got %v", err)
	}
}

func TestSumExactDecimal(t *testing.T) {
	hdr := testHeaders(t, "X", "Amount")
	r := New("Total").From("Amount").Sum()

	for _, v := range []string{"0.0002717", "0.0012421", "0.0002717"} {
		if err := r.Fold(hdr, rows.Row{"X", v}); err != nil {
			t.Fatalf("Fold(%s): %v", v, err)
		}
	}
	if got := r.Value(); got != "0.0017855" {
		t.Fatalf("Value = %q, want 0.0017855 (no float drift)", got)
	}
}

func TestSumInvalidField(t *testing.T) {
	hdr := testHeaders(t, "Amount")
	r := New("Amount").Sum()

	var inv *rows.InvalidFieldError
	if err := r.Fold(hdr, rows.Row{"oops"}); !errors.As(err, &inv) {
		t.Fatalf("want InvalidFieldError, got %v", err)
	}
	if inv.Value != "oops" {
		t.Fatalf("InvalidFieldError.Value = %q", inv.Value)
	}
}

func TestCount(t *testing.T) {
	hdr := testHeaders(t, "A")
	r := New("n").Count()
	for i := 0; i < 3; i++ {
		if err := r.Fold(hdr, rows.Row{"x"}); err != nil {
			t.Fatalf("Fold: %v", err)
		}
	}
	if got := r.Value(); got != "3" {
		t.Fatalf("Value = %q, want 3", got)
	}
}

func TestFoldCustom(t *testing.T) {
	hdr := testHeaders(t, "Score")
	r := Fold(New("Total").From("Score"), uint64(0), func(acc uint64, field string) (uint64, error) {
		n, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return 0, &rows.InvalidFieldError{Value: field}
		}
		return acc + n, nil
	})

	for _, v := range []string{"1", "8", "3"} {
		if err := r.Fold(hdr, rows.Row{v}); err != nil {
			t.Fatalf("Fold(%s): %v", v, err)
		}
	}
	if got := r.Value(); got != "12" {
		t.Fatalf("Value = %q, want 12", got)
	}
}

func TestKeyOnlyKeyDefiningContribute(t *testing.T) {
	hdr := testHeaders(t, "Person", "Score")
	set := []Reducer{
		New("Person").KeepUnique(),
		New("Total").From("Score").Sum(),
		New("n").Count(),
	}

	k1, err := Key(set, hdr, rows.Row{"A", "1"})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	// Different aggregate column, same key column: identical key.
	k2, err := Key(set, hdr, rows.Row{"A", "999"})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if k1 != k2 {
		t.Fatal("aggregators must not contribute to the group key")
	}
	// Different key column: different key.
	k3, err := Key(set, hdr, rows.Row{"B", "1"})
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if k1 == k3 {
		t.Fatal("distinct key fields hashed to the same key")
	}
}

func TestKeyMissingColumn(t *testing.T) {
	hdr := testHeaders(t, "Score")
	set := []Reducer{New("Person").KeepUnique()}
	if _, err := Key(set, hdr, rows.Row{"1"}); err == nil {
		t.Fatal("want error for missing key column")
	}
}
