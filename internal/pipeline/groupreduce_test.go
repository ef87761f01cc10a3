package pipeline

import (
	"errors"
	"io"
	"testing"

	"csvpipe/internal/reduce"
	"csvpipe/pkg/rows"
)

func TestGroupReduceCountRoundTrip(t *testing.T) {
	p := fromRows(t, rows.Row{"Person", "Score"},
		rows.Row{"A", "1"},
		rows.Row{"A", "1"},
		rows.Row{"B", "1"},
	).GroupReduce(func() []reduce.Reducer {
		return []reduce.Reducer{
			reduce.New("Person").KeepUnique(),
			reduce.New("Rows").Count(),
		}
	})

	if !p.Headers().Row().Equal(rows.Row{"Person", "Rows"}) {
		t.Fatalf("headers = %v", p.Headers().Row())
	}
	got := drain(t, p)
	want := []rows.Row{{"A", "2"}, {"B", "1"}}
	if len(got) != len(want) {
		t.Fatalf("groups = %v", got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("group %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGroupReduceSum(t *testing.T) {
	p := fromRows(t, rows.Row{"Person", "Score"},
		rows.Row{"A", "1"},
		rows.Row{"A", "8"},
		rows.Row{"B", "3"},
		rows.Row{"B", "4"},
	).GroupReduce(func() []reduce.Reducer {
		return []reduce.Reducer{
			reduce.New("Person").KeepUnique(),
			reduce.New("Total score").From("Score").Sum(),
		}
	})

	got, err := p.CollectIntoString()
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	want := "Person,Total score\n" +
		"A,9\n" +
		"B,7\n"
	if got != want {
		t.Fatalf("collected:\n%s\nwant:\n%s", got, want)
	}
}

/*
TestGroupReduceFirstSeenOrder pins the emission-order invariant: output order
equals the order in which distinct group keys were first observed, no matter
how many later rows reinforce earlier groups.
*/
func TestGroupReduceFirstSeenOrder(t *testing.T) {
	p := fromRows(t, rows.Row{"K", "V"},
		rows.Row{"z", "1"},
		rows.Row{"a", "1"},
		rows.Row{"z", "1"},
		rows.Row{"m", "1"},
		rows.Row{"a", "1"},
		rows.Row{"z", "1"},
	).GroupReduce(func() []reduce.Reducer {
		return []reduce.Reducer{
			reduce.New("K").KeepUnique(),
			reduce.New("n").Count(),
		}
	})

	got := drain(t, p)
	want := []rows.Row{{"z", "3"}, {"a", "2"}, {"m", "1"}}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("group %d = %v, want %v (first-seen order)", i, got[i], want[i])
		}
	}
}

/*
TestGroupReduceOrderInsensitiveWithinGroup permutes the rows belonging to one
group while keeping all other rows fixed; finalized values must not change.
*/
func TestGroupReduceOrderInsensitiveWithinGroup(t *testing.T) {
	run := func(scores []string) []rows.Row {
		data := []rows.Row{{"other", "100"}}
		for _, s := range scores {
			data = append(data, rows.Row{"A", s})
		}
		p := fromRows(t, rows.Row{"Person", "Score"}, data...).
			GroupReduce(func() []reduce.Reducer {
				return []reduce.Reducer{
					reduce.New("Person").KeepUnique(),
					reduce.New("Sum").From("Score").Sum(),
					reduce.New("Count").Count(),
				}
			})
		return drain(t, p)
	}

	a := run([]string{"1", "8", "3"})
	b := run([]string{"3", "1", "8"})
	if len(a) != 2 || len(b) != 2 {
		t.Fatalf("groups: %v vs %v", a, b)
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Fatalf("permutation changed group %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestGroupReduceExactDecimalSum(t *testing.T) {
	p := fromRows(t, rows.Row{"K", "Amount"},
		rows.Row{"X", "0.0002717"},
		rows.Row{"X", "0.0012421"},
		rows.Row{"X", "0.0002717"},
	).GroupReduce(func() []reduce.Reducer {
		return []reduce.Reducer{
			reduce.New("K").KeepUnique(),
			reduce.New("Amount").Sum(),
		}
	})

	got := drain(t, p)
	if len(got) != 1 || !got[0].Equal(rows.Row{"X", "0.0017855"}) {
		t.Fatalf("sum = %v, want [X 0.0017855]", got)
	}
}

func TestGroupReduceFoldErrorKeepsGroupAlive(t *testing.T) {
	p := fromRows(t, rows.Row{"Person", "Score"},
		rows.Row{"A", "1"},
		rows.Row{"A", "oops"},
		rows.Row{"A", "2"},
	).GroupReduce(func() []reduce.Reducer {
		return []reduce.Reducer{
			reduce.New("Person").KeepUnique(),
			reduce.New("Total").From("Score").Sum(),
		}
	})

	// The bad row surfaces immediately as a stream error.
	var inv *rows.InvalidFieldError
	if _, err := p.Next(); !errors.As(err, &inv) {
		t.Fatalf("want InvalidFieldError, got %v", err)
	}
	// The group still finalizes from the good rows.
	r, err := p.Next()
	if err != nil {
		t.Fatalf("after fold error: %v", err)
	}
	if !r.Equal(rows.Row{"A", "3"}) {
		t.Fatalf("group = %v, want [A 3]", r)
	}
	if _, err := p.Next(); err != io.EOF {
		t.Fatalf("want EOF, got %v", err)
	}
}

func TestGroupReduceUpstreamErrorPassthrough(t *testing.T) {
	h, _ := rows.HeadersFromRow(rows.Row{"K"})
	p := New(h, &sliceIter{items: []item{
		{row: rows.Row{"a"}},
		{err: &rows.InvalidFieldError{Value: "upstream"}},
		{row: rows.Row{"b"}},
	}}).GroupReduce(func() []reduce.Reducer {
		return []reduce.Reducer{
			reduce.New("K").KeepUnique(),
			reduce.New("n").Count(),
		}
	})

	var inv *rows.InvalidFieldError
	if _, err := p.Next(); !errors.As(err, &inv) {
		t.Fatalf("want upstream error forwarded, got %v", err)
	}
	got := drain(t, p)
	want := []rows.Row{{"a", "1"}, {"b", "1"}}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("group %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGroupReduceEmptyUpstream(t *testing.T) {
	p := fromRows(t, rows.Row{"K", "V"}).
		GroupReduce(func() []reduce.Reducer {
			return []reduce.Reducer{
				reduce.New("K").KeepUnique(),
				reduce.New("n").Count(),
			}
		})
	if got := drain(t, p); len(got) != 0 {
		t.Fatalf("groups from empty stream = %v", got)
	}
}

func TestGroupReduceDuplicateOutputNameIsStructural(t *testing.T) {
	p := fromRows(t, rows.Row{"K"}).
		GroupReduce(func() []reduce.Reducer {
			return []reduce.Reducer{
				reduce.New("K").KeepUnique(),
				reduce.New("K").Count(),
			}
		})
	var dup *rows.DuplicateColumnError
	if !errors.As(p.Err(), &dup) {
		t.Fatalf("want structural DuplicateColumnError, got %v", p.Err())
	}
}

func TestGroupReduceNoEmissionBeforeExhaustion(t *testing.T) {
	// An infinite-ish upstream: the barrier must keep accumulating, which we
	// observe by checking that a bounded stream yields nothing until EOF and
	// then everything.
	p := fromRows(t, rows.Row{"K", "V"},
		rows.Row{"a", "1"}, rows.Row{"b", "2"}, rows.Row{"a", "3"},
	).GroupReduce(func() []reduce.Reducer {
		return []reduce.Reducer{
			reduce.New("K").KeepUnique(),
			reduce.New("n").Count(),
		}
	})

	// First pull already sees the fully drained registry.
	first, err := p.Next()
	if err != nil {
		t.Fatalf("first pull: %v", err)
	}
	if !first.Equal(rows.Row{"a", "2"}) {
		t.Fatalf("first group = %v, want [a 2] (all rows folded before emission)", first)
	}
}

func BenchmarkGroupReduceSum(b *testing.B) {
	b.ReportAllocs()
	data := make([]rows.Row, 0, 1000)
	for i := 0; i < 1000; i++ {
		data = append(data, rows.Row{string(rune('a' + i%26)), "1.5"})
	}
	h, _ := rows.HeadersFromRow(rows.Row{"K", "V"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		items := make([]item, len(data))
		for j, r := range data {
			items[j] = item{row: r}
		}
		p := New(h.Clone(), &sliceIter{items: items}).GroupReduce(func() []reduce.Reducer {
			return []reduce.Reducer{
				reduce.New("K").KeepUnique(),
				reduce.New("V").Sum(),
			}
		})
		for {
			if _, err := p.Next(); err == io.EOF {
				break
			}
		}
	}
}
