package pipeline

import (
	"fmt"
	"io"

	"csvpipe/pkg/rows"
)

// Concat chains pipelines end to end: rows of pipeline i are exhausted
// before pipeline i+1 begins, and every forwarded error is re-tagged with
// the index of the pipeline that produced it.
//
// At each boundary the incoming pipeline's header row must equal the first
// pipeline's. On mismatch the chain emits a single HeaderMismatchError
// tagged with the offending index and stops advancing; the mismatched
// source is never read.
//
// A structural error in any member pipeline fails the concatenation up
// front.
func Concat(pipes ...*Pipeline) (*Pipeline, error) {
	if len(pipes) == 0 {
		return nil, fmt.Errorf("concat: at least one pipeline required")
	}
	for i, sub := range pipes {
		if err := sub.Err(); err != nil {
			return nil, rows.TagSource(i, err)
		}
	}
	first := pipes[0].Headers()
	out := New(first.Clone(), &concatIter{pipes: pipes, want: first.Row()})
	return out, nil
}

type concatIter struct {
	pipes    []*Pipeline
	want     rows.Row
	cur      int
	verified int
	done     bool
}

func (c *concatIter) Next() (rows.Row, error) {
	if c.done {
		return nil, io.EOF
	}
	for {
		if c.cur >= len(c.pipes) {
			c.done = true
			return nil, io.EOF
		}
		sub := c.pipes[c.cur]
		if c.cur != c.verified {
			if got := sub.Headers().Row(); !got.Equal(c.want) {
				err := rows.TagSource(c.cur, &rows.HeaderMismatchError{
					Expected: c.want,
					Got:      got,
				})
				c.done = true
				return nil, err
			}
			c.verified = c.cur
		}
		r, err := sub.Next()
		if err == io.EOF {
			c.cur++
			continue
		}
		if err != nil {
			return nil, rows.TagSource(c.cur, err)
		}
		return r, nil
	}
}
