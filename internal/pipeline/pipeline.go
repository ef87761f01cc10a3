// Package pipeline implements the staged row-stream operator chain: a lazy,
// pull-based composition of stages (add column, map, filter, select, rename,
// validate) optionally terminated by a group-reduce stage and a sink.
//
// Design goals:
//   - Consumer-driven: nothing runs ahead of the consumer; each pull recurses
//     synchronously through the whole chain. No goroutines, no locks.
//   - Errors are values in the stream: a stage that cannot process one row
//     emits the error in place of the row and stays pollable. One bad row
//     never poisons the stream.
//   - Structural mistakes (duplicate columns at attach, rename collisions)
//     are configuration errors and fail the whole pipeline up front, never
//     lazily mid-stream.
//   - Each stage freezes its own Headers snapshot at attach time, so later
//     layout changes can never retroactively affect an attached stage.
package pipeline

import (
	"encoding/csv"
	"io"
	"strings"

	"csvpipe/pkg/rows"
)

// Iterator pulls the next row or error from a stream. io.EOF signals
// exhaustion; any other error is a stream item and the iterator remains
// pollable afterwards.
type Iterator interface {
	Next() (rows.Row, error)
}

// Target consumes the pipeline's output. WriteHeaders is called exactly once
// before any data row. Implementations live in internal/target.
type Target interface {
	WriteHeaders(h *rows.Headers) error
	WriteRow(r rows.Row) error
}

// Pipeline is an ordered composition of stages over one evolving Headers
// snapshot. Stage methods chain; the first structural error is recorded and
// surfaced by the terminal operations, after which further stages are
// ignored.
type Pipeline struct {
	headers *rows.Headers
	it      Iterator
	err     error
}

// New wraps a row source. headers is the source's canonical column layout
// and it yields the data rows.
func New(headers *rows.Headers, it Iterator) *Pipeline {
	return &Pipeline{headers: headers, it: it}
}

// Headers returns the current column layout at the tail of the chain.
func (p *Pipeline) Headers() *rows.Headers { return p.headers }

// Err returns the structural error recorded during construction, if any.
func (p *Pipeline) Err() error { return p.err }

func (p *Pipeline) setErr(err error) {
	if p.err == nil {
		p.err = err
	}
}

// Next pulls the next row from the tail of the chain. io.EOF signals
// exhaustion. A non-EOF error is a stream item: the caller may keep pulling,
// the stream is not poisoned by one bad row. A structural construction error
// is returned unconditionally.
func (p *Pipeline) Next() (rows.Row, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.it.Next()
}

// Run pulls the pipeline to completion and returns the first error
// encountered, or nil once the stream is exhausted. Stopping at the first
// error is this caller's decision; the stream itself would remain pollable.
func (p *Pipeline) Run() error {
	for {
		_, err := p.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// CollectIntoString runs the pipeline and renders headers plus all rows as
// CSV text. The first stream error aborts the collection.
func (p *Pipeline) CollectIntoString() (string, error) {
	if p.err != nil {
		return "", p.err
	}
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(p.headers.Row()); err != nil {
		return "", err
	}
	for {
		r, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if err := w.Write(r); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Flush appends a sink stage: rows flow through unchanged, each one written
// to t on the way. Headers are written once, before the first pull's output.
// Write failures are forwarded as stream errors tagged with source index 0.
func (p *Pipeline) Flush(t Target) *Pipeline {
	if p.err != nil {
		return p
	}
	p.it = &flushStage{up: p.it, target: t, headers: p.headers.Clone()}
	return p
}

type flushStage struct {
	up      Iterator
	target  Target
	headers *rows.Headers
	written bool
}

func (s *flushStage) Next() (rows.Row, error) {
	if !s.written {
		s.written = true
		if err := s.target.WriteHeaders(s.headers); err != nil {
			return nil, rows.TagSource(0, err)
		}
	}
	r, err := s.up.Next()
	if err != nil {
		return nil, err
	}
	if err := s.target.WriteRow(r); err != nil {
		return nil, rows.TagSource(0, err)
	}
	return r, nil
}
