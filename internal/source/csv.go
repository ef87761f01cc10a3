// Package source builds pipelines from row sources: delimited files, readers,
// and in-memory rows. It owns the lexical side of the format (encoding/csv,
// BOM stripping, delimiter sniffing by extension) so the pipeline itself only
// ever sees rows.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"csvpipe/internal/pipeline"
	"csvpipe/pkg/rows"
)

// Options tunes CSV reading. The zero value reads comma-separated input with
// trimmed header cells and no name mapping.
type Options struct {
	// Comma is the field delimiter; 0 means ','.
	Comma rune
	// LazyQuotes tolerates unescaped quotes inside fields.
	LazyQuotes bool
	// NormalizeHeaders folds header names to ascii snake_case (diacritics
	// removed), matching how probed configurations name columns.
	NormalizeHeaders bool
	// HeaderMap maps source header names to canonical names. Applied after
	// normalization when both are set.
	HeaderMap map[string]string
}

// FromReader reads a canonical header row from r and returns a pipeline over
// the remaining rows. Duplicate header names fail construction.
func FromReader(r io.Reader, opt Options) (*pipeline.Pipeline, error) {
	comma := opt.Comma
	if comma == 0 {
		comma = ','
	}
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1 // tolerant; arity errors surface per stage

	hdr, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	names := make(rows.Row, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		h = strings.TrimSpace(h)
		if opt.NormalizeHeaders {
			h = NormalizeName(h)
		}
		if mapped, ok := opt.HeaderMap[h]; ok {
			h = mapped
		}
		names[i] = h
	}
	headers, err := rows.HeadersFromRow(names)
	if err != nil {
		return nil, err
	}
	return pipeline.New(headers, &csvIter{cr: cr}), nil
}

// FromPath opens a delimited file and returns a pipeline plus a close
// function the caller must run when done (including on early abandonment).
// The delimiter is chosen by extension: .csv → comma, .tsv → tab; any other
// extension is a construction error.
func FromPath(path string, opt Options) (*pipeline.Pipeline, func() error, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		opt.Comma = ','
	case ".tsv":
		opt.Comma = '\t'
	default:
		return nil, nil, fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	p, err := FromReader(f, opt)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return p, f.Close, nil
}

// FromRows builds a pipeline over in-memory rows.
func FromRows(header rows.Row, data []rows.Row) (*pipeline.Pipeline, error) {
	headers, err := rows.HeadersFromRow(header)
	if err != nil {
		return nil, err
	}
	return pipeline.New(headers, &rowsIter{data: data}), nil
}

// csvIter adapts csv.Reader to the pipeline's pull contract. Parse failures
// become tagged stream errors; the reader stays pollable afterwards.
type csvIter struct {
	cr   *csv.Reader
	line int
}

func (it *csvIter) Next() (rows.Row, error) {
	it.line++
	rec, err := it.cr.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, rows.TagSource(0, fmt.Errorf("csv read line %d: %w", it.line, err))
	}
	// csv.Reader reuses its record buffer; copy out.
	out := make(rows.Row, len(rec))
	copy(out, rec)
	return out, nil
}

type rowsIter struct {
	data []rows.Row
	pos  int
}

func (it *rowsIter) Next() (rows.Row, error) {
	if it.pos >= len(it.data) {
		return nil, io.EOF
	}
	r := it.data[it.pos]
	it.pos++
	return r, nil
}
