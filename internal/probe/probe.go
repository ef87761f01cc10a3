// Package probe samples a delimited file and infers a pipeline configuration
// from it: normalized column names, per-column types, and which columns look
// required. The output is a starting point for a pipeline config file, not a
// guarantee about the full file.
package probe

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"csvpipe/internal/config"
	"csvpipe/internal/source"
)

// Options control sampling behavior.
type Options struct {
	// Delimiter (single rune). If zero, it is chosen by extension like the
	// pipeline reader (.csv → ',', .tsv → tab).
	Delimiter rune
	// MaxRows bounds the number of data rows sampled. 0 means 1000.
	MaxRows int
}

// ColumnStat describes one sampled column.
type ColumnStat struct {
	// Name is the original header cell.
	Name string `json:"name"`
	// Normalized is the ascii snake_case form used by normalize_headers.
	Normalized string `json:"normalized"`
	// Type is the inferred type: "integer", "real", "date", "bool" or "text".
	Type string `json:"type"`
	// NonEmpty counts sampled rows with a non-blank value in this column.
	NonEmpty int `json:"non_empty"`
}

// Result is the outcome of sampling one file.
type Result struct {
	Columns     []ColumnStat `json:"columns"`
	RowsSampled int          `json:"rows_sampled"`
}

// File samples up to opt.MaxRows data rows from path and infers per-column
// stats. Short rows contribute to the columns they cover; long rows have
// their extra cells ignored.
func File(path string, opt Options) (Result, error) {
	delim := opt.Delimiter
	if delim == 0 {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".tsv":
			delim = '\t'
		default:
			delim = ','
		}
	}
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = 1000
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delim
	r.ReuseRecord = true
	r.FieldsPerRecord = -1

	hdr, err := r.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	cols := make([]ColumnStat, len(hdr))
	kinds := make([]typeSet, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		h = strings.TrimSpace(h)
		cols[i] = ColumnStat{Name: h, Normalized: source.NormalizeName(h)}
		kinds[i] = newTypeSet()
	}

	res := Result{Columns: cols}
	for res.RowsSampled < maxRows {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Best-effort sampling: skip unparsable lines.
			continue
		}
		res.RowsSampled++
		for i := range cols {
			if i >= len(rec) {
				continue
			}
			v := strings.TrimSpace(rec[i])
			if v == "" {
				continue
			}
			res.Columns[i].NonEmpty++
			kinds[i].observe(v)
		}
	}
	for i := range res.Columns {
		res.Columns[i].Type = kinds[i].resolve(res.Columns[i].NonEmpty)
	}
	return res, nil
}

// Suggest builds a pipeline config skeleton from a sample: headers are
// normalized, columns that were always populated in the sample become a
// require stage, and the target defaults to stdout so the suggestion is
// runnable as-is.
func Suggest(job, path string, res Result) config.Pipeline {
	var required []string
	for _, c := range res.Columns {
		if res.RowsSampled > 0 && c.NonEmpty == res.RowsSampled {
			required = append(required, c.Normalized)
		}
	}

	cfg := config.Pipeline{
		Job: source.NormalizeName(job),
		Sources: []config.Source{{
			Path:    path,
			Options: config.Options{"normalize_headers": true},
		}},
		Target: config.Target{Kind: "stdout"},
	}
	if len(required) > 0 {
		cfg.Stages = append(cfg.Stages, config.Stage{
			Kind:    "require",
			Options: config.Options{"columns": required},
		})
	}
	return cfg
}

// typeSet tracks which types every observed value of a column fits. A column
// resolves to the most specific type that all values satisfied.
type typeSet struct {
	integer bool
	real    bool
	date    bool
	boolean bool
}

func newTypeSet() typeSet {
	return typeSet{integer: true, real: true, date: true, boolean: true}
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func (s *typeSet) observe(v string) {
	if s.integer {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			s.integer = false
		}
	}
	if s.real {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			s.real = false
		}
	}
	if s.boolean {
		switch strings.ToLower(v) {
		case "true", "false", "0", "1":
		default:
			s.boolean = false
		}
	}
	if s.date {
		ok := false
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, v); err == nil {
				ok = true
				break
			}
		}
		if !ok {
			s.date = false
		}
	}
}

func (s typeSet) resolve(nonEmpty int) string {
	if nonEmpty == 0 {
		return "text"
	}
	switch {
	case s.boolean && !s.integer:
		return "bool"
	case s.integer:
		return "integer"
	case s.real:
		return "real"
	case s.date:
		return "date"
	default:
		return "text"
	}
}
