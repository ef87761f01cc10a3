// Package target implements pipeline sinks: CSV text destinations (writer,
// file path, in-memory string, stdout) and database loaders. CSV targets
// satisfy pipeline.Target; database loading goes through the batched CopyFn
// path instead, because databases want columns+values, not text rows.
package target

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"csvpipe/pkg/rows"
)

// CSV writes headers and rows as delimited text. Close flushes buffered
// output and reports any deferred write error.
type CSV struct {
	w *csv.Writer
}

// NewCSV wraps an io.Writer. The caller owns the writer's lifecycle; Close
// only flushes, it does not close the underlying writer.
func NewCSV(w io.Writer) *CSV {
	return &CSV{w: csv.NewWriter(w)}
}

// Comma sets the output field delimiter.
func (t *CSV) Comma(c rune) *CSV {
	t.w.Comma = c
	return t
}

func (t *CSV) WriteHeaders(h *rows.Headers) error {
	return t.w.Write(h.Row())
}

func (t *CSV) WriteRow(r rows.Row) error {
	return t.w.Write(r)
}

// Close flushes pending output.
func (t *CSV) Close() error {
	t.w.Flush()
	return t.w.Error()
}

// NewPath creates (or truncates) a CSV file at path, making parent
// directories as needed, and returns the target plus a close function the
// caller must run when done. The close function flushes and closes the file.
func NewPath(path string) (*CSV, func() error, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	t := NewCSV(f)
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		t.Comma('\t')
	}
	closeFn := func() error {
		if err := t.Close(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return t, closeFn, nil
}

// String collects CSV output in memory.
type String struct {
	*CSV
	sb *strings.Builder
}

func NewString() *String {
	sb := &strings.Builder{}
	return &String{CSV: NewCSV(sb), sb: sb}
}

// String flushes and returns everything written so far.
func (t *String) String() string {
	t.w.Flush()
	return t.sb.String()
}

// Stdout writes CSV to standard output.
func Stdout() *CSV {
	return NewCSV(os.Stdout)
}
