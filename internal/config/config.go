// Package config defines the canonical, JSON-serializable configuration model
// for declarative pipelines. It is intentionally small and explicit so that
// pipeline files can be loaded from disk and passed through the program
// without additional glue code.
//
// Example (trimmed):
//
//	{
//	  "job": "daily_scores",
//	  "sources": [ { "path": "scores.csv", "options": { "normalize_headers": true } } ],
//	  "stages": [
//	    { "kind": "select", "options": { "columns": ["person", "score"] } },
//	    { "kind": "group",  "options": { "reducers": [
//	        { "kind": "key",   "name": "person" },
//	        { "kind": "sum",   "name": "total", "from": "score" }
//	    ] } }
//	  ],
//	  "target": { "kind": "csv", "csv": { "path": "out/totals.csv" } },
//	  "runtime": { "batch_size": 1000, "channel_buffer": 256 }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run; it labels log lines and pushed metrics.
	Job string `json:"job"`

	// Sources lists the input files, read in order. More than one source
	// means concatenation; all sources must share a header layout.
	Sources []Source `json:"sources"`

	// Stages lists the ordered transformations applied to the row stream.
	// Each stage has a kind and an options bag whose shape is defined by the
	// stage implementation.
	Stages []Stage `json:"stages"`

	// Target describes where the transformed rows are written.
	Target Target `json:"target"`

	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls batching and channel buffer sizes on the database
// loading path.
type RuntimeConfig struct {
	BatchSize     int `json:"batch_size"`
	ChannelBuffer int `json:"channel_buffer"`
}

// Source identifies one input file.
type Source struct {
	// Path is the local filesystem path; the extension selects the
	// delimiter (.csv or .tsv).
	Path string `json:"path"`

	// Options is a free-form map interpreted by the reader. Typical keys:
	// lazy_quotes (bool), normalize_headers (bool), header_map (object).
	Options Options `json:"options"`
}

// Stage defines a single transformation step.
type Stage struct {
	// Kind selects the stage implementation (e.g. "select", "rename",
	// "add_const", "upper", "filter_eq", "require", "group").
	Kind string `json:"kind"`

	// Options is a free-form map interpreted by the selected stage.
	Options Options `json:"options"`
}

// Target selects the sink used to persist the output rows.
type Target struct {
	// Kind selects the target implementation: "csv", "stdout", "postgres"
	// or "sqlite".
	Kind string `json:"kind"`

	// CSV carries options for the "csv" target kind.
	CSV TargetCSV `json:"csv"`

	// DB carries options for the database target kinds.
	DB DBConfig `json:"db"`
}

// TargetCSV holds configuration for the "csv" target kind.
type TargetCSV struct {
	Path string `json:"path"`
}

// DBConfig configures a database sink.
type DBConfig struct {
	// DSN is the connection string (pgxpool syntax for postgres, a file
	// path or file: URI for sqlite).
	DSN string `json:"dsn"`

	// Table is the destination table name, optionally schema-qualified.
	Table string `json:"table"`
}

// Load reads and decodes a pipeline file.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read pipeline config: %w", err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("decode pipeline config %s: %w", path, err)
	}
	return p, nil
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal type coercion and returns provided defaults when a
// key is absent or of an unexpected type. Used for source/stage-specific
// configuration where the shape varies by implementation.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// so this accepts float64 and casts to int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. Useful for single-character settings such as a delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty
// map when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of
// strings. Returns nil when the key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// ObjectSlice returns the elements of an array value that are JSON objects.
// Returns nil when the key is missing or the value is not an array.
func (o Options) ObjectSlice(key string) []map[string]any {
	v, ok := o[key]
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, x := range arr {
		if m, ok := x.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// UnmarshalJSON decodes a missing or null "options" object to a non-nil,
// empty Options map, removing the need to nil-check at call sites.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
