package config

import (
	"fmt"
	"strings"

	"csvpipe/internal/pipeline"
	"csvpipe/internal/reduce"
	"csvpipe/internal/source"
	"csvpipe/pkg/rows"
)

// Build assembles a runnable pipeline from a decoded configuration: it opens
// every source, concatenates them when there is more than one, and applies
// the configured stages in order. The returned close function releases all
// opened files and must be run when the pipeline is abandoned or exhausted.
//
// Build reports configuration-level failures (unknown kinds, unopenable
// files) directly; structural stage errors (duplicate columns, bad renames)
// surface through the pipeline's own Err in the usual way.
func Build(cfg Pipeline) (*pipeline.Pipeline, func() error, error) {
	if len(cfg.Sources) == 0 {
		return nil, nil, fmt.Errorf("build: at least one source is required")
	}

	var closers []func() error
	closeAll := func() error {
		var first error
		for _, c := range closers {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	pipes := make([]*pipeline.Pipeline, 0, len(cfg.Sources))
	for i, s := range cfg.Sources {
		p, closeFn, err := source.FromPath(s.Path, sourceOptions(s.Options))
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("build: open sources[%d] %s: %w", i, s.Path, err)
		}
		closers = append(closers, closeFn)
		pipes = append(pipes, p)
	}

	p := pipes[0]
	if len(pipes) > 1 {
		var err error
		p, err = pipeline.Concat(pipes...)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("build: concat sources: %w", err)
		}
	}

	for i, st := range cfg.Stages {
		var err error
		p, err = applyStage(p, st)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("build: stages[%d] (%s): %w", i, st.Kind, err)
		}
	}
	return p, closeAll, nil
}

func sourceOptions(o Options) source.Options {
	return source.Options{
		Comma:            o.Rune("comma", 0),
		LazyQuotes:       o.Bool("lazy_quotes", false),
		NormalizeHeaders: o.Bool("normalize_headers", false),
		HeaderMap:        o.StringMap("header_map"),
	}
}

func applyStage(p *pipeline.Pipeline, st Stage) (*pipeline.Pipeline, error) {
	o := st.Options
	switch st.Kind {
	case "select":
		return p.Select(o.StringSlice("columns")...), nil

	case "rename":
		return p.RenameCol(o.String("from", ""), o.String("to", "")), nil

	case "add_const":
		value := o.String("value", "")
		return p.AddCol(o.String("name", ""), func(*rows.Headers, rows.Row) (string, error) {
			return value, nil
		}), nil

	case "upper":
		return p.MapCol(o.String("column", ""), func(f string) (string, error) {
			return strings.ToUpper(f), nil
		}), nil

	case "lower":
		return p.MapCol(o.String("column", ""), func(f string) (string, error) {
			return strings.ToLower(f), nil
		}), nil

	case "trim":
		return p.MapCol(o.String("column", ""), func(f string) (string, error) {
			return strings.TrimSpace(f), nil
		}), nil

	case "replace":
		old, repl := o.String("old", ""), o.String("new", "")
		return p.MapCol(o.String("column", ""), func(f string) (string, error) {
			return strings.ReplaceAll(f, old, repl), nil
		}), nil

	case "filter_eq":
		column := o.String("column", "")
		value := o.String("value", "")
		negate := o.Bool("negate", false)
		return p.Filter(func(h *rows.Headers, r rows.Row) (bool, error) {
			f, ok := h.Field(r, column)
			if !ok {
				return false, &rows.MissingColumnError{Column: column}
			}
			return (f == value) != negate, nil
		}), nil

	case "require":
		columns := o.StringSlice("columns")
		return p.Validate(func(h *rows.Headers, r rows.Row) error {
			for _, c := range columns {
				f, ok := h.Field(r, c)
				if !ok {
					return &rows.MissingColumnError{Column: c}
				}
				if strings.TrimSpace(f) == "" {
					return fmt.Errorf("required column %q is empty", c)
				}
			}
			return nil
		}), nil

	case "group":
		specs := o.ObjectSlice("reducers")
		factory, err := reducerFactory(specs)
		if err != nil {
			return nil, err
		}
		return p.GroupReduce(factory), nil

	default:
		return nil, fmt.Errorf("unknown stage kind %q", st.Kind)
	}
}

// reducerFactory returns a function producing a fresh reducer set per group,
// so per-group state is never shared.
func reducerFactory(specs []map[string]any) (func() []reduce.Reducer, error) {
	type def struct {
		kind, name, from string
	}
	defs := make([]def, 0, len(specs))
	for j, s := range specs {
		o := Options(s)
		d := def{
			kind: o.String("kind", ""),
			name: o.String("name", ""),
			from: o.String("from", ""),
		}
		switch d.kind {
		case "key", "sum", "count":
		default:
			return nil, fmt.Errorf("reducers[%d]: unknown reducer kind %q", j, d.kind)
		}
		if d.name == "" {
			return nil, fmt.Errorf("reducers[%d]: output name must not be empty", j)
		}
		defs = append(defs, d)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("group stage requires at least one reducer")
	}

	return func() []reduce.Reducer {
		set := make([]reduce.Reducer, 0, len(defs))
		for _, d := range defs {
			spec := reduce.New(d.name)
			if d.from != "" {
				spec = spec.From(d.from)
			}
			switch d.kind {
			case "key":
				set = append(set, spec.KeepUnique())
			case "sum":
				set = append(set, spec.Sum())
			case "count":
				set = append(set, spec.Count())
			}
		}
		return set
	}, nil
}
