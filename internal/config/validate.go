// Package config provides the pipeline configuration model and helpers.
//
// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "target.kind",
// "stages[1].options.columns"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static validation / linting of a Pipeline.
//
// It does not mutate the pipeline. Callers may decide whether to treat
// warnings as fatal or not.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSources(p.Sources)...)
	issues = append(issues, validateStages(p.Stages)...)
	issues = append(issues, validateTarget(p.Target)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

func validateSources(ss []Source) []Issue {
	var issues []Issue

	if len(ss) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "sources",
			Message:  "at least one source is required",
		})
		return issues
	}
	for i, s := range ss {
		if strings.TrimSpace(s.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("sources[%d].path", i),
				Message:  "source requires a non-empty path",
			})
			continue
		}
		lower := strings.ToLower(s.Path)
		if !strings.HasSuffix(lower, ".csv") && !strings.HasSuffix(lower, ".tsv") {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     fmt.Sprintf("sources[%d].path", i),
				Message:  fmt.Sprintf("path %q has no .csv/.tsv extension; opening it will fail", s.Path),
			})
		}
	}
	return issues
}

func validateStages(ts []Stage) []Issue {
	var issues []Issue

	if len(ts) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "stages",
			Message:  "no stages configured; source rows will be written as-is",
		})
		return issues
	}

	knownKinds := map[string]struct{}{
		"select":    {},
		"rename":    {},
		"add_const": {},
		"upper":     {},
		"lower":     {},
		"trim":      {},
		"replace":   {},
		"filter_eq": {},
		"require":   {},
		"group":     {},
	}

	for i, t := range ts {
		path := fmt.Sprintf("stages[%d].kind", i)
		if strings.TrimSpace(t.Kind) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  "stage kind must not be empty",
			})
			continue
		}
		if _, ok := knownKinds[t.Kind]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path,
				Message:  fmt.Sprintf("unknown stage kind %q", t.Kind),
			})
			continue
		}
		issues = append(issues, validateStageOptions(i, t)...)
	}
	return issues
}

func validateStageOptions(i int, t Stage) []Issue {
	var issues []Issue
	opt := func(key string) string { return fmt.Sprintf("stages[%d].options.%s", i, key) }

	requireString := func(key string) {
		if strings.TrimSpace(t.Options.String(key, "")) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     opt(key),
				Message:  fmt.Sprintf("%s stage requires a non-empty %q option", t.Kind, key),
			})
		}
	}

	switch t.Kind {
	case "select", "require":
		if len(t.Options.StringSlice("columns")) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     opt("columns"),
				Message:  fmt.Sprintf("%s stage requires a non-empty columns list", t.Kind),
			})
		}
	case "rename":
		requireString("from")
		requireString("to")
	case "add_const":
		requireString("name")
	case "upper", "lower", "trim":
		requireString("column")
	case "replace":
		requireString("column")
		requireString("old")
	case "filter_eq":
		requireString("column")
	case "group":
		issues = append(issues, validateReducers(i, t.Options.ObjectSlice("reducers"))...)
	}
	return issues
}

func validateReducers(stage int, reducers []map[string]any) []Issue {
	var issues []Issue
	path := fmt.Sprintf("stages[%d].options.reducers", stage)

	if len(reducers) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path,
			Message:  "group stage requires a non-empty reducers list",
		})
		return issues
	}

	known := map[string]struct{}{"key": {}, "sum": {}, "count": {}}
	hasKey := false
	for j, r := range reducers {
		o := Options(r)
		kind := o.String("kind", "")
		if _, ok := known[kind]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("%s[%d].kind", path, j),
				Message:  fmt.Sprintf("unknown reducer kind %q", kind),
			})
			continue
		}
		if kind == "key" {
			hasKey = true
		}
		if strings.TrimSpace(o.String("name", "")) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("%s[%d].name", path, j),
				Message:  "reducer requires a non-empty output name",
			})
		}
	}
	if !hasKey {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     path,
			Message:  "group stage has no key reducer; all rows collapse into one group",
		})
	}
	return issues
}

func validateTarget(t Target) []Issue {
	var issues []Issue

	if strings.TrimSpace(t.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "target.kind",
			Message:  "target.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"csv":      {},
		"stdout":   {},
		"postgres": {},
		"sqlite":   {},
	}
	if _, ok := known[t.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "target.kind",
			Message:  fmt.Sprintf("unknown target kind %q", t.Kind),
		})
		return issues
	}

	switch t.Kind {
	case "csv":
		if strings.TrimSpace(t.CSV.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "target.csv.path",
				Message:  "csv target requires a non-empty path",
			})
		}
	case "postgres", "sqlite":
		if strings.TrimSpace(t.DB.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "target.db.dsn",
				Message:  "target.db.dsn must not be empty",
			})
		}
		if strings.TrimSpace(t.DB.Table) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "target.db.table",
				Message:  "target.db.table must not be empty",
			})
		}
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	if r.ChannelBuffer < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.channel_buffer",
			Message:  "channel_buffer must not be negative",
		})
	}
	return issues
}
