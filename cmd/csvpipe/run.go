// Streaming execution of a configured pipeline: source rows flow through the
// stage chain and into the configured target. Bad rows are dropped before the
// target (fail-soft semantics), counted, and summarized at the end of the run.
//
// The database path runs two goroutines under an errgroup: one drains the
// pipeline into a channel of value slices, the other groups them into batches
// and COPYs/INSERTs them.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"csvpipe/internal/config"
	"csvpipe/internal/metrics"
	"csvpipe/internal/pipeline"
	"csvpipe/internal/target"
)

const (
	defaultBatchSize     = 1000
	defaultChannelBuffer = 256
)

// run builds the pipeline from cfg and executes it against the configured
// target.
func run(ctx context.Context, cfg config.Pipeline, verbose bool) error {
	buildStart := time.Now()
	p, closeFn, err := config.Build(cfg)
	metrics.RecordStep(cfg.Job, "build", err, time.Since(buildStart))
	if err != nil {
		return err
	}
	defer closeFn()

	runStart := time.Now()
	switch cfg.Target.Kind {
	case "csv":
		err = runCSV(cfg, p)
	case "stdout":
		err = runStdout(cfg, p)
	case "postgres", "sqlite":
		err = runDB(ctx, cfg, p, verbose)
	default:
		err = fmt.Errorf("unknown target kind %q", cfg.Target.Kind)
	}
	metrics.RecordStep(cfg.Job, "run", err, time.Since(runStart))
	return err
}

func runCSV(cfg config.Pipeline, p *pipeline.Pipeline) error {
	t, closeFn, err := target.NewPath(cfg.Target.CSV.Path)
	if err != nil {
		return err
	}
	if err := drainToTarget(cfg.Job, p, t); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func runStdout(cfg config.Pipeline, p *pipeline.Pipeline) error {
	t := target.Stdout()
	if err := drainToTarget(cfg.Job, p, t); err != nil {
		return err
	}
	return t.Close()
}

// drainToTarget pulls the flushed pipeline to exhaustion. Stream errors are
// dropped fail-soft: the offending row never reaches the target and the
// stream keeps going.
func drainToTarget(job string, p *pipeline.Pipeline, t pipeline.Target) error {
	p = p.Flush(t)
	if p.Err() != nil {
		return p.Err()
	}
	var emitted, dropped int64
	for {
		_, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			dropped++
			log.Printf("run: dropping row: %v", err)
			continue
		}
		emitted++
		if emitted%100000 == 0 {
			log.Printf("run: progress emitted=%d dropped=%d", emitted, dropped)
		}
	}
	metrics.RecordRows(job, "emitted", emitted)
	metrics.RecordRows(job, "dropped", dropped)
	log.Printf("run: emitted=%d dropped=%d", emitted, dropped)
	return nil
}

func runDB(ctx context.Context, cfg config.Pipeline, p *pipeline.Pipeline, verbose bool) error {
	if p.Err() != nil {
		return p.Err()
	}
	columns := p.Headers().Row()

	var copyFn target.CopyFn
	switch cfg.Target.Kind {
	case "postgres":
		sink, closeFn, err := target.NewPostgres(ctx, target.PostgresConfig{
			DSN:   cfg.Target.DB.DSN,
			Table: cfg.Target.DB.Table,
		})
		if err != nil {
			return err
		}
		defer closeFn()
		if err := sink.Exec(ctx, createTableSQL(cfg.Target.DB.Table, columns)); err != nil {
			return err
		}
		copyFn = sink.CopyFrom

	case "sqlite":
		sink, closeFn, err := target.NewSQLite(ctx, target.SQLiteConfig{
			DSN:   cfg.Target.DB.DSN,
			Table: cfg.Target.DB.Table,
		})
		if err != nil {
			return err
		}
		defer closeFn()
		if err := sink.Exec(ctx, createTableSQL(cfg.Target.DB.Table, columns)); err != nil {
			return err
		}
		copyFn = sink.CopyFrom
	}

	batchSize := cfg.Runtime.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	buffer := cfg.Runtime.ChannelBuffer
	if buffer <= 0 {
		buffer = defaultChannelBuffer
	}
	if verbose {
		log.Printf("run: loading table=%s columns=%d batch_size=%d", cfg.Target.DB.Table, len(columns), batchSize)
	}

	var dropped, batches int64
	countingCopy := func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
		n, err := copyFn(ctx, cols, rows)
		if err == nil {
			batches++
		}
		return n, err
	}

	rowsCh := make(chan []any, buffer)
	var total int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return target.Drain(gctx, p, rowsCh, func(err error) bool {
			dropped++
			log.Printf("run: dropping row: %v", err)
			return true
		})
	})
	g.Go(func() error {
		var err error
		total, err = target.LoadBatches(gctx, columns, rowsCh, batchSize, countingCopy)
		return err
	})
	err := g.Wait()

	metrics.RecordRows(cfg.Job, "inserted", total)
	metrics.RecordRows(cfg.Job, "dropped", dropped)
	metrics.RecordBatches(cfg.Job, batches)
	log.Printf("run: inserted=%d dropped=%d batches=%d", total, dropped, batches)
	return err
}

// createTableSQL builds a CREATE TABLE IF NOT EXISTS statement with one TEXT
// column per pipeline output column. Both backends accept double-quoted
// identifiers; embedded quotes are escaped.
func createTableSQL(table string, columns []string) string {
	quote := func(id string) string {
		return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
	}
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quote(c) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		strings.Join(parts, "."), strings.Join(cols, ", "))
}
