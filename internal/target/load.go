// Batched database loading. Rows are drained from the pipeline into a
// channel, grouped into batches, and handed to a backend's bulk-insert
// primitive through CopyFn. Backends (Postgres COPY, SQLite transactional
// INSERT) implement CopyFn with whatever is fastest for them; tests implement
// it with a fake to verify batching.
//
// On every successful flush a concise progress line is emitted with running
// totals and instantaneous rows/sec since the previous flush.
package target

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"csvpipe/internal/pipeline"
)

// CopyFn abstracts a backend's bulk insert. Implementations insert the given
// rows (values aligned to the columns order) and return the number of rows
// reported as inserted. Implementations should cancel promptly when ctx is
// done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize, and
// calls copyFn for each non-empty batch. It returns the total number of rows
// reported by copyFn and the first error encountered. The final partial batch
// is flushed when the channel closes. Returns (total, ctx.Err()) on
// cancellation.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total       int64
		batches     int64
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		// Reuse the backing array across batches.
		batch = batch[:0]
		if err != nil {
			log.Printf("loader: copy failed after=%d total=%d err=%v", n, total, err)
			return err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		log.Printf(
			"batch #%d: rps=%.0f inserted=%d total_inserted=%d elapsed=%s",
			batches, rps, n, total, now.Sub(start).Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				log.Printf("loader: input closed, total_inserted=%d", total)
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

// Drain pulls p to exhaustion and sends each row as an []any on out. Stream
// errors are passed to onErr: return true to drop the row and continue, false
// to stop draining and return the error. A nil onErr drops bad rows with a
// log line. Drain closes out before returning so a paired LoadBatches can
// flush its final batch.
func Drain(ctx context.Context, p *pipeline.Pipeline, out chan<- []any, onErr func(error) bool) error {
	defer close(out)
	if onErr == nil {
		onErr = func(err error) bool {
			log.Printf("drain: dropping row: %v", err)
			return true
		}
	}
	for {
		r, err := p.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if onErr(err) {
				continue
			}
			return err
		}
		vals := make([]any, len(r))
		for i, f := range r {
			vals[i] = f
		}
		select {
		case out <- vals:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
