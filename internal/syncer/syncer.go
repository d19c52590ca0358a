// Package syncer implements full-collection resynchronization: stream every
// existing record from the primary store and drive it through the same
// serialize-and-write path as single-record indexing, with a bounded number
// of in-flight writes.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/esmirror/esmirror/internal/domain"
	"github.com/esmirror/esmirror/internal/metrics"
)

// DefaultInFlight bounds concurrent writes when nothing is configured.
const DefaultInFlight = 10

// ErrAborted is the terminal error of a job stopped by Abort.
var ErrAborted = errors.New("resync aborted")

// Writer is the consumer interface over the per-record index path.
type Writer interface {
	Index(ctx context.Context, collection string, rec *domain.Record, fields domain.FieldSet, opts domain.ConnOptions) error
}

// Cursor is the record-streaming collaborator provided by the primary
// store: a finite, single-pass, non-restartable lazy sequence. Next
// returns io.EOF after the last record.
type Cursor interface {
	Next(ctx context.Context) (*domain.Record, error)
}

// Engine runs resynchronization jobs.
type Engine struct {
	writer   Writer
	inFlight int
	logger   *zap.Logger
}

// New creates a sync engine.
func New(writer Writer, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{writer: writer, inFlight: DefaultInFlight, logger: logger}
}

// WithInFlight bounds the number of concurrently in-flight writes.
func (e *Engine) WithInFlight(n int) *Engine {
	if n > 0 {
		e.inFlight = n
	}
	return e
}

// Resync asynchronously (re)populates the index from every record the
// cursor yields and returns immediately with the tracking job.
//
// Individual write failures accumulate in the failure counter; the job
// still completes, because an operator resyncing a whole collection wants
// best-effort coverage, not all-or-nothing. Only a failure of the cursor
// itself fails the job.
func (e *Engine) Resync(
	ctx context.Context, collection string,
	cur Cursor, fields domain.FieldSet, opts domain.ConnOptions,
) *Job {
	job := newJob(collection)
	go e.run(ctx, job, cur, fields, opts)
	return job
}

func (e *Engine) run(
	ctx context.Context, job *Job,
	cur Cursor, fields domain.FieldSet, opts domain.ConnOptions,
) {
	job.state.Store(StateRunning)
	metrics.ResyncJobsRunning.Inc()
	defer metrics.ResyncJobsRunning.Dec()

	e.logger.Info("resync started",
		zap.String("collection", job.collection),
		zap.Int("in_flight", e.inFlight),
	)

	g := new(errgroup.Group)
	g.SetLimit(e.inFlight)

	var cursorErr error
	aborted := false

scan:
	for {
		select {
		case <-ctx.Done():
			cursorErr = ctx.Err()
			break scan
		case <-job.abort:
			aborted = true
			break scan
		default:
		}

		rec, err := cur.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			cursorErr = err
			break
		}

		job.scanned.Add(1)
		g.Go(func() error {
			if werr := e.writer.Index(ctx, job.collection, rec, fields, opts); werr != nil {
				job.failed.Add(1)
				metrics.ResyncRecordsTotal.WithLabelValues(job.collection, "failed").Inc()
			} else {
				job.indexed.Add(1)
				metrics.ResyncRecordsTotal.WithLabelValues(job.collection, "indexed").Inc()
			}
			return nil
		})
	}

	// Dispatched writes finish; interrupting them mid-request would leave
	// index state ambiguous.
	_ = g.Wait()

	progress := job.Progress()
	switch {
	case cursorErr != nil:
		e.logger.Error("resync failed",
			zap.String("collection", job.collection),
			zap.Int64("scanned", progress.Scanned),
			zap.Error(cursorErr),
		)
		job.finish(fmt.Errorf("stream %s: %w", job.collection, cursorErr))
	case aborted:
		e.logger.Warn("resync aborted",
			zap.String("collection", job.collection),
			zap.Int64("scanned", progress.Scanned),
			zap.Int64("indexed", progress.Indexed),
			zap.Int64("failed", progress.Failed),
		)
		job.finish(ErrAborted)
	default:
		e.logger.Info("resync completed",
			zap.String("collection", job.collection),
			zap.Int64("scanned", progress.Scanned),
			zap.Int64("indexed", progress.Indexed),
			zap.Int64("failed", progress.Failed),
		)
		job.finish(nil)
	}
}
