package syncer

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a resynchronization job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Progress holds a job's counters. Scanned counts records read from the
// cursor, Indexed and Failed count completed writes.
type Progress struct {
	Scanned int64 `json:"scanned"`
	Indexed int64 `json:"indexed"`
	Failed  int64 `json:"failed"`
}

// Job tracks one running resynchronization. Created by Engine.Resync,
// observable through State/Progress and the Done channel.
type Job struct {
	collection string

	state   atomic.Value // State
	scanned atomic.Int64
	indexed atomic.Int64
	failed  atomic.Int64

	abort     chan struct{}
	abortOnce sync.Once

	done chan struct{}
	err  error // written once before done is closed
}

func newJob(collection string) *Job {
	j := &Job{
		collection: collection,
		abort:      make(chan struct{}),
		done:       make(chan struct{}),
	}
	j.state.Store(StatePending)
	return j
}

// Collection returns the target collection name.
func (j *Job) Collection() string { return j.collection }

// State returns the current lifecycle state.
func (j *Job) State() State { return j.state.Load().(State) }

// Progress returns a snapshot of the counters.
func (j *Job) Progress() Progress {
	return Progress{
		Scanned: j.scanned.Load(),
		Indexed: j.indexed.Load(),
		Failed:  j.failed.Load(),
	}
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the terminal error, nil unless the job failed. Only valid
// after Done is closed.
func (j *Job) Err() error { return j.err }

// Wait blocks until the job terminates or ctx is cancelled.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-j.done:
		return j.err
	}
}

// Abort stops issuing new writes. Writes already dispatched are allowed to
// finish, then the job reports failed with its partial progress.
func (j *Job) Abort() {
	j.abortOnce.Do(func() { close(j.abort) })
}

func (j *Job) finish(err error) {
	if err != nil {
		j.err = err
		j.state.Store(StateFailed)
	} else {
		j.state.Store(StateCompleted)
	}
	close(j.done)
}
