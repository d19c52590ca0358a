package esmirror

import (
	"context"

	"github.com/esmirror/esmirror/internal/syncer"
)

// JobState is the lifecycle state of a resynchronization job.
type JobState string

const (
	JobPending   JobState = JobState(syncer.StatePending)
	JobRunning   JobState = JobState(syncer.StateRunning)
	JobCompleted JobState = JobState(syncer.StateCompleted)
	JobFailed    JobState = JobState(syncer.StateFailed)
)

// Progress holds a job's counters.
type Progress struct {
	Scanned int64
	Indexed int64
	Failed  int64
}

// Job tracks one running resynchronization.
type Job struct {
	inner *syncer.Job
}

// Collection returns the target collection name.
func (j *Job) Collection() string { return j.inner.Collection() }

// State returns the current lifecycle state.
func (j *Job) State() JobState { return JobState(j.inner.State()) }

// Progress returns a snapshot of the counters.
func (j *Job) Progress() Progress {
	p := j.inner.Progress()
	return Progress{Scanned: p.Scanned, Indexed: p.Indexed, Failed: p.Failed}
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} { return j.inner.Done() }

// Err returns the terminal error, nil unless the job failed. Only valid
// after Done is closed.
func (j *Job) Err() error { return j.inner.Err() }

// Wait blocks until the job terminates or ctx is cancelled.
func (j *Job) Wait(ctx context.Context) error { return j.inner.Wait(ctx) }

// Abort stops issuing new writes; dispatched writes finish first.
func (j *Job) Abort() { j.inner.Abort() }
