package utils

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrJobPanicked wraps the value recovered from a job that panicked.
var ErrJobPanicked = errors.New("worker job panicked")

// WorkerPool runs jobs on a bounded number of goroutines and remembers the
// first error any job returned. A panicking job is reported as an error
// wrapping ErrJobPanicked instead of crashing the process.
type WorkerPool struct {
	g errgroup.Group
}

// NewWorkerPool creates a WorkerPool. maxWorkers <= 0 means one worker per CPU.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}
	wp := &WorkerPool{}
	wp.g.SetLimit(maxWorkers)
	return wp
}

// Submit enqueues a job for execution in the pool. It blocks while every
// worker is busy.
func (wp *WorkerPool) Submit(job func() error) {
	wp.g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
			}
		}()
		return job()
	})
}

// Wait blocks until all submitted jobs have completed and returns the first
// error seen.
func (wp *WorkerPool) Wait() error {
	return wp.g.Wait()
}
