package pool

import "errors"

var (
	// ErrSpawn marks a failure to create a worker process.
	ErrSpawn = errors.New("spawn worker")

	// ErrTaskTimeout marks a task that produced no terminal message
	// within its deadline.
	ErrTaskTimeout = errors.New("task timed out")

	// ErrTaskFailed marks a task the worker reported as failed.
	ErrTaskFailed = errors.New("task failed")

	// ErrPoolClosed is returned for submissions after Shutdown.
	ErrPoolClosed = errors.New("pool is shut down")
)
