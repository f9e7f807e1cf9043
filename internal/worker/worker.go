package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"folio/internal/archive"
	"folio/internal/logging"
	"folio/internal/taskmsg"
)

// ErrBusy is reported when a task arrives while another is in flight.
var ErrBusy = errors.New("worker busy: a task is already in flight")

// Worker executes document operations one at a time.
type Worker struct {
	codec       *archive.Codec
	scratchRoot string
	logger      *slog.Logger
	busy        atomic.Bool
}

// New constructs a worker. scratchRoot is where decoded images are
// materialized.
func New(scratchRoot string, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{
		codec:       archive.New(logger),
		scratchRoot: scratchRoot,
		logger:      logger,
	}
}

// Run reads task envelopes from in until EOF or context cancellation,
// writing responses to out. Tasks run off the read loop so a concurrent
// second request can be answered with a busy error instead of blocking.
func (w *Worker) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := taskmsg.NewReader(in)
	writer := taskmsg.NewWriter(out)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		env, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if env.Type != taskmsg.TypeTask {
			w.logger.Warn("ignoring unexpected envelope",
				logging.FieldComponent, "worker",
				"type", env.Type)
			continue
		}

		req, err := env.Task()
		if err != nil {
			if werr := writer.Write(taskmsg.NewError("malformed task request: " + err.Error())); werr != nil {
				return werr
			}
			continue
		}

		if !w.busy.CompareAndSwap(false, true) {
			if werr := writer.Write(taskmsg.NewError(ErrBusy.Error())); werr != nil {
				return werr
			}
			continue
		}

		go w.execute(ctx, req, writer)
	}
}

func (w *Worker) execute(ctx context.Context, req taskmsg.Request, writer *taskmsg.Writer) {
	defer func() {
		// Compression leaves large freed buffers behind; hand the pages
		// back to the OS before the next task or idle stretch.
		w.busy.Store(false)
		debug.FreeOSMemory()
	}()

	w.logger.Info("task started",
		logging.FieldComponent, "worker",
		logging.FieldOperation, req.Operation)

	progress := func(message string, percent float64) {
		_ = writer.Write(taskmsg.NewProgress(message, percent))
	}

	result, err := w.dispatch(ctx, req, progress)
	if err != nil {
		w.logger.Error("task failed",
			logging.FieldComponent, "worker",
			logging.FieldOperation, req.Operation,
			"error", err)
		_ = writer.Write(taskmsg.NewError(err.Error()))
		return
	}

	w.logger.Info("task completed",
		logging.FieldComponent, "worker",
		logging.FieldOperation, req.Operation)
	_ = writer.Write(taskmsg.NewResult(result))
}
