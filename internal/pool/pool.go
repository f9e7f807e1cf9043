package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"folio/internal/config"
	"folio/internal/logging"
	"folio/internal/taskmsg"
)

// Pool bounds and supervises worker processes. Construct with New,
// call Start before submitting tasks, and Shutdown when done.
type Pool struct {
	logger  *slog.Logger
	spawner Spawner

	maxConcurrency  int
	defaultTimeout  time.Duration
	sampleInterval  time.Duration
	memoryCeiling   int64
	graceWindow     time.Duration
	shutdownCeiling time.Duration
	scratchRoot     string

	sem     chan struct{}
	waiting atomic.Int64

	mu    sync.Mutex
	slots map[string]*slot

	lock    *flock.Flock
	started atomic.Bool
	closed  atomic.Bool
}

// New constructs a pool from configuration. A nil spawner gets the
// exec-backed worker launcher; tests pass fakes.
func New(cfg *config.Config, logger *slog.Logger, spawner Spawner) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	if spawner == nil {
		spawner = &ExecSpawner{
			Binary:      cfg.Pool.WorkerBinary,
			ScratchRoot: cfg.Paths.ScratchDir,
			HeapCapMB:   cfg.Pool.WorkerHeapCapMB,
			LogLevel:    cfg.Logging.Level,
			Logger:      logger,
		}
	}

	maxConcurrency := cfg.Pool.MaxConcurrency
	if maxConcurrency == 0 {
		maxConcurrency = deriveConcurrency()
	}

	return &Pool{
		logger:          logger,
		spawner:         spawner,
		maxConcurrency:  maxConcurrency,
		defaultTimeout:  time.Duration(cfg.Pool.TaskTimeoutSeconds) * time.Second,
		sampleInterval:  time.Duration(cfg.Pool.MemorySampleSeconds) * time.Second,
		memoryCeiling:   int64(cfg.Pool.MemoryCeilingMB) << 20,
		graceWindow:     time.Duration(cfg.Pool.GraceWindowSeconds) * time.Second,
		shutdownCeiling: time.Duration(cfg.Pool.ShutdownCeilingSeconds) * time.Second,
		scratchRoot:     cfg.Paths.ScratchDir,
		sem:             make(chan struct{}, maxConcurrency),
		slots:           make(map[string]*slot),
	}
}

// deriveConcurrency is half the available parallelism, minimum two.
func deriveConcurrency() int {
	n := runtime.NumCPU() / 2
	if n < 2 {
		n = 2
	}
	return n
}

// Start prepares the scratch tree and takes the single-host lock on it.
// Two pools sharing one scratch root would race each other's extract
// directories.
func (p *Pool) Start() error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if !p.started.CompareAndSwap(false, true) {
		return nil
	}
	if err := os.MkdirAll(p.scratchRoot, 0o755); err != nil {
		return fmt.Errorf("ensure scratch root: %w", err)
	}
	p.lock = flock.New(filepath.Join(p.scratchRoot, ".folio.lock"))
	acquired, err := p.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire scratch lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("scratch root %s is locked by another folio instance", p.scratchRoot)
	}
	p.logger.Info("pool started",
		logging.FieldComponent, "pool",
		"max_concurrency", p.maxConcurrency)
	return nil
}

// ExecuteTask runs one operation on a dedicated worker process,
// forwarding progress to onProgress when non-nil. A non-positive timeout
// uses the configured default. The call blocks while the pool is at
// capacity; admission order among concurrent waiters is unspecified.
func (p *Pool) ExecuteTask(ctx context.Context, operation string, payload json.RawMessage, timeout time.Duration, onProgress func(taskmsg.Progress)) (json.RawMessage, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	if !taskmsg.KnownOperation(operation) {
		return nil, fmt.Errorf("unknown operation %q", operation)
	}
	if timeout <= 0 {
		timeout = p.defaultTimeout
	}

	p.waiting.Add(1)
	select {
	case p.sem <- struct{}{}:
		p.waiting.Add(-1)
	case <-ctx.Done():
		p.waiting.Add(-1)
		return nil, ctx.Err()
	}
	if p.closed.Load() {
		<-p.sem
		return nil, ErrPoolClosed
	}

	proc, err := p.spawner.Spawn(ctx)
	if err != nil {
		<-p.sem
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	s := &slot{
		id:        uuid.NewString(),
		operation: operation,
		proc:      proc,
		spawnedAt: time.Now(),
	}
	p.mu.Lock()
	p.slots[s.id] = s
	closedNow := p.closed.Load()
	p.mu.Unlock()

	ctx = logging.WithTask(ctx, s.id, operation)
	logging.WithContext(ctx, p.logger).Info("slot spawned",
		logging.FieldComponent, "pool",
		logging.FieldPID, proc.PID())

	// The exit event alone frees the slot. Every kill trigger funnels
	// here, so occupancy is never double-decremented.
	go func() {
		<-proc.Done()
		p.mu.Lock()
		delete(p.slots, s.id)
		p.mu.Unlock()
		<-p.sem
		p.logger.Debug("slot reaped",
			logging.FieldComponent, "pool",
			logging.FieldSlotID, s.id)
	}()

	// Shutdown flips closed under mu before snapshotting the live set,
	// so a slot registered after its snapshot observes closed here and
	// must not run its task.
	if closedNow {
		p.terminate(s, "shutdown")
		<-proc.Done()
		return nil, ErrPoolClosed
	}

	samplerStop := make(chan struct{})
	go p.sampleMemory(s, samplerStop)

	defer func() {
		close(samplerStop)
		p.terminate(s, "settled")
		// Discard frames written after settlement so the worker's output
		// pump can reach EOF and the process can be reaped.
		go func() {
			for range proc.Messages() {
			}
		}()
	}()

	return p.runTask(ctx, s, operation, payload, timeout, onProgress)
}

func (p *Pool) runTask(ctx context.Context, s *slot, operation string, payload json.RawMessage, timeout time.Duration, onProgress func(taskmsg.Progress)) (json.RawMessage, error) {
	env, err := taskmsg.NewTask(taskmsg.Request{Operation: operation, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	if err := s.proc.Send(env); err != nil {
		return nil, fmt.Errorf("%w: send task: %v", ErrTaskFailed, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	logger := logging.WithContext(ctx, p.logger)
	for {
		select {
		case msg, ok := <-s.proc.Messages():
			if !ok {
				return nil, fmt.Errorf("%w: worker exited before reporting a result", ErrTaskFailed)
			}
			switch msg.Type {
			case taskmsg.TypeProgress:
				if msg.Progress != nil {
					logger.Debug("task progress",
						logging.FieldComponent, "pool",
						"message", msg.Progress.Message,
						"percent", msg.Progress.Percent)
					if onProgress != nil {
						onProgress(*msg.Progress)
					}
				}
			case taskmsg.TypeResult:
				return msg.Data, nil
			case taskmsg.TypeError:
				return nil, fmt.Errorf("%w: %s", ErrTaskFailed, msg.Error)
			default:
				logger.Warn("unexpected worker message",
					logging.FieldComponent, "pool",
					"type", msg.Type)
			}
		case <-timer.C:
			return nil, fmt.Errorf("%w: no result within %s", ErrTaskTimeout, timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// sampleMemory polls the slot's resident memory and kills it past the
// hard ceiling. The soft heap cap is advisory to the worker runtime;
// off-heap allocations can escape it, so the pool enforces its own
// ceiling from outside.
func (p *Pool) sampleMemory(s *slot, stop <-chan struct{}) {
	ticker := time.NewTicker(p.sampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-s.proc.Done():
			return
		case <-ticker.C:
			rss, err := s.proc.ResidentMemory()
			if err != nil {
				continue
			}
			s.memory.Store(rss)
			if rss > p.memoryCeiling {
				p.logger.Warn("worker exceeded memory ceiling",
					logging.FieldComponent, "pool",
					logging.FieldSlotID, s.id,
					"rss_bytes", rss,
					"ceiling_bytes", p.memoryCeiling)
				p.terminate(s, "memory ceiling")
			}
		}
	}
}

// terminate requests a graceful exit, escalating to a forced kill after
// the grace window. A worker mid-compression may ignore the first
// signal. Safe to call from any trigger; only the first takes effect.
func (p *Pool) terminate(s *slot, reason string) {
	s.killOnce.Do(func() {
		p.logger.Debug("terminating slot",
			logging.FieldComponent, "pool",
			logging.FieldSlotID, s.id,
			"reason", reason)
		if err := s.proc.Terminate(); err != nil {
			p.logger.Warn("graceful termination failed",
				logging.FieldComponent, "pool",
				logging.FieldSlotID, s.id,
				"error", err)
		}
		go func() {
			select {
			case <-s.proc.Done():
			case <-time.After(p.graceWindow):
				p.logger.Warn("worker ignored termination, forcing kill",
					logging.FieldComponent, "pool",
					logging.FieldSlotID, s.id)
				_ = s.proc.Kill()
			}
		}()
	})
}

// Shutdown kills every live slot and waits for exits up to the
// configured ceiling, then proceeds regardless. Repeated and concurrent
// calls are no-ops.
func (p *Pool) Shutdown() {
	// closed flips under mu so that slot registration in ExecuteTask is
	// ordered against the snapshot: a slot missing from the snapshot is
	// guaranteed to see closed and terminate itself.
	p.mu.Lock()
	if !p.closed.CompareAndSwap(false, true) {
		p.mu.Unlock()
		return
	}
	snapshot := make([]*slot, 0, len(p.slots))
	for _, s := range p.slots {
		snapshot = append(snapshot, s)
	}
	p.mu.Unlock()

	for _, s := range snapshot {
		p.terminate(s, "shutdown")
	}

	deadline := time.NewTimer(p.shutdownCeiling)
	defer deadline.Stop()
	expired := false
	for _, s := range snapshot {
		if expired {
			_ = s.proc.Kill()
			continue
		}
		select {
		case <-s.proc.Done():
		case <-deadline.C:
			expired = true
			_ = s.proc.Kill()
		}
	}

	if p.lock != nil {
		_ = p.lock.Unlock()
	}
	p.logger.Info("pool shut down",
		logging.FieldComponent, "pool",
		"slots_at_shutdown", len(snapshot),
		"forced", expired)
}
