package pool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"folio/internal/config"
	"folio/internal/logging"
	"folio/internal/taskmsg"
	"folio/internal/testsupport"
)

// fakeBehavior scripts how a fake worker reacts to its task.
type fakeBehavior struct {
	// progressFrames emitted before the terminal frame.
	progressFrames int
	// delay before the terminal frame.
	delay time.Duration
	// failWith, when non-empty, settles with an error frame.
	failWith string
	// silent workers never send a terminal frame.
	silent bool
	// ignoreTerm simulates a worker stuck mid-compression that only
	// dies on a forced kill.
	ignoreTerm bool
	// rssBytes is what the memory sampler sees.
	rssBytes int64
}

type fakeProcess struct {
	pid       int
	behavior  fakeBehavior
	messages  chan taskmsg.Envelope
	done      chan struct{}
	sendMu    sync.Mutex
	exitOnce  sync.Once
	termCalls atomic.Int32
	killCalls atomic.Int32
}

func newFakeProcess(pid int, behavior fakeBehavior) *fakeProcess {
	return &fakeProcess{
		pid:      pid,
		behavior: behavior,
		messages: make(chan taskmsg.Envelope, 32),
		done:     make(chan struct{}),
	}
}

func (f *fakeProcess) exit() {
	f.exitOnce.Do(func() {
		f.sendMu.Lock()
		defer f.sendMu.Unlock()
		close(f.done)
		close(f.messages)
	})
}

// emit delivers a frame unless the process has already exited.
func (f *fakeProcess) emit(env taskmsg.Envelope) bool {
	f.sendMu.Lock()
	defer f.sendMu.Unlock()
	select {
	case <-f.done:
		return false
	default:
	}
	f.messages <- env
	return true
}

func (f *fakeProcess) PID() int { return f.pid }

func (f *fakeProcess) Send(env taskmsg.Envelope) error {
	if env.Type != taskmsg.TypeTask {
		return fmt.Errorf("unexpected envelope type %q", env.Type)
	}
	go func() {
		for i := 0; i < f.behavior.progressFrames; i++ {
			if !f.emit(taskmsg.NewProgress(fmt.Sprintf("step %d", i+1), float64(i+1)*25)) {
				return
			}
		}
		if f.behavior.silent {
			return
		}
		time.Sleep(f.behavior.delay)
		if f.behavior.failWith != "" {
			f.emit(taskmsg.NewError(f.behavior.failWith))
			return
		}
		f.emit(taskmsg.NewResult(json.RawMessage(`{"ok":true}`)))
	}()
	return nil
}

func (f *fakeProcess) Messages() <-chan taskmsg.Envelope { return f.messages }

func (f *fakeProcess) Terminate() error {
	f.termCalls.Add(1)
	if !f.behavior.ignoreTerm {
		f.exit()
	}
	return nil
}

func (f *fakeProcess) Kill() error {
	f.killCalls.Add(1)
	f.exit()
	return nil
}

func (f *fakeProcess) Done() <-chan struct{} { return f.done }

func (f *fakeProcess) ResidentMemory() (int64, error) {
	if f.behavior.rssBytes == 0 {
		return 10 << 20, nil
	}
	return f.behavior.rssBytes, nil
}

type fakeSpawner struct {
	mu       sync.Mutex
	behavior fakeBehavior
	spawnErr error
	spawned  []*fakeProcess
}

func (s *fakeSpawner) Spawn(ctx context.Context) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spawnErr != nil {
		return nil, s.spawnErr
	}
	proc := newFakeProcess(1000+len(s.spawned), s.behavior)
	s.spawned = append(s.spawned, proc)
	return proc, nil
}

func (s *fakeSpawner) processes() []*fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*fakeProcess(nil), s.spawned...)
}

func testConfig(t *testing.T, maxConcurrency int) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t, testsupport.WithMaxConcurrency(maxConcurrency))
}

func newTestPool(t *testing.T, maxConcurrency int, spawner Spawner) *Pool {
	t.Helper()
	p := New(testConfig(t, maxConcurrency), logging.NewNop(), spawner)
	// Tight timings keep kill-escalation tests fast.
	p.sampleInterval = 10 * time.Millisecond
	p.graceWindow = 50 * time.Millisecond
	p.shutdownCeiling = 500 * time.Millisecond
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(p.Shutdown)
	return p
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestExecuteTaskSuccess(t *testing.T) {
	spawner := &fakeSpawner{behavior: fakeBehavior{progressFrames: 3, delay: 10 * time.Millisecond}}
	p := newTestPool(t, 2, spawner)

	var progress []taskmsg.Progress
	var progressMu sync.Mutex
	result, err := p.ExecuteTask(context.Background(), taskmsg.OpCreate, json.RawMessage(`{}`), time.Second, func(pr taskmsg.Progress) {
		progressMu.Lock()
		progress = append(progress, pr)
		progressMu.Unlock()
	})
	if err != nil {
		t.Fatalf("ExecuteTask: %v", err)
	}
	if string(result) != `{"ok":true}` {
		t.Fatalf("result = %s", result)
	}
	progressMu.Lock()
	got := len(progress)
	progressMu.Unlock()
	if got != 3 {
		t.Fatalf("forwarded progress frames = %d, want 3", got)
	}

	waitFor(t, time.Second, func() bool { return p.Stats().Live == 0 }, "slot never left the live set")
}

func TestConcurrencyNeverExceedsMax(t *testing.T) {
	spawner := &fakeSpawner{behavior: fakeBehavior{delay: 60 * time.Millisecond}}
	p := newTestPool(t, 2, spawner)

	const tasks = 6
	var maxLive atomic.Int32
	samplerStop := make(chan struct{})
	go func() {
		for {
			select {
			case <-samplerStop:
				return
			default:
			}
			if live := int32(p.Stats().Live); live > maxLive.Load() {
				maxLive.Store(live)
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()

	var wg sync.WaitGroup
	errs := make([]error, tasks)
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.ExecuteTask(context.Background(), taskmsg.OpValidate, nil, 5*time.Second, nil)
		}(i)
	}
	wg.Wait()
	close(samplerStop)

	for i, err := range errs {
		if err != nil {
			t.Fatalf("task %d: %v", i, err)
		}
	}
	if got := maxLive.Load(); got > 2 {
		t.Fatalf("observed %d live slots, max concurrency is 2", got)
	}
	if len(spawner.processes()) != tasks {
		t.Fatalf("spawned %d processes, want %d", len(spawner.processes()), tasks)
	}
}

func TestTaskTimeoutAndKillEscalation(t *testing.T) {
	spawner := &fakeSpawner{behavior: fakeBehavior{silent: true, ignoreTerm: true}}
	p := newTestPool(t, 2, spawner)

	started := time.Now()
	_, err := p.ExecuteTask(context.Background(), taskmsg.OpLoad, nil, 50*time.Millisecond, nil)
	if !errors.Is(err, ErrTaskTimeout) {
		t.Fatalf("err = %v, want ErrTaskTimeout", err)
	}
	if elapsed := time.Since(started); elapsed < 50*time.Millisecond {
		t.Fatalf("timed out after %s, before the deadline", elapsed)
	}

	// The worker ignores SIGTERM; the slot must still leave the live
	// set once the grace window forces a kill.
	waitFor(t, time.Second, func() bool { return p.Stats().Live == 0 }, "slot never reaped after forced kill")

	procs := spawner.processes()
	if len(procs) != 1 {
		t.Fatalf("spawned %d processes, want 1", len(procs))
	}
	if procs[0].killCalls.Load() == 0 {
		t.Fatal("termination never escalated to a forced kill")
	}
}

func TestWorkerFailureRejectsWithMessage(t *testing.T) {
	spawner := &fakeSpawner{behavior: fakeBehavior{failWith: "manifest is corrupt"}}
	p := newTestPool(t, 2, spawner)

	_, err := p.ExecuteTask(context.Background(), taskmsg.OpLoad, nil, time.Second, nil)
	if !errors.Is(err, ErrTaskFailed) {
		t.Fatalf("err = %v, want ErrTaskFailed", err)
	}
	if !strings.Contains(err.Error(), "manifest is corrupt") {
		t.Fatalf("error does not carry the worker message: %v", err)
	}
}

func TestSpawnFailureReleasesSlot(t *testing.T) {
	spawner := &fakeSpawner{spawnErr: errors.New("fork: resource temporarily unavailable")}
	p := newTestPool(t, 2, spawner)

	_, err := p.ExecuteTask(context.Background(), taskmsg.OpCreate, nil, time.Second, nil)
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("err = %v, want ErrSpawn", err)
	}
	if live := p.Stats().Live; live != 0 {
		t.Fatalf("live = %d after spawn failure", live)
	}

	// The failed admission must not leak semaphore capacity.
	spawner.mu.Lock()
	spawner.spawnErr = nil
	spawner.mu.Unlock()
	if _, err := p.ExecuteTask(context.Background(), taskmsg.OpCreate, nil, time.Second, nil); err != nil {
		t.Fatalf("task after recovered spawner: %v", err)
	}
}

func TestMemoryCeilingKillsRunawayWorker(t *testing.T) {
	spawner := &fakeSpawner{behavior: fakeBehavior{silent: true, rssBytes: 300 << 20}}
	p := newTestPool(t, 2, spawner)

	started := time.Now()
	_, err := p.ExecuteTask(context.Background(), taskmsg.OpSave, nil, 5*time.Second, nil)
	if !errors.Is(err, ErrTaskFailed) {
		t.Fatalf("err = %v, want ErrTaskFailed after memory kill", err)
	}
	if elapsed := time.Since(started); elapsed >= 5*time.Second {
		t.Fatalf("memory kill took %s, sampler never fired", elapsed)
	}
	waitFor(t, time.Second, func() bool { return p.Stats().Live == 0 }, "slot never reaped after memory kill")
}

func TestShutdownIdempotentAndConcurrent(t *testing.T) {
	spawner := &fakeSpawner{behavior: fakeBehavior{silent: true}}
	p := newTestPool(t, 2, spawner)

	for i := 0; i < 2; i++ {
		go func() {
			_, _ = p.ExecuteTask(context.Background(), taskmsg.OpLoad, nil, 10*time.Second, nil)
		}()
	}
	waitFor(t, time.Second, func() bool { return p.Stats().Live == 2 }, "tasks never occupied slots")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Shutdown()
		}()
	}
	wg.Wait()

	waitFor(t, time.Second, func() bool { return p.Stats().Live == 0 }, "slots survived shutdown")
	for _, proc := range spawner.processes() {
		if proc.termCalls.Load() > 1 {
			t.Fatalf("process received %d graceful terminations, want at most 1", proc.termCalls.Load())
		}
	}

	if _, err := p.ExecuteTask(context.Background(), taskmsg.OpLoad, nil, time.Second, nil); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("post-shutdown err = %v, want ErrPoolClosed", err)
	}
}

// gatedSpawner parks Spawn until released, pinning a task between
// admission and slot registration.
type gatedSpawner struct {
	fakeSpawner
	entered chan struct{}
	release chan struct{}
}

func (s *gatedSpawner) Spawn(ctx context.Context) (Process, error) {
	close(s.entered)
	<-s.release
	return s.fakeSpawner.Spawn(ctx)
}

func TestShutdownDuringSpawnTerminatesLateSlot(t *testing.T) {
	spawner := &gatedSpawner{
		fakeSpawner: fakeSpawner{behavior: fakeBehavior{silent: true}},
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	p := newTestPool(t, 2, spawner)

	errCh := make(chan error, 1)
	go func() {
		_, err := p.ExecuteTask(context.Background(), taskmsg.OpLoad, nil, 10*time.Second, nil)
		errCh <- err
	}()

	// Shut down while the task is mid-spawn, after its slot snapshot
	// would have been taken. The late slot must still be terminated
	// instead of running its task against a closed pool.
	<-spawner.entered
	p.Shutdown()
	close(spawner.release)

	if err := <-errCh; !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("err = %v, want ErrPoolClosed", err)
	}
	waitFor(t, time.Second, func() bool { return p.Stats().Live == 0 }, "late slot survived shutdown")

	procs := spawner.processes()
	if len(procs) != 1 {
		t.Fatalf("spawned %d processes, want 1", len(procs))
	}
	if procs[0].termCalls.Load() == 0 && procs[0].killCalls.Load() == 0 {
		t.Fatal("late slot was never terminated")
	}
}

func TestStartRefusesSharedScratchRoot(t *testing.T) {
	cfg := testConfig(t, 2)
	first := New(cfg, logging.NewNop(), &fakeSpawner{})
	if err := first.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Shutdown()

	second := New(cfg, logging.NewNop(), &fakeSpawner{})
	if err := second.Start(); err == nil {
		second.Shutdown()
		t.Fatal("second pool acquired an already-locked scratch root")
	}
}

func TestDeriveConcurrencyFloor(t *testing.T) {
	if got := deriveConcurrency(); got < 2 {
		t.Fatalf("derived concurrency = %d, want at least 2", got)
	}
}
