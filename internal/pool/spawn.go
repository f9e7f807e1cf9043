package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"folio/internal/logging"
	"folio/internal/taskmsg"
)

// workerNiceness is the scheduling priority delta applied to spawned
// workers so background tasks cannot starve the interactive host.
const workerNiceness = 10

// Process is one live worker process as the pool sees it.
type Process interface {
	PID() int
	// Send delivers an envelope on the worker's stdin.
	Send(env taskmsg.Envelope) error
	// Messages yields worker output envelopes; closed at output EOF.
	Messages() <-chan taskmsg.Envelope
	// Terminate requests a graceful exit.
	Terminate() error
	// Kill forces termination.
	Kill() error
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// ResidentMemory samples the process's current RSS in bytes.
	ResidentMemory() (int64, error)
}

// Spawner creates worker processes. The exec-backed implementation is
// used in production; tests inject fakes.
type Spawner interface {
	Spawn(ctx context.Context) (Process, error)
}

// ExecSpawner launches folio-worker binaries.
type ExecSpawner struct {
	// Binary overrides worker binary discovery when non-empty.
	Binary      string
	ScratchRoot string
	HeapCapMB   int
	LogLevel    string
	Logger      *slog.Logger
}

// Spawn starts a worker process with a capped heap and the
// background-worker environment marker, then lowers its scheduling
// priority best-effort.
func (s *ExecSpawner) Spawn(ctx context.Context) (Process, error) {
	binary, err := s.resolveBinary()
	if err != nil {
		return nil, err
	}

	args := []string{"--scratch-root", s.ScratchRoot}
	if s.HeapCapMB > 0 {
		args = append(args, "--heap-cap-mb", strconv.Itoa(s.HeapCapMB))
	}
	if s.LogLevel != "" {
		args = append(args, "--log-level", s.LogLevel)
	}

	cmd := exec.Command(binary, args...)
	cmd.Env = append(os.Environ(),
		"FOLIO_WORKER=1",
		fmt.Sprintf("GOMEMLIMIT=%dMiB", s.HeapCapMB),
	)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}

	logger := s.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	// Niceness failures are logged, never fatal; the task still runs at
	// normal priority.
	if err := unix.Setpriority(unix.PRIO_PROCESS, cmd.Process.Pid, workerNiceness); err != nil {
		logger.Warn("could not lower worker priority",
			logging.FieldComponent, "pool",
			logging.FieldPID, cmd.Process.Pid,
			"error", err)
	}

	proc := &execProcess{
		cmd:      cmd,
		stdin:    stdin,
		writer:   taskmsg.NewWriter(stdin),
		messages: make(chan taskmsg.Envelope, 16),
		done:     make(chan struct{}),
	}

	go func() {
		// Drain stdout to EOF before reaping. Wait closes the read side
		// of the pipe, so reaping first can drop a terminal frame the
		// worker wrote just before exiting.
		proc.pump(stdout)
		proc.waitErr = cmd.Wait()
		close(proc.done)
	}()

	return proc, nil
}

func (s *ExecSpawner) resolveBinary() (string, error) {
	if s.Binary != "" {
		return s.Binary, nil
	}
	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), "folio-worker")
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}
	path, err := exec.LookPath("folio-worker")
	if err != nil {
		return "", fmt.Errorf("locate folio-worker binary: %w", err)
	}
	return path, nil
}

type execProcess struct {
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	writer   *taskmsg.Writer
	messages chan taskmsg.Envelope
	done     chan struct{}
	waitErr  error
}

func (p *execProcess) pump(stdout io.Reader) {
	defer close(p.messages)
	reader := taskmsg.NewReader(stdout)
	for {
		env, err := reader.Next()
		if err != nil {
			return
		}
		p.messages <- env
	}
}

func (p *execProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Send(env taskmsg.Envelope) error {
	return p.writer.Write(env)
}

func (p *execProcess) Messages() <-chan taskmsg.Envelope {
	return p.messages
}

func (p *execProcess) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *execProcess) Done() <-chan struct{} {
	return p.done
}

// ResidentMemory reads VmRSS from /proc. It sees all allocations the
// runtime's own heap accounting misses, which is the point: a worker
// can escape its soft heap cap via off-heap allocations.
func (p *execProcess) ResidentMemory() (int64, error) {
	return readResidentMemory(p.PID())
}
