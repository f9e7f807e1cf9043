package taskmsg

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// maxFrameBytes bounds a single message line. Save payloads embed whole
// documents with base64 images, so the ceiling is generous.
const maxFrameBytes = 64 << 20

// Reader decodes newline-delimited envelopes from a stream.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r for envelope reading.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), maxFrameBytes)
	return &Reader{scanner: scanner}
}

// Next returns the next envelope. io.EOF signals a cleanly closed stream.
func (r *Reader) Next() (Envelope, error) {
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			return Envelope{}, fmt.Errorf("decode message: %w", err)
		}
		return env, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Envelope{}, fmt.Errorf("read message stream: %w", err)
	}
	return Envelope{}, io.EOF
}

// Writer encodes envelopes as single JSON lines. Safe for concurrent use;
// progress and terminal frames may race from different goroutines.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter wraps w for envelope writing.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: w}
}

// Write marshals env and appends a newline.
func (w *Writer) Write(env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
