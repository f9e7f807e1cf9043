package taskmsg

import "encoding/json"

// Envelope types exchanged between host and worker.
const (
	TypeTask     = "task"
	TypeProgress = "progress"
	TypeResult   = "result"
	TypeError    = "error"
)

// Operations a worker knows how to execute.
const (
	OpLoad     = "load-archive"
	OpSave     = "save-archive"
	OpExtract  = "extract-archive"
	OpCreate   = "create-archive"
	OpValidate = "validate-archive"
)

// KnownOperation reports whether op names a dispatchable worker operation.
func KnownOperation(op string) bool {
	switch op {
	case OpLoad, OpSave, OpExtract, OpCreate, OpValidate:
		return true
	}
	return false
}

// Request asks a worker to run one operation.
type Request struct {
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Progress reports how far along a running task is.
type Progress struct {
	Message string  `json:"message"`
	Percent float64 `json:"percent"`
}

// Envelope is the single wire frame for every message in both directions.
// Exactly one of Data, Progress, or Error is populated depending on Type.
type Envelope struct {
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	Progress *Progress       `json:"progress,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// NewTask wraps a request in a task envelope.
func NewTask(req Request) (Envelope, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: TypeTask, Data: payload}, nil
}

// NewProgress builds a progress envelope.
func NewProgress(message string, percent float64) Envelope {
	return Envelope{Type: TypeProgress, Progress: &Progress{Message: message, Percent: percent}}
}

// NewResult builds the successful terminal envelope.
func NewResult(data json.RawMessage) Envelope {
	return Envelope{Type: TypeResult, Data: data}
}

// NewError builds the failure terminal envelope.
func NewError(message string) Envelope {
	return Envelope{Type: TypeError, Error: message}
}

// Terminal reports whether the envelope settles a task.
func (e Envelope) Terminal() bool {
	return e.Type == TypeResult || e.Type == TypeError
}

// Task decodes the embedded request from a task envelope.
func (e Envelope) Task() (Request, error) {
	var req Request
	err := json.Unmarshal(e.Data, &req)
	return req, err
}
