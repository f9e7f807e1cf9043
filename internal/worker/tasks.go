package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"folio/internal/archive"
	"folio/internal/taskmsg"
)

// DocumentPayload is the JSON shape of a document crossing the process
// boundary.
type DocumentPayload struct {
	SchemaVersion int                  `json:"schemaVersion,omitempty"`
	Metadata      map[string]string    `json:"metadata,omitempty"`
	ContentHTML   string               `json:"contentHtml"`
	Images        []archive.ImageAsset `json:"imageFiles,omitempty"`
}

func (p DocumentPayload) document() *archive.Document {
	return &archive.Document{
		SchemaVersion: p.SchemaVersion,
		Metadata:      p.Metadata,
		ContentHTML:   p.ContentHTML,
		Images:        p.Images,
	}
}

func payloadFrom(doc *archive.Document) DocumentPayload {
	return DocumentPayload{
		SchemaVersion: doc.SchemaVersion,
		Metadata:      doc.Metadata,
		ContentHTML:   doc.ContentHTML,
		Images:        doc.Images,
	}
}

// LoadRequest asks for an archive file to be decoded.
type LoadRequest struct {
	Path string `json:"path"`
}

// LoadResult carries the decoded document and its scratch directory.
type LoadResult struct {
	Document   DocumentPayload `json:"document"`
	ScratchDir string          `json:"scratchDir,omitempty"`
}

// SaveRequest asks for a document to be encoded to an archive file.
type SaveRequest struct {
	Path     string          `json:"path"`
	Document DocumentPayload `json:"document"`
}

// SaveResult reports the written archive.
type SaveResult struct {
	Path   string `json:"path"`
	Bytes  int64  `json:"bytes"`
	Images int    `json:"images"`
}

// CreateRequest asks for a document to be encoded in memory.
type CreateRequest struct {
	Document DocumentPayload `json:"document"`
}

// CreateResult carries the encoded container bytes.
type CreateResult struct {
	Data   []byte `json:"data"`
	Images int    `json:"images"`
}

// ExtractRequest asks for in-memory container bytes to be decoded.
type ExtractRequest struct {
	Data []byte `json:"data"`
}

// ValidateRequest asks whether bytes or a file form a valid archive.
type ValidateRequest struct {
	Path string `json:"path,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// ValidateResult reports archive validity.
type ValidateResult struct {
	Valid bool `json:"valid"`
}

type progressFunc func(message string, percent float64)

func (w *Worker) dispatch(ctx context.Context, req taskmsg.Request, progress progressFunc) (json.RawMessage, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	switch req.Operation {
	case taskmsg.OpLoad:
		return w.loadArchive(req.Data, progress)
	case taskmsg.OpSave:
		return w.saveArchive(req.Data, progress)
	case taskmsg.OpCreate:
		return w.createArchive(req.Data, progress)
	case taskmsg.OpExtract:
		return w.extractArchive(req.Data, progress)
	case taskmsg.OpValidate:
		return w.validateArchive(req.Data, progress)
	default:
		return nil, fmt.Errorf("unknown operation %q", req.Operation)
	}
}

func (w *Worker) loadArchive(data json.RawMessage, progress progressFunc) (json.RawMessage, error) {
	var req LoadRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	progress("reading archive file", 10)
	raw, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	progress("decoding container", 40)
	doc, scratchDir, err := w.codec.Decode(raw, w.scratchRoot)
	if err != nil {
		return nil, err
	}
	progress("materialized images", 90)
	return marshalResult(LoadResult{Document: payloadFrom(doc), ScratchDir: scratchDir})
}

func (w *Worker) saveArchive(data json.RawMessage, progress progressFunc) (json.RawMessage, error) {
	var req SaveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("save request: %w", err)
	}
	if req.Path == "" {
		return nil, fmt.Errorf("save request: path is required")
	}
	progress("collecting images", 15)
	doc := req.Document.document()
	progress("compressing container", 50)
	encoded, err := w.codec.Encode(doc)
	if err != nil {
		return nil, err
	}
	progress("writing archive file", 85)
	if err := os.WriteFile(req.Path, encoded, 0o644); err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}
	return marshalResult(SaveResult{Path: req.Path, Bytes: int64(len(encoded)), Images: archive.CountImageEntries(encoded)})
}

func (w *Worker) createArchive(data json.RawMessage, progress progressFunc) (json.RawMessage, error) {
	var req CreateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	progress("collecting images", 20)
	doc := req.Document.document()
	progress("compressing container", 60)
	encoded, err := w.codec.Encode(doc)
	if err != nil {
		return nil, err
	}
	progress("finalizing container", 90)
	return marshalResult(CreateResult{Data: encoded, Images: archive.CountImageEntries(encoded)})
}

func (w *Worker) extractArchive(data json.RawMessage, progress progressFunc) (json.RawMessage, error) {
	var req ExtractRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("extract request: %w", err)
	}
	progress("opening container", 15)
	progress("decoding container", 45)
	doc, scratchDir, err := w.codec.Decode(req.Data, w.scratchRoot)
	if err != nil {
		return nil, err
	}
	progress("materialized images", 90)
	return marshalResult(LoadResult{Document: payloadFrom(doc), ScratchDir: scratchDir})
}

func (w *Worker) validateArchive(data json.RawMessage, progress progressFunc) (json.RawMessage, error) {
	var req ValidateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("validate request: %w", err)
	}
	raw := req.Data
	progress("reading input", 20)
	if req.Path != "" {
		fileBytes, err := os.ReadFile(req.Path)
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		raw = fileBytes
	}
	progress("checking container", 60)
	valid := w.codec.IsValidArchive(raw)
	progress("validation finished", 95)
	return marshalResult(ValidateResult{Valid: valid})
}

func marshalResult(v any) (json.RawMessage, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return payload, nil
}
