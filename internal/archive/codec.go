package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"folio/internal/logging"
)

// Codec encodes and decodes document containers.
type Codec struct {
	logger *slog.Logger
}

// New constructs a codec. A nil logger falls back to a no-op logger.
func New(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Codec{logger: logger}
}

// Encode serializes doc into container bytes. Embedded images found in
// the markup are deduplicated by content fingerprint and stored once
// each; the returned bytes are deflate-compressed at maximum ratio.
func (c *Codec) Encode(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("encode: document is nil")
	}

	reg := newAssetRegistry()
	rewritten := collectImages(doc.ContentHTML, reg, c.logger)

	man := manifest{
		SchemaVersion: SchemaVersion,
		Metadata:      doc.Metadata,
		ContentHTML:   rewritten,
		ImageFiles:    reg.assets,
	}
	manifestJSON, err := json.Marshal(man)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	entry, err := zw.Create(ManifestName)
	if err != nil {
		return nil, fmt.Errorf("create manifest entry: %w", err)
	}
	if _, err := entry.Write(manifestJSON); err != nil {
		return nil, fmt.Errorf("write manifest entry: %w", err)
	}

	for _, asset := range reg.assets {
		entry, err := zw.Create(ImageDir + asset.FileName)
		if err != nil {
			return nil, fmt.Errorf("create image entry %s: %w", asset.FileName, err)
		}
		if _, err := entry.Write(reg.blobs[asset.FileName]); err != nil {
			return nil, fmt.Errorf("write image entry %s: %w", asset.FileName, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize container: %w", err)
	}

	c.logger.Debug("encoded container",
		logging.FieldComponent, "archive",
		"images", len(reg.assets),
		"bytes", buf.Len())
	return buf.Bytes(), nil
}

// Decode parses container or legacy bytes into a Document. For schema
// version 2 and later, images are materialized into a fresh directory
// under scratchRoot and markup references are rewritten to absolute
// app-addressable form; the directory path is returned and owned by the
// caller until it removes it. Legacy inputs return an empty scratch path.
func (c *Codec) Decode(data []byte, scratchRoot string) (*Document, string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		doc, legacyErr := decodeLegacy(data)
		if legacyErr != nil {
			return nil, "", legacyErr
		}
		return doc, "", nil
	}

	man, err := readManifest(zr)
	if err != nil {
		return nil, "", err
	}

	doc := &Document{
		SchemaVersion: man.SchemaVersion,
		Metadata:      man.Metadata,
		ContentHTML:   man.ContentHTML,
		Images:        man.ImageFiles,
	}

	if man.SchemaVersion < 2 {
		// Early container builds wrote no version; treat like legacy
		// content and skip materialization.
		doc.SchemaVersion = legacySchemaVersion
		return doc, "", nil
	}

	scratchDir, err := newScratchDir(scratchRoot)
	if err != nil {
		return nil, "", err
	}
	if err := materializeImages(zr, scratchDir); err != nil {
		_ = os.RemoveAll(scratchDir)
		return nil, "", err
	}
	doc.ContentHTML = rewriteToScratch(doc.ContentHTML, scratchDir)

	c.logger.Debug("decoded container",
		logging.FieldComponent, "archive",
		"schema_version", man.SchemaVersion,
		"images", len(man.ImageFiles),
		"scratch_dir", scratchDir)
	return doc, scratchDir, nil
}

// Inspect parses container or legacy bytes into a Document without
// materializing images or touching the scratch area. Markup references
// are left exactly as stored.
func (c *Codec) Inspect(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return decodeLegacy(data)
	}
	man, err := readManifest(zr)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		SchemaVersion: man.SchemaVersion,
		Metadata:      man.Metadata,
		ContentHTML:   man.ContentHTML,
		Images:        man.ImageFiles,
	}
	if man.SchemaVersion < 2 {
		doc.SchemaVersion = legacySchemaVersion
	}
	return doc, nil
}

// IsValidArchive reports whether data opens as a container holding the
// document manifest. It never returns an error.
func (c *Codec) IsValidArchive(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, file := range zr.File {
		if file.Name == ManifestName {
			return true
		}
	}
	return false
}

// CountImageEntries returns the number of images/* entries in container
// bytes, or zero when the bytes are not a container.
func CountImageEntries(data []byte) int {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	count := 0
	for _, file := range zr.File {
		if strings.HasPrefix(file.Name, ImageDir) {
			count++
		}
	}
	return count
}

func readManifest(zr *zip.Reader) (*manifest, error) {
	var entry *zip.File
	for _, file := range zr.File {
		if file.Name == ManifestName {
			entry = file
			break
		}
	}
	if entry == nil {
		return nil, ErrMissingManifest
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open manifest: %v", ErrBadFormat, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest: %v", ErrBadFormat, err)
	}

	var man manifest
	if err := json.Unmarshal(raw, &man); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %v", ErrBadFormat, err)
	}
	return &man, nil
}

func materializeImages(zr *zip.Reader, scratchDir string) error {
	for _, file := range zr.File {
		if !strings.HasPrefix(file.Name, ImageDir) {
			continue
		}
		name := filepath.Base(file.Name)
		if name == "." || name == "/" || strings.Contains(name, "..") {
			return fmt.Errorf("%w: unsafe image entry %q", ErrBadFormat, file.Name)
		}
		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("open image entry %s: %w", file.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("read image entry %s: %w", file.Name, err)
		}
		if err := os.WriteFile(filepath.Join(scratchDir, name), data, 0o644); err != nil {
			return fmt.Errorf("materialize image %s: %w", name, err)
		}
	}
	return nil
}

func newScratchDir(root string) (string, error) {
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "extract-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}
	return dir, nil
}
