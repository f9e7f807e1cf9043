package archive

import (
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"folio/internal/hashing"
	"folio/internal/logging"
)

// imageRefPattern matches every embedded image form the editor emits:
// inline base64 data-URIs, file:// references, and folio-asset://
// references to scratch copies.
var imageRefPattern = regexp.MustCompile(
	`(?i)data:(image/[a-z0-9.+-]+);base64,([A-Za-z0-9+/=]+)` +
		`|(?:file://|folio-asset://)([^"'\s<>)]+)`,
)

// relativeRefPattern matches the rewritten in-container form.
var relativeRefPattern = regexp.MustCompile(`images/(img_[0-9a-f]+\.[a-z0-9]+)`)

// assetRegistry accumulates unique images during one encode pass.
// Registration is first-writer-wins: the fileName minted for the first
// occurrence of a content hash is reused for every later occurrence.
type assetRegistry struct {
	assets []ImageAsset
	byHash map[string]string // hash -> fileName
	blobs  map[string][]byte // fileName -> raw bytes
}

func newAssetRegistry() *assetRegistry {
	return &assetRegistry{
		byHash: make(map[string]string),
		blobs:  make(map[string][]byte),
	}
}

func (r *assetRegistry) register(data []byte, ext string) string {
	hash := hashing.Sum(data)
	if name, ok := r.byHash[hash]; ok {
		return name
	}
	name := "img_" + hash + "." + ext
	r.byHash[hash] = name
	r.blobs[name] = data
	r.assets = append(r.assets, ImageAsset{
		FileName: name,
		MimeType: mimeForExt(ext),
		Size:     int64(len(data)),
		Hash:     hash,
	})
	return name
}

// collectImages rewrites every embedded image reference in markup to its
// relative in-container form, registering the underlying bytes along the
// way. A reference whose bytes cannot be loaded is left untouched and
// logged; a single broken image never fails a save.
func collectImages(markup string, reg *assetRegistry, logger *slog.Logger) string {
	return imageRefPattern.ReplaceAllStringFunc(markup, func(match string) string {
		groups := imageRefPattern.FindStringSubmatch(match)
		if groups == nil {
			return match
		}

		if groups[1] != "" {
			data, err := base64.StdEncoding.DecodeString(groups[2])
			if err != nil {
				logger.Warn("skipping undecodable inline image",
					logging.FieldComponent, "archive",
					"error", err)
				return match
			}
			return ImageDir + reg.register(data, extForMime(groups[1]))
		}

		path := groups[3]
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable image reference",
				logging.FieldComponent, "archive",
				"path", path,
				"error", err)
			return match
		}
		return ImageDir + reg.register(data, normalizeExt(filepath.Ext(path)))
	})
}

// rewriteToScratch turns relative in-container references back into
// absolute app-addressable references under scratchDir.
func rewriteToScratch(markup, scratchDir string) string {
	return relativeRefPattern.ReplaceAllStringFunc(markup, func(match string) string {
		name := strings.TrimPrefix(match, ImageDir)
		return AssetScheme + filepath.Join(scratchDir, name)
	})
}
