package archive

import "strings"

// Extension and MIME handling is a fixed lookup table rather than
// content sniffing; the table enumerates every image type the editor
// can embed.

var extToMime = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"svg":  "image/svg+xml",
	"tiff": "image/tiff",
}

var mimeToExt = map[string]string{
	"image/jpeg":    "jpeg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/bmp":     "bmp",
	"image/svg+xml": "svg",
	"image/tiff":    "tiff",
}

// normalizeExt canonicalizes a file extension: lowercased, no dot, with
// aliases folded ("jpg" becomes "jpeg"). Unknown extensions normalize
// to "bin".
func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	switch ext {
	case "jpg", "jpe":
		return "jpeg"
	case "tif":
		return "tiff"
	}
	if _, ok := extToMime[ext]; ok {
		return ext
	}
	return "bin"
}

// mimeForExt returns the MIME type for a normalized extension.
func mimeForExt(ext string) string {
	if mime, ok := extToMime[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// extForMime returns the normalized extension for a MIME type.
func extForMime(mime string) string {
	if ext, ok := mimeToExt[strings.ToLower(strings.TrimSpace(mime))]; ok {
		return ext
	}
	return "bin"
}
