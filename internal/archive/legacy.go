package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
)

// Legacy byte streams predate the container format. Two shapes are
// accepted on read only: tag-delimited text (the original save format)
// and a bare JSON document object. Sniffing order is container, then
// tag-delimited, then JSON; this is heuristic, documented behavior
// rather than a guarantee.

// legacyMetadataTags are the fixed metadata tag names of the
// tag-delimited format.
var legacyMetadataTags = []string{"title", "author", "subject", "created"}

var legacyTagPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(legacyMetadataTags)+1)
	for _, tag := range append(append([]string(nil), legacyMetadataTags...), "content") {
		patterns[tag] = regexp.MustCompile(`(?s)<` + tag + `>(.*?)</` + tag + `>`)
	}
	return patterns
}()

func decodeLegacy(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrBadFormat)
	}

	if trimmed[0] == '<' {
		return decodeTagDelimited(trimmed), nil
	}
	if trimmed[0] == '{' {
		return decodeBareJSON(trimmed)
	}
	return nil, ErrBadFormat
}

// decodeTagDelimited extracts the fixed tag set from legacy text.
// Unknown tags are ignored and every extracted value is HTML-entity
// decoded. There is nothing to materialize; image handling arrived with
// the container format.
func decodeTagDelimited(data []byte) *Document {
	doc := &Document{
		SchemaVersion: legacySchemaVersion,
		Metadata:      make(map[string]string),
	}
	for _, tag := range legacyMetadataTags {
		if groups := legacyTagPatterns[tag].FindSubmatch(data); groups != nil {
			doc.Metadata[tag] = html.UnescapeString(string(groups[1]))
		}
	}
	if groups := legacyTagPatterns["content"].FindSubmatch(data); groups != nil {
		doc.ContentHTML = html.UnescapeString(string(groups[1]))
	}
	return doc
}

func decodeBareJSON(data []byte) (*Document, error) {
	var man manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("%w: parse legacy json: %v", ErrBadFormat, err)
	}
	return &Document{
		SchemaVersion: legacySchemaVersion,
		Metadata:      man.Metadata,
		ContentHTML:   man.ContentHTML,
		Images:        man.ImageFiles,
	}, nil
}
