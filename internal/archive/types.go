package archive

// SchemaVersion is the container schema written by Encode.
const SchemaVersion = 3

// legacySchemaVersion tags documents recovered from pre-container
// byte streams.
const legacySchemaVersion = 1

// ManifestName is the zip entry holding the document manifest.
const ManifestName = "document.json"

// ImageDir is the zip directory prefix for image entries.
const ImageDir = "images/"

// AssetScheme is the app-addressable URI scheme the editor uses for
// images materialized on local disk.
const AssetScheme = "folio-asset://"

// ImageAsset describes one deduplicated image stored in a container.
type ImageAsset struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Hash     string `json:"hash"`
}

// Document is the in-memory form of an archived document.
type Document struct {
	SchemaVersion int
	Metadata      map[string]string
	ContentHTML   string
	Images        []ImageAsset
}

// manifest is the wire shape of the document.json entry.
type manifest struct {
	SchemaVersion int               `json:"schemaVersion,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	ContentHTML   string            `json:"contentHtml"`
	ImageFiles    []ImageAsset      `json:"imageFiles"`
}
