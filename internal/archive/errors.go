package archive

import "errors"

var (
	// ErrBadFormat marks bytes that match no supported document format.
	ErrBadFormat = errors.New("unrecognized document format")

	// ErrMissingManifest marks a valid container without a document.json
	// entry.
	ErrMissingManifest = errors.New("container missing document manifest")
)
