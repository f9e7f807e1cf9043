// Package archive encodes and decodes the Folio document container: a
// deflate-compressed zip holding one document.json manifest plus raw
// image entries deduplicated by content fingerprint.
//
// Encode scans document markup for inline base64 images and local file
// references, stores each unique image once under images/, and rewrites
// the markup to relative references. Decode reverses the process,
// materializing images into a caller-owned scratch directory. Byte
// streams from older releases of the editor (tag-delimited text and bare
// JSON documents) are detected and parsed on the read path only.
//
// The manifest entry name and the img_<hash>.<ext> naming scheme are
// wire format; changing either breaks archives already on disk.
package archive
