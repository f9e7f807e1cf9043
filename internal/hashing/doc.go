// Package hashing computes the content fingerprints used for
// deduplicated image storage inside document archives.
//
// Fingerprints are truncated BLAKE3 digests rendered as lowercase hex.
// Identical bytes always produce the same fingerprint; the 64-bit
// truncation keeps archive entry names short while making collisions
// vanishingly unlikely at per-document image counts.
package hashing
