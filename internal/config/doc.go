// Package config loads, normalizes, and validates Folio configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the worker pool, archive codec, and CLI need: scratch and log
// directories, pool concurrency and kill policies, and history retention.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
