// Package taskmsg defines the message protocol spoken across the
// host/worker process boundary and the newline-delimited JSON codec that
// carries it over stdin and stdout.
//
// A task exchange is one request envelope from the host, zero or more
// progress envelopes from the worker, then exactly one terminal envelope:
// result or error. No mutable state crosses the boundary outside these
// payloads.
//
// Reuse these types when adding new worker operations so the wire shape
// stays stable for both sides.
package taskmsg
