// Package main hosts the Folio CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into pool
// task submissions, archive inspection, ledger queries, scratch
// maintenance, and configuration scaffolding. It centralizes configuration
// resolution and pool lifecycle so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags
// here.
package main
