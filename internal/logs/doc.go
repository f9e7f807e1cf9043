// Package logs reads the structured log file back for display.
//
// The pool and workers append to a shared log file; this package offers
// offset-based reads over it so the CLI can show recent lines or follow
// new ones without holding the file open.
package logs
