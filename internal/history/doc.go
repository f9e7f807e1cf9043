// Package history persists a ledger of settled tasks in SQLite.
//
// Every task the pool settles can be recorded with its operation,
// outcome, duration, and error text. The ledger is
// diagnostic data, not coordination state: losing it affects nothing but
// the `folio history` command. Old rows are pruned by retention age.
//
// Schema changes bump the version in schema.go; users delete the
// database to adopt the new schema.
package history
