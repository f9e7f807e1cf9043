// Package worker implements the task loop run inside each folio-worker
// process.
//
// A worker executes exactly one document operation at a time, reading
// task envelopes from stdin and writing progress plus one terminal
// envelope to stdout. A second task arriving while one is in flight is
// rejected with a busy error rather than queued; queueing is the pool's
// job. After every task the worker forces a memory-reclamation pass,
// since archive compression is the dominant source of heap growth in
// the process.
package worker
