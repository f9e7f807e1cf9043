// Package pool spawns, bounds, and monitors the worker processes that
// execute document tasks off the editor's interactive path.
//
// Admission is a channel semaphore sized from available parallelism;
// waiters are released in no particular order, which is acceptable for
// this low-volume path. Each admitted task gets its own process with a
// capped heap, lowered scheduling priority, a resident-memory watchdog,
// and a two-phase kill (graceful signal, then forced after a grace
// window). A slot leaves the live set only when its process exits; the
// exit event is the single source of truth for slot occupancy no matter
// which of the kill triggers fired.
//
// The pool is an explicitly constructed service with Start and Shutdown;
// inject a fake Spawner to unit test scheduling without real processes.
package pool
