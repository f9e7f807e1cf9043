package pool

import (
	"sync"
	"sync/atomic"
	"time"
)

// slot is one unit of pool concurrency: a live spawned process and the
// task it is running.
type slot struct {
	id        string
	operation string
	proc      Process
	spawnedAt time.Time
	memory    atomic.Int64
	killOnce  sync.Once
}

// SlotStats is a point-in-time view of one live slot.
type SlotStats struct {
	ID          string        `json:"id"`
	PID         int           `json:"pid"`
	Operation   string        `json:"operation"`
	Uptime      time.Duration `json:"uptime"`
	MemoryBytes int64         `json:"memory_bytes"`
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	MaxConcurrency int         `json:"max_concurrency"`
	Live           int         `json:"live"`
	QueueDepth     int         `json:"queue_depth"`
	Slots          []SlotStats `json:"slots"`
}

// Stats returns a snapshot of occupancy, waiters, and per-slot uptime.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	stats := Stats{
		MaxConcurrency: p.maxConcurrency,
		Live:           len(p.slots),
		QueueDepth:     int(p.waiting.Load()),
		Slots:          make([]SlotStats, 0, len(p.slots)),
	}
	for _, s := range p.slots {
		stats.Slots = append(stats.Slots, SlotStats{
			ID:          s.id,
			PID:         s.proc.PID(),
			Operation:   s.operation,
			Uptime:      now.Sub(s.spawnedAt),
			MemoryBytes: s.memory.Load(),
		})
	}
	return stats
}
