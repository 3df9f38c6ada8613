package engine

import (
	"sync"
	"time"
)

// statusCacheTTL bounds how stale a pump status answer may be under bursty
// polling. Job start/finish and queue mutations invalidate the entry, so
// transitions are never masked beyond one processor tick.
const statusCacheTTL = time.Second

// StatusState is a pump's coarse execution state.
type StatusState string

const (
	StatusIdle    StatusState = "idle"
	StatusRunning StatusState = "running"
	StatusQueued  StatusState = "queued"
)

// PumpStatus answers the status query for one pump.
type PumpStatus struct {
	State       StatusState `json:"status"`
	ActiveZone  *string     `json:"active_zone,omitempty"`
	QueueLength int         `json:"queue_length"`
}

// Status reports a pump's execution state, the active zone name when
// running, and the queue length. Answers are cached for one second.
func (p *QueueProcessor) Status(pumpID int64) PumpStatus {
	if status, ok := p.cache.get(pumpID); ok {
		return status
	}

	p.mu.Lock()
	status := PumpStatus{State: StatusIdle}
	if ps := p.pumps[pumpID]; ps != nil {
		status.QueueLength = len(ps.queue)
		switch {
		case ps.active != nil:
			status.State = StatusRunning
			name := ps.active.ZoneName
			status.ActiveZone = &name
		case status.QueueLength > 0:
			status.State = StatusQueued
		}
	}
	p.mu.Unlock()

	p.cache.put(pumpID, status)
	return status
}

type statusCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[int64]statusEntry
}

type statusEntry struct {
	status PumpStatus
	at     time.Time
}

func newStatusCache(ttl time.Duration) *statusCache {
	return &statusCache{
		ttl:     ttl,
		entries: make(map[int64]statusEntry),
	}
}

func (c *statusCache) get(pumpID int64) (PumpStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[pumpID]
	if !ok || time.Since(entry.at) >= c.ttl {
		return PumpStatus{}, false
	}
	return entry.status, true
}

func (c *statusCache) put(pumpID int64, status PumpStatus) {
	c.mu.Lock()
	c.entries[pumpID] = statusEntry{status: status, at: time.Now()}
	c.mu.Unlock()
}

func (c *statusCache) invalidate(pumpID int64) {
	c.mu.Lock()
	delete(c.entries, pumpID)
	c.mu.Unlock()
}
