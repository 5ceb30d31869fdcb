package metrics

import (
	"sync/atomic"
	"time"
)

type Event int

const (
	EventClockIn Event = iota
	EventClockOut
	EventLatePunch
	EventChecklist
	EventReadingFailed
	EventAudit
	eventCount
)

var eventNames = [eventCount]string{
	EventClockIn:       "clockInsTotal",
	EventClockOut:      "clockOutsTotal",
	EventLatePunch:     "latePunchesTotal",
	EventChecklist:     "checklistsTotal",
	EventReadingFailed: "readingFailuresTotal",
	EventAudit:         "auditsTotal",
}

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64
	events          [eventCount]uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// Count bumps a domain event counter. Nil collectors are ignored.
func (c *Collector) Count(event Event) {
	if c == nil || event < 0 || event >= eventCount {
		return
	}
	atomic.AddUint64(&c.events[event], 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	out := map[string]any{
		"requestsTotal":    total,
		"errorsTotal":      atomic.LoadUint64(&c.errorRequests),
		"rateLimitedTotal": atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":    avg,
		"totalDurationMs":  totalMs,
	}
	for i, name := range eventNames {
		out[name] = atomic.LoadUint64(&c.events[i])
	}
	return out
}
