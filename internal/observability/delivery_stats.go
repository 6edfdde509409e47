package observability

import (
	"sync/atomic"
	"time"
)

// DeliveryStats tracks reset-email delivery outcomes in-process. The worker
// exposes a snapshot on its stats endpoint; Prometheus carries the same
// information for scraping, this is for quick human inspection.
type DeliveryStats struct {
	claimed atomic.Uint64
	done    atomic.Uint64
	failed  atomic.Uint64
	retried atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewDeliveryStats() *DeliveryStats {
	return &DeliveryStats{}
}

func (m *DeliveryStats) IncClaimed() { m.claimed.Add(1) }
func (m *DeliveryStats) IncDone()    { m.done.Add(1) }
func (m *DeliveryStats) IncFailed()  { m.failed.Add(1) }
func (m *DeliveryStats) IncRetried() { m.retried.Add(1) }

func (m *DeliveryStats) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	// max update
	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

// DeliveryStatsSnapshot is the JSON body of the worker's stats endpoint.
// Durations are rendered as Duration strings ("1.2s") so the endpoint is
// readable without converting nanoseconds by hand.
type DeliveryStatsSnapshot struct {
	Claimed         uint64 `json:"claimed"`
	Done            uint64 `json:"done"`
	Failed          uint64 `json:"failed"`
	Retried         uint64 `json:"retried"`
	DurationCount   uint64 `json:"durationCount"`
	AverageDuration string `json:"averageDuration"`
	MaxDuration     string `json:"maxDuration"`
}

func (m *DeliveryStats) Snapshot() DeliveryStatsSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()
	max := m.durationMax.Load()

	var avg time.Duration

	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return DeliveryStatsSnapshot{
		Claimed:         m.claimed.Load(),
		Done:            m.done.Load(),
		Failed:          m.failed.Load(),
		Retried:         m.retried.Load(),
		DurationCount:   count,
		AverageDuration: avg.String(),
		MaxDuration:     time.Duration(max).String(),
	}
}
