package tasks

import (
	"math"
	"sync/atomic"
)

const completedMask = 1<<32 - 1

// Progress is a (completed, total) counter pair shared between a batch and its observers.
//
// Both halves live in one 64-bit word, total in the high half, so every reader sees a consistent pair.
// The zero value is an empty batch.
type Progress struct {
	state atomic.Uint64
}

// ProgressSnapshot is a point-in-time read of a [Progress].
type ProgressSnapshot struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Reset starts a new batch of total items with nothing completed.
func (p *Progress) Reset(total int) {
	if total < 0 {
		total = 0
	}
	if uint64(total) > math.MaxUint32 {
		total = math.MaxUint32
	}
	p.state.Store(uint64(total) << 32)
}

// Advance marks one more item as started. It reports false, and changes nothing, once completed
// has reached total.
func (p *Progress) Advance() bool {
	for {
		old := p.state.Load()
		total, done := old>>32, old&completedMask
		if done >= total {
			return false
		}
		if p.state.CompareAndSwap(old, old+1) {
			return true
		}
	}
}

// Snapshot reads both counters at once.
func (p *Progress) Snapshot() ProgressSnapshot {
	v := p.state.Load()
	return ProgressSnapshot{Completed: int(v & completedMask), Total: int(v >> 32)}
}

// Fraction returns completed/total, or 0 for an empty batch.
func (p *Progress) Fraction() float64 {
	return p.Snapshot().Fraction()
}

func (s ProgressSnapshot) Fraction() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// Done reports whether every item of a non-empty batch has been started.
func (s ProgressSnapshot) Done() bool {
	return s.Total > 0 && s.Completed >= s.Total
}
