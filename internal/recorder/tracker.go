package recorder

import (
	"sync"
	"time"
)

// Snapshot describes the capture currently in flight, for monitoring APIs.
type Snapshot struct {
	Active      bool      `json:"active"`
	FileName    string    `json:"file_name,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	Seconds     int       `json:"seconds"`
	Bytes       uint64    `json:"bytes"`
	TargetBytes uint64    `json:"target_bytes"`
	LastError   string    `json:"last_error,omitempty"`
}

// Stats accumulates lifetime counters across captures.
type Stats struct {
	Started   uint64 `json:"started"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	Bytes     uint64 `json:"bytes"`
}

// Tracker publishes capture state to concurrent readers. The recording
// loop writes, the monitor endpoints read.
type Tracker struct {
	mu      sync.RWMutex
	current Snapshot
	stats   Stats
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Start marks a capture as active.
func (t *Tracker) Start(fileName string, targetBytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = Snapshot{
		Active:      true,
		FileName:    fileName,
		StartedAt:   time.Now(),
		TargetBytes: targetBytes,
	}
	t.stats.Started++
}

// Update records capture progress.
func (t *Tracker) Update(p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current.Seconds = p.Seconds
	t.current.Bytes = p.Bytes
}

// Finish marks the capture as done and folds its result into the lifetime
// counters.
func (t *Tracker) Finish(result Result, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current.Active = false
	t.current.Bytes = result.Bytes
	t.current.Seconds = int(result.Seconds)
	if err != nil {
		t.current.LastError = err.Error()
		t.stats.Failed++
	} else {
		t.stats.Completed++
	}
	t.stats.Bytes += result.Bytes
}

// Current returns a copy of the in-flight capture state.
func (t *Tracker) Current() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Stats returns a copy of the lifetime counters.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}
