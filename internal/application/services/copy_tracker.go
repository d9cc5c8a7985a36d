package services

import (
	"sync"
	"time"
)

// DefaultCopyAckDuration is how long a copy acknowledgment stays visible
const DefaultCopyAckDuration = 2 * time.Second

// CopyTracker remembers which fixes have recently been copied to the
// clipboard so the UI can show a transient acknowledgment. Each mark clears
// itself after the configured delay; re-marking an id restarts its clock.
// Marks are independent per id.
type CopyTracker struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
}

// NewCopyTracker creates a tracker. A non-positive delay falls back to
// DefaultCopyAckDuration.
func NewCopyTracker(delay time.Duration) *CopyTracker {
	if delay <= 0 {
		delay = DefaultCopyAckDuration
	}
	return &CopyTracker{
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

// MarkCopied records that the fix with the given id was just copied
func (t *CopyTracker) MarkCopied(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[id]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		// a Stop can lose the race against an already-fired timer; only
		// the timer that still owns the entry may clear it
		if t.timers[id] == timer {
			delete(t.timers, id)
		}
		t.mu.Unlock()
	})
	t.timers[id] = timer
}

// IsCopied reports whether the acknowledgment for id is still active
func (t *CopyTracker) IsCopied(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[id]
	return ok
}

// Stop cancels all pending acknowledgments
func (t *CopyTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
