package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyTrackerAutoClears(t *testing.T) {
	tracker := NewCopyTracker(10 * time.Millisecond)
	defer tracker.Stop()

	tracker.MarkCopied("seo-0")
	assert.True(t, tracker.IsCopied("seo-0"))

	require.Eventually(t, func() bool { return !tracker.IsCopied("seo-0") },
		timeout, tick, "acknowledgment should clear itself")
}

func TestCopyTrackerMarksAreIndependent(t *testing.T) {
	tracker := NewCopyTracker(50 * time.Millisecond)
	defer tracker.Stop()

	tracker.MarkCopied("seo-0")
	tracker.MarkCopied("speed-1")

	assert.True(t, tracker.IsCopied("seo-0"))
	assert.True(t, tracker.IsCopied("speed-1"))
	assert.False(t, tracker.IsCopied("content-2"))
}

func TestCopyTrackerRemarkRestartsClock(t *testing.T) {
	tracker := NewCopyTracker(40 * time.Millisecond)
	defer tracker.Stop()

	tracker.MarkCopied("seo-0")
	time.Sleep(25 * time.Millisecond)
	tracker.MarkCopied("seo-0")
	time.Sleep(25 * time.Millisecond)

	assert.True(t, tracker.IsCopied("seo-0"), "re-marking should restart the clear timer")
}

func TestCopyTrackerRemarkAtExpiryBoundaryKeepsAck(t *testing.T) {
	tracker := NewCopyTracker(5 * time.Millisecond)
	defer tracker.Stop()

	// re-mark exactly when the previous timer fires; a fired callback must
	// never clear the entry the re-mark just installed
	for i := 0; i < 200; i++ {
		tracker.MarkCopied("seo-0")
		time.Sleep(5 * time.Millisecond)
		tracker.MarkCopied("seo-0")
		if !tracker.IsCopied("seo-0") {
			t.Fatalf("iteration %d: ack cleared immediately after re-mark", i)
		}
	}
}

func TestCopyTrackerStopCancelsAll(t *testing.T) {
	tracker := NewCopyTracker(time.Hour)
	tracker.MarkCopied("seo-0")
	tracker.MarkCopied("seo-1")

	tracker.Stop()
	assert.False(t, tracker.IsCopied("seo-0"))
	assert.False(t, tracker.IsCopied("seo-1"))
}

func TestCopyTrackerDefaultDelay(t *testing.T) {
	tracker := NewCopyTracker(0)
	defer tracker.Stop()
	assert.Equal(t, DefaultCopyAckDuration, tracker.delay)
}
