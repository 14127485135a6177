package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "━"
	ProgressEmpty = "─"
)

// RunStats is a snapshot of a StatusTracker
type RunStats struct {
	ItemsStarted    int
	ItemsCompleted  int
	ItemsFailed     int
	AssetsTotal     int
	AssetsCompleted int
	AssetsFailed    int
	Elapsed         time.Duration
}

// ItemsDone is the number of items that reached a final state
func (s RunStats) ItemsDone() int {
	return s.ItemsCompleted + s.ItemsFailed
}

// AssetsDone is the number of assets that reached a final state
func (s RunStats) AssetsDone() int {
	return s.AssetsCompleted + s.AssetsFailed
}

// StatusTracker counts item and asset progress. It is safe for concurrent use.
type StatusTracker struct {
	mu        sync.Mutex
	stats     RunStats
	startTime time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		startTime: time.Now(),
	}
}

func (st *StatusTracker) update(fn func(s *RunStats)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.stats)
}

func (st *StatusTracker) ItemStarted()         { st.update(func(s *RunStats) { s.ItemsStarted++ }) }
func (st *StatusTracker) ItemCompleted()       { st.update(func(s *RunStats) { s.ItemsCompleted++ }) }
func (st *StatusTracker) ItemFailed()          { st.update(func(s *RunStats) { s.ItemsFailed++ }) }
func (st *StatusTracker) AssetCompleted()      { st.update(func(s *RunStats) { s.AssetsCompleted++ }) }
func (st *StatusTracker) AssetFailed()         { st.update(func(s *RunStats) { s.AssetsFailed++ }) }
func (st *StatusTracker) AssetsResolved(n int) { st.update(func(s *RunStats) { s.AssetsTotal += n }) }

// Snapshot returns the current counters
func (st *StatusTracker) Snapshot() RunStats {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.stats
	s.Elapsed = time.Since(st.startTime)
	return s
}

// GetDownloadRate returns the average number of finished files per minute
func (st *StatusTracker) GetDownloadRate() float64 {
	s := st.Snapshot()
	minutes := s.Elapsed.Minutes()
	if minutes == 0 {
		return 0
	}
	return float64(s.AssetsCompleted) / minutes
}

// GetProgressBar renders finished files against files known so far
func (st *StatusTracker) GetProgressBar(width int) string {
	s := st.Snapshot()
	return renderBar(s.AssetsDone(), s.AssetsTotal, width)
}

func renderBar(done, total, width int) string {
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
