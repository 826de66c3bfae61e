package queue

import (
	"context"
	"fmt"
	"time"
)

// Record is the part of a pending job the summarizer looks at.
type Record struct {
	RunAfter  time.Time
	UpdatedAt time.Time
}

// Summary describes how ready a queue category is.
type Summary struct {
	PendingReady  int
	NextRunAfter  *time.Time
	PendingTotal  int
	WakeUpdatedAt *time.Time
}

// ShouldWake reports whether a dormant worker has due work.
func (s Summary) ShouldWake() bool { return s.PendingReady > 0 }

// Summarize reduces pending records in one pass. A record is ready once its
// RunAfter is at or before now.
func Summarize(records []Record, now time.Time) Summary {
	var (
		s        Summary
		next     time.Time
		lastSeen time.Time
	)
	for i, rec := range records {
		if !rec.RunAfter.After(now) {
			s.PendingReady++
		}
		if i == 0 || rec.RunAfter.Before(next) {
			next = rec.RunAfter
		}
		if i == 0 || rec.UpdatedAt.After(lastSeen) {
			lastSeen = rec.UpdatedAt
		}
	}
	s.PendingTotal = len(records)
	if s.PendingTotal > 0 {
		s.NextRunAfter = &next
		s.WakeUpdatedAt = &lastSeen
	}
	return s
}

// PendingLister loads pending records for a queue category.
type PendingLister interface {
	ListPending(ctx context.Context, category string) ([]Record, error)
}

// Status is the composite payload a polling worker reads.
type Status struct {
	Now    time.Time
	Queues map[string]Summary
}

// BuildStatus summarizes each category independently. The first failing
// category aborts the build.
func BuildStatus(ctx context.Context, lister PendingLister, categories []string, now time.Time) (Status, error) {
	st := Status{Now: now, Queues: make(map[string]Summary, len(categories))}
	for _, category := range categories {
		records, err := lister.ListPending(ctx, category)
		if err != nil {
			return Status{}, fmt.Errorf("list pending %s: %w", category, err)
		}
		st.Queues[category] = Summarize(records, now)
	}
	return st, nil
}
