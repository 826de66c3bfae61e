package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func ms(n int64) time.Time { return time.UnixMilli(n).UTC() }

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, ms(1000))
	if s.PendingReady != 0 || s.PendingTotal != 0 || s.NextRunAfter != nil || s.WakeUpdatedAt != nil {
		t.Fatalf("unexpected summary for empty input: %+v", s)
	}
	if s.ShouldWake() {
		t.Fatalf("empty queue must not wake a worker")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Record{
		{RunAfter: ms(100), UpdatedAt: ms(50)},
		{RunAfter: ms(200), UpdatedAt: ms(80)},
	}, ms(150))

	if s.PendingReady != 1 || s.PendingTotal != 2 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if !s.NextRunAfter.Equal(ms(100)) {
		t.Fatalf("unexpected next run: %v", s.NextRunAfter)
	}
	if !s.WakeUpdatedAt.Equal(ms(80)) {
		t.Fatalf("unexpected wake updated: %v", s.WakeUpdatedAt)
	}
	if !s.ShouldWake() {
		t.Fatalf("expected due work to wake the worker")
	}
}

func TestSummarizeBoundaryAndOrder(t *testing.T) {
	s := Summarize([]Record{
		{RunAfter: ms(500), UpdatedAt: ms(10)},
		{RunAfter: ms(300), UpdatedAt: ms(900)},
		{RunAfter: ms(300), UpdatedAt: ms(20)},
	}, ms(300))
	if s.PendingReady != 2 {
		t.Fatalf("records due exactly now must count as ready, got %d", s.PendingReady)
	}
	if !s.NextRunAfter.Equal(ms(300)) || !s.WakeUpdatedAt.Equal(ms(900)) {
		t.Fatalf("unexpected extrema: %+v", s)
	}
}

type fakeLister map[string][]Record

func (f fakeLister) ListPending(_ context.Context, category string) ([]Record, error) {
	recs, ok := f[category]
	if !ok {
		return nil, errors.New("unknown category")
	}
	return recs, nil
}

func TestBuildStatus(t *testing.T) {
	lister := fakeLister{
		"notifications": {{RunAfter: ms(10), UpdatedAt: ms(5)}},
		"role_sync":     {},
	}
	st, err := BuildStatus(context.Background(), lister, []string{"notifications", "role_sync"}, ms(20))
	if err != nil {
		t.Fatalf("BuildStatus: %v", err)
	}
	if !st.Now.Equal(ms(20)) || len(st.Queues) != 2 {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.Queues["notifications"].PendingReady != 1 || st.Queues["role_sync"].PendingTotal != 0 {
		t.Fatalf("unexpected per-queue summaries: %+v", st.Queues)
	}

	if _, err := BuildStatus(context.Background(), lister, []string{"missing"}, ms(20)); err == nil {
		t.Fatalf("expected error for failing category")
	}
}
