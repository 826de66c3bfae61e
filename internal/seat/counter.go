package seat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rostergate.org/internal/obs"
)

// Store is the persistence the seat-count job needs.
type Store interface {
	ListEnforcedAccounts(ctx context.Context) ([]string, error)
	SeatConfig(ctx context.Context, accountID string) (*Config, error)
	ActiveSeats(ctx context.Context, accountID string) (int, error)
	SaveSeatSnapshot(ctx context.Context, accountID, snapshotID string, snap Snapshot) error
}

// Counter periodically recounts seats and records a Snapshot per enforced account.
type Counter struct {
	store    Store
	interval time.Duration
	clock    func() time.Time
}

// NewCounter constructs a Counter. A non-positive interval defaults to 30s, which
// keeps snapshots well inside the default freshness window.
func NewCounter(store Store, interval time.Duration) *Counter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Counter{
		store:    store,
		interval: interval,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce counts seats for every enforced account and returns how many snapshots
// were written. It keeps going when a single account fails and returns the joined
// errors.
func (c *Counter) RunOnce(ctx context.Context) (int, error) {
	accounts, err := c.store.ListEnforcedAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list enforced accounts: %w", err)
	}
	var (
		written int
		errs    []error
	)
	for _, accountID := range accounts {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		saved, err := c.countAccount(ctx, accountID)
		if err != nil {
			errs = append(errs, fmt.Errorf("account %s: %w", accountID, err))
			continue
		}
		if saved {
			written++
		}
	}
	return written, errors.Join(errs...)
}

// countAccount reports whether a snapshot was written; accounts without enabled
// enforcement are skipped.
func (c *Counter) countAccount(ctx context.Context, accountID string) (bool, error) {
	cfg, err := c.store.SeatConfig(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("load config: %w", err)
	}
	if cfg == nil || !cfg.Enabled {
		return false, nil
	}
	used, err := c.store.ActiveSeats(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("count seats: %w", err)
	}
	snap := Snapshot{
		Used:        used,
		Limit:       cfg.Limit,
		IsOverLimit: cfg.Limit >= 0 && used > cfg.Limit,
		CheckedAt:   c.clock(),
	}
	if err := c.store.SaveSeatSnapshot(ctx, accountID, uuid.NewString(), snap); err != nil {
		return false, fmt.Errorf("save snapshot: %w", err)
	}
	return true, nil
}

// Run counts immediately and then on every tick until ctx is done.
func (c *Counter) Run(ctx context.Context) error {
	c.tick(ctx)
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			c.tick(ctx)
		}
	}
}

func (c *Counter) tick(ctx context.Context) {
	n, err := c.RunOnce(ctx)
	obs.SeatCountRun(err)
	if err != nil && ctx.Err() == nil {
		obs.Error("seat_count_failed", err, map[string]any{"written": n})
		return
	}
	obs.Debug("seat_count_complete", map[string]any{"written": n})
}
