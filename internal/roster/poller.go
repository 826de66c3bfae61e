package roster

import (
	"context"
	"errors"
	"time"

	"rostergate.org/internal/obs"
	"rostergate.org/internal/ownership"
)

// Poller periodically pulls a roster and applies it to the cache. Fetch failures
// leave the previous snapshot in place.
type Poller struct {
	source   Source
	cache    *ownership.Cache
	interval time.Duration
}

// NewPoller constructs a Poller; a non-positive interval defaults to 30s.
func NewPoller(source Source, cache *ownership.Cache, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{source: source, cache: cache, interval: interval}
}

// PollOnce fetches and applies one roster.
func (p *Poller) PollOnce(ctx context.Context) error {
	r, err := p.source.Fetch(ctx)
	if err != nil {
		obs.RosterFailed()
		return err
	}
	p.cache.ApplySnapshot(r.CommunityIDs, r.Tags)
	st := p.cache.Stats()
	obs.RosterApplied(st.CommunityCount, st.TagCount)
	return nil
}

// Run polls immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.poll(ctx)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	err := p.PollOnce(ctx)
	switch {
	case err == nil:
		st := p.cache.Stats()
		obs.Debug("roster_applied", map[string]any{
			"communities": st.CommunityCount,
			"tags":        st.TagCount,
		})
	case errors.Is(err, ErrNoRoster):
		obs.Info("roster_not_published", nil)
	case ctx.Err() != nil:
	default:
		obs.Error("roster_fetch_failed", err, nil)
	}
}
