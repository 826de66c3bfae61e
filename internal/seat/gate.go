package seat

import "time"

// Reason explains a gate decision.
type Reason string

const (
	ReasonEnforcementDisabled Reason = "enforcement_disabled"
	ReasonCheckPending        Reason = "seat_check_pending"
	ReasonLimitExceeded       Reason = "seat_limit_exceeded"
	ReasonUnderLimit          Reason = "under_limit"
)

const (
	DefaultFreshness = 90 * time.Second
	MinFreshness     = 5 * time.Second
	MaxFreshness     = 15 * time.Minute
)

// Config is the seat enforcement setting for an account.
type Config struct {
	Enabled bool `json:"enabled"`
	Limit   int  `json:"limit"`
}

// Snapshot is the latest seat count produced by the seat-count job.
type Snapshot struct {
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
	IsOverLimit bool      `json:"is_over_limit"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Decision is the gate verdict.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

type options struct {
	freshness time.Duration
}

// Option adjusts a single evaluation.
type Option func(*options)

// WithFreshness overrides how old a snapshot may be. The value is clamped to
// [MinFreshness, MaxFreshness].
func WithFreshness(d time.Duration) Option {
	return func(o *options) {
		o.freshness = ClampFreshness(d)
	}
}

// ClampFreshness bounds a freshness window override.
func ClampFreshness(d time.Duration) time.Duration {
	if d < MinFreshness {
		return MinFreshness
	}
	if d > MaxFreshness {
		return MaxFreshness
	}
	return d
}

// Evaluate decides whether access is allowed. Missing or stale seat data blocks
// with ReasonCheckPending; only a recent snapshot can allow access while
// enforcement is enabled.
func Evaluate(now time.Time, cfg *Config, snap *Snapshot, opts ...Option) Decision {
	o := options{freshness: DefaultFreshness}
	for _, opt := range opts {
		opt(&o)
	}

	switch {
	case cfg == nil || !cfg.Enabled:
		return Decision{Allowed: true, Reason: ReasonEnforcementDisabled}
	case cfg.Limit < 0:
		return Decision{Reason: ReasonCheckPending}
	case snap == nil:
		return Decision{Reason: ReasonCheckPending}
	case now.Sub(snap.CheckedAt) > o.freshness:
		return Decision{Reason: ReasonCheckPending}
	case snap.IsOverLimit || snap.Used > cfg.Limit:
		return Decision{Reason: ReasonLimitExceeded}
	default:
		return Decision{Allowed: true, Reason: ReasonUnderLimit}
	}
}
