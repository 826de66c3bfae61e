package ownership

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// TagSnapshot is the membership-tag set reported for one community.
type TagSnapshot struct {
	CommunityID string   `json:"community_id"`
	TagIDs      []string `json:"tag_ids"`
}

// Stats summarizes the cache contents.
type Stats struct {
	CommunityCount int        `json:"community_count"`
	TagCount       int        `json:"tag_count"`
	LastUpdatedAt  *time.Time `json:"last_updated_at"`
}

type set map[string]struct{}

// state is immutable once published.
type state struct {
	communities set
	tags        set
	byCommunity map[string]set
	updatedAt   time.Time
}

// Cache holds the most recent community/tag ownership snapshot. It is safe for
// concurrent use; ApplySnapshot publishes a new state in a single swap.
type Cache struct {
	applyMu sync.Mutex // serializes ApplySnapshot
	mu      sync.RWMutex
	cur     *state
	clock   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source used for LastUpdatedAt.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New creates an empty cache. IsReady is false until the first ApplySnapshot.
func New(opts ...Option) *Cache {
	c := &Cache{clock: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ApplySnapshot replaces the known community set. Tag sets are replaced for
// communities present in tags, kept for known communities that were not re-sent,
// and dropped for communities that are no longer known. Blank identifiers and tag
// sets for unknown communities are ignored.
func (c *Cache) ApplySnapshot(communityIDs []string, tags []TagSnapshot) {
	communities := normalize(communityIDs)

	incoming := make(map[string]set, len(tags))
	for _, snap := range tags {
		id := strings.TrimSpace(snap.CommunityID)
		if id == "" {
			continue
		}
		if _, ok := communities[id]; !ok {
			continue
		}
		incoming[id] = normalize(snap.TagIDs)
	}

	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	prev := c.load()

	next := &state{
		communities: communities,
		tags:        make(set),
		byCommunity: make(map[string]set, len(communities)),
	}
	for id := range communities {
		if tagSet, ok := incoming[id]; ok {
			next.byCommunity[id] = tagSet
			continue
		}
		if prev != nil {
			if tagSet, ok := prev.byCommunity[id]; ok {
				next.byCommunity[id] = tagSet
			}
		}
	}
	for _, tagSet := range next.byCommunity {
		for tag := range tagSet {
			next.tags[tag] = struct{}{}
		}
	}

	next.updatedAt = c.clock()
	if prev != nil && next.updatedAt.Before(prev.updatedAt) {
		next.updatedAt = prev.updatedAt
	}

	c.mu.Lock()
	c.cur = next
	c.mu.Unlock()
}

func (c *Cache) load() *state {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

// HasCommunity reports whether the community is in the latest snapshot.
func (c *Cache) HasCommunity(id string) bool {
	st := c.load()
	if st == nil {
		return false
	}
	_, ok := st.communities[strings.TrimSpace(id)]
	return ok
}

// HasTag reports whether any known community carries the tag.
func (c *Cache) HasTag(id string) bool {
	st := c.load()
	if st == nil {
		return false
	}
	_, ok := st.tags[strings.TrimSpace(id)]
	return ok
}

// HasTagInCommunity reports whether the tag belongs to the given known community.
func (c *Cache) HasTagInCommunity(communityID, tagID string) bool {
	st := c.load()
	if st == nil {
		return false
	}
	tags, ok := st.byCommunity[strings.TrimSpace(communityID)]
	if !ok {
		return false
	}
	_, ok = tags[strings.TrimSpace(tagID)]
	return ok
}

// TagsForCommunity returns the sorted tag ids of a community, or nil if unknown.
func (c *Cache) TagsForCommunity(id string) []string {
	st := c.load()
	if st == nil {
		return nil
	}
	tags, ok := st.byCommunity[strings.TrimSpace(id)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(tags))
	for tag := range tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// IsReady reports whether at least one snapshot has been applied.
func (c *Cache) IsReady() bool {
	return c.load() != nil
}

// Age returns how long ago the last snapshot was applied.
func (c *Cache) Age(now time.Time) (time.Duration, bool) {
	st := c.load()
	if st == nil {
		return 0, false
	}
	return now.Sub(st.updatedAt), true
}

// Stats returns counts and the time of the last applied snapshot.
func (c *Cache) Stats() Stats {
	st := c.load()
	if st == nil {
		return Stats{}
	}
	ts := st.updatedAt
	return Stats{
		CommunityCount: len(st.communities),
		TagCount:       len(st.tags),
		LastUpdatedAt:  &ts,
	}
}

func normalize(ids []string) set {
	out := make(set, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out[id] = struct{}{}
	}
	return out
}
