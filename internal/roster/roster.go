// Package roster fetches community/tag rosters published by the chat bot and feeds
// them into the ownership cache.
package roster

import (
	"context"
	"errors"
	"strings"

	"rostergate.org/internal/content"
	"rostergate.org/internal/ownership"
)

// ErrNoRoster is returned when the upstream has not published a roster yet.
var ErrNoRoster = errors.New("roster: not published")

// Community is descriptive data about a chat community. Icon is nil when the
// upstream sent none or an empty value.
type Community struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Icon *string `json:"icon,omitempty"`
}

// Roster is one full point-in-time view of the upstream platform.
type Roster struct {
	CommunityIDs []string
	Tags         []ownership.TagSnapshot
	Communities  []Community
}

// Source fetches the current roster.
type Source interface {
	Fetch(ctx context.Context) (Roster, error)
}

// document is the JSON layout published by the bot.
type document struct {
	Communities []Community             `json:"communities"`
	Tags        []ownership.TagSnapshot `json:"tags"`
}

func (d document) roster() Roster {
	r := Roster{
		CommunityIDs: make([]string, 0, len(d.Communities)),
		Tags:         d.Tags,
		Communities:  make([]Community, 0, len(d.Communities)),
	}
	for _, c := range d.Communities {
		c.ID = strings.TrimSpace(c.ID)
		c.Name = strings.TrimSpace(c.Name)
		c.Icon = content.NormalizeOptional(c.Icon)
		r.CommunityIDs = append(r.CommunityIDs, c.ID)
		r.Communities = append(r.Communities, c)
	}
	return r
}
