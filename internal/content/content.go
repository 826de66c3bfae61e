package content

import (
	"errors"
	"strings"
	"time"
)

// EventType is the upstream message event kind.
type EventType string

const (
	EventCreate EventType = "create"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// ErrUnknownEvent is returned by ParseEventType for unsupported event names.
var ErrUnknownEvent = errors.New("content: unknown event type")

// ParseEventType normalizes an event name received at the transport boundary.
func ParseEventType(raw string) (EventType, error) {
	switch EventType(strings.ToLower(strings.TrimSpace(raw))) {
	case EventCreate:
		return EventCreate, nil
	case EventUpdate:
		return EventUpdate, nil
	case EventDelete:
		return EventDelete, nil
	default:
		return "", ErrUnknownEvent
	}
}

// Attachment is a file attached to an upstream message.
type Attachment struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Filename    *string `json:"filename,omitempty"`
	ContentType *string `json:"content_type,omitempty"`
	Size        int64   `json:"size"`
}

// Message is the locally stored view of an upstream chat message.
type Message struct {
	ID             string       `json:"id"`
	CommunityID    string       `json:"community_id"`
	ChannelID      string       `json:"channel_id"`
	AuthorID       string       `json:"author_id"`
	AuthorUsername *string      `json:"author_username,omitempty"`
	AuthorIcon     *string      `json:"author_icon,omitempty"`
	Content        string       `json:"content"`
	Attachments    []Attachment `json:"attachments"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Resolution is the outcome of merging incoming content with stored content.
type Resolution struct {
	Content           string `json:"content"`
	PreservedExisting bool   `json:"preserved_existing"`
}

// Resolve decides which text to store for an incoming event. An update that carries
// only attachments keeps the previously stored text; every other event stores the
// incoming text verbatim.
func Resolve(event EventType, incoming string, attachments []Attachment, existing string) Resolution {
	if event == EventUpdate && incoming == "" && len(attachments) > 0 && existing != "" {
		return Resolution{Content: existing, PreservedExisting: true}
	}
	return Resolution{Content: incoming}
}

// Merge applies Resolve to a whole message record. existing may be nil when the
// message has not been stored before.
func Merge(event EventType, incoming Message, existing *Message) (Message, bool) {
	out := Normalize(incoming)
	prior := ""
	if existing != nil {
		prior = existing.Content
	}
	res := Resolve(event, out.Content, out.Attachments, prior)
	out.Content = res.Content
	return out, res.PreservedExisting
}

// Normalize collapses empty optional fields to nil and trims identifiers. It runs
// once when a message enters the system.
func Normalize(m Message) Message {
	m.ID = strings.TrimSpace(m.ID)
	m.CommunityID = strings.TrimSpace(m.CommunityID)
	m.ChannelID = strings.TrimSpace(m.ChannelID)
	m.AuthorID = strings.TrimSpace(m.AuthorID)
	m.AuthorUsername = NormalizeOptional(m.AuthorUsername)
	m.AuthorIcon = NormalizeOptional(m.AuthorIcon)
	if len(m.Attachments) > 0 {
		atts := make([]Attachment, len(m.Attachments))
		for i, a := range m.Attachments {
			a.Filename = NormalizeOptional(a.Filename)
			a.ContentType = NormalizeOptional(a.ContentType)
			atts[i] = a
		}
		m.Attachments = atts
	}
	return m
}

// NormalizeOptional returns nil for nil, empty, or whitespace-only values and a
// pointer to the trimmed value otherwise.
func NormalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
