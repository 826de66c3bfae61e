package content

import (
	"errors"
	"testing"
)

func strptr(s string) *string { return &s }

func TestResolve(t *testing.T) {
	att := []Attachment{{ID: "a1", URL: "https://cdn.example/a1.png"}}

	cases := []struct {
		name        string
		event       EventType
		incoming    string
		attachments []Attachment
		existing    string
		want        Resolution
	}{
		{"update with attachments only keeps text", EventUpdate, "", att, "existing", Resolution{Content: "existing", PreservedExisting: true}},
		{"update with text replaces", EventUpdate, "new", nil, "existing", Resolution{Content: "new"}},
		{"update with text and attachments replaces", EventUpdate, "new", att, "existing", Resolution{Content: "new"}},
		{"create never borrows", EventCreate, "", att, "existing", Resolution{Content: ""}},
		{"update without attachments clears", EventUpdate, "", nil, "existing", Resolution{Content: ""}},
		{"update with nothing stored", EventUpdate, "", att, "", Resolution{Content: ""}},
		{"delete passes through", EventDelete, "", att, "existing", Resolution{Content: ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.event, tc.incoming, tc.attachments, tc.existing)
			if got != tc.want {
				t.Fatalf("Resolve() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseEventType(t *testing.T) {
	ev, err := ParseEventType("  Update ")
	if err != nil || ev != EventUpdate {
		t.Fatalf("ParseEventType: got %q, %v", ev, err)
	}
	if _, err := ParseEventType("edit"); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestMergeKeepsStoredText(t *testing.T) {
	existing := &Message{ID: "m1", Content: "hello"}
	incoming := Message{
		ID:             " m1 ",
		AuthorUsername: strptr("   "),
		AuthorIcon:     strptr(" icon.png "),
		Attachments:    []Attachment{{ID: "a1", Filename: strptr("")}},
	}

	out, preserved := Merge(EventUpdate, incoming, existing)
	if !preserved {
		t.Fatalf("expected stored text to be preserved")
	}
	if out.Content != "hello" {
		t.Fatalf("unexpected content: %q", out.Content)
	}
	if out.ID != "m1" {
		t.Fatalf("expected trimmed id, got %q", out.ID)
	}
	if out.AuthorUsername != nil {
		t.Fatalf("expected blank username to collapse to nil")
	}
	if out.AuthorIcon == nil || *out.AuthorIcon != "icon.png" {
		t.Fatalf("unexpected icon: %v", out.AuthorIcon)
	}
	if out.Attachments[0].Filename != nil {
		t.Fatalf("expected blank filename to collapse to nil")
	}
	if incoming.Attachments[0].Filename == nil {
		t.Fatalf("merge must not mutate the caller's attachments")
	}
}

func TestMergeWithoutExisting(t *testing.T) {
	out, preserved := Merge(EventUpdate, Message{ID: "m2", Attachments: []Attachment{{ID: "a"}}}, nil)
	if preserved || out.Content != "" {
		t.Fatalf("unexpected merge result: %+v preserved=%v", out, preserved)
	}
}
