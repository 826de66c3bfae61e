package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"rostergate.org/internal/content"
	"rostergate.org/internal/setdiff"
	"rostergate.org/internal/store/pg"
)

type rolesDiffRequest struct {
	CommunityID string   `json:"community_id"`
	Desired     []string `json:"desired"`
	Current     []string `json:"current"`
}

type rolesDiffResponse struct {
	setdiff.Result
	UnknownTags []string `json:"unknown_tags,omitempty"`
}

type ingestRequest struct {
	Event   string          `json:"event"`
	Message content.Message `json:"message"`
}

type ingestResponse struct {
	Message           *content.Message `json:"message,omitempty"`
	PreservedExisting bool             `json:"preserved_existing"`
	Deleted           bool             `json:"deleted,omitempty"`
	Stale             bool             `json:"stale,omitempty"`
}

// handleRolesDiff computes the tag changes needed to move a member from current
// to desired. With a community_id, desired tags the community does not have are
// reported instead of added.
func (a *API) handleRolesDiff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req rolesDiffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	desired := req.Desired
	var unknown []string
	if community := strings.TrimSpace(req.CommunityID); community != "" {
		if !a.cache.IsReady() {
			writeError(w, r, http.StatusServiceUnavailable, errCacheNotReady.Error())
			return
		}
		if !a.cache.HasCommunity(community) {
			writeError(w, r, http.StatusNotFound, "community not found")
			return
		}
		desired = make([]string, 0, len(req.Desired))
		for _, tag := range req.Desired {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if a.cache.HasTagInCommunity(community, tag) {
				desired = append(desired, tag)
			} else {
				unknown = append(unknown, tag)
			}
		}
	}

	writeJSON(w, http.StatusOK, rolesDiffResponse{
		Result:      setdiff.Diff(desired, req.Current),
		UnknownTags: unknown,
	})
}

func (a *API) handleMessageIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if a.messages == nil {
		writeError(w, r, http.StatusServiceUnavailable, "message store unavailable")
		return
	}
	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	event, err := content.ParseEventType(req.Event)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "event must be create, update or delete")
		return
	}
	msg := content.Normalize(req.Message)
	if msg.ID == "" {
		writeError(w, r, http.StatusBadRequest, "message.id is required")
		return
	}
	now := a.clock()
	if msg.UpdatedAt.IsZero() {
		msg.UpdatedAt = now
	}
	ctx := r.Context()

	if event == content.EventDelete {
		if err := a.messages.DeleteMessage(ctx, msg.ID, msg.UpdatedAt); err != nil {
			if errors.Is(err, pg.ErrNotFound) {
				writeError(w, r, http.StatusNotFound, "message not found")
				return
			}
			handleStoreError(w, r, "message_delete", err)
			return
		}
		writeJSON(w, http.StatusOK, ingestResponse{Deleted: true})
		return
	}

	if msg.CommunityID == "" || msg.ChannelID == "" || msg.AuthorID == "" {
		writeError(w, r, http.StatusBadRequest, "message.community_id, channel_id and author_id are required")
		return
	}
	if a.cache.IsReady() && !a.cache.HasCommunity(msg.CommunityID) {
		writeError(w, r, http.StatusNotFound, "community not found")
		return
	}

	existing, err := a.messages.GetMessage(ctx, msg.ID)
	if err != nil {
		handleStoreError(w, r, "message_get", err)
		return
	}
	if existing != nil && msg.UpdatedAt.Before(existing.UpdatedAt) {
		writeJSON(w, http.StatusOK, ingestResponse{Message: existing, Stale: true})
		return
	}
	merged, preserved := content.Merge(event, msg, existing)
	if err := a.messages.UpsertMessage(ctx, merged); err != nil {
		handleStoreError(w, r, "message_upsert", err)
		return
	}
	code := http.StatusOK
	if existing == nil {
		code = http.StatusCreated
	}
	writeJSON(w, code, ingestResponse{Message: &merged, PreservedExisting: preserved})
}
