package httpapi

import (
	"net/http"
	"strings"
)

func (a *API) handleOwnershipStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	st := a.cache.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"ready":           a.cache.IsReady(),
		"community_count": st.CommunityCount,
		"tag_count":       st.TagCount,
		"last_updated_at": unixMillis(st.LastUpdatedAt),
	})
}

// handleCommunityResource serves /v1/communities/{id} and
// /v1/communities/{id}/tags/{tag}.
func (a *API) handleCommunityResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/communities/"), "/")
	if !a.cache.IsReady() {
		writeError(w, r, http.StatusServiceUnavailable, errCacheNotReady.Error())
		return
	}
	switch {
	case len(parts) == 1 && parts[0] != "":
		a.getCommunity(w, r, parts[0])
	case len(parts) == 3 && parts[0] != "" && parts[1] == "tags" && parts[2] != "":
		writeJSON(w, http.StatusOK, map[string]any{
			"community_id": parts[0],
			"tag_id":       parts[2],
			"present":      a.cache.HasTagInCommunity(parts[0], parts[2]),
		})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getCommunity(w http.ResponseWriter, r *http.Request, id string) {
	if !a.cache.HasCommunity(id) {
		writeError(w, r, http.StatusNotFound, "community not found")
		return
	}
	tags := a.cache.TagsForCommunity(id)
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":   strings.TrimSpace(id),
		"tags": tags,
	})
}
