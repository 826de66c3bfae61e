package httpapi

import (
	"net/http"
	"strings"
	"time"

	"rostergate.org/internal/audit"
	"rostergate.org/internal/obs"
	"rostergate.org/internal/seat"
)

type grantResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type seatCheckResponse struct {
	AccountID string         `json:"account_id"`
	Allowed   bool           `json:"allowed"`
	Reason    seat.Reason    `json:"reason"`
	Grant     *grantResponse `json:"grant,omitempty"`
}

func (a *API) handleSeatResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/seats/")
	account, rest, found := strings.Cut(path, "/")
	if !found || rest != "check" || strings.TrimSpace(account) == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.checkSeat(w, r, strings.TrimSpace(account))
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) checkSeat(w http.ResponseWriter, r *http.Request, accountID string) {
	if a.seats == nil {
		writeError(w, r, http.StatusServiceUnavailable, "seat store unavailable")
		return
	}
	ctx := r.Context()
	cfg, err := a.seats.SeatConfig(ctx, accountID)
	if err != nil {
		handleStoreError(w, r, "seat_config", err)
		return
	}
	var snap *seat.Snapshot
	if cfg != nil && cfg.Enabled {
		snap, err = a.seats.LatestSeatSnapshot(ctx, accountID)
		if err != nil {
			handleStoreError(w, r, "seat_snapshot", err)
			return
		}
	}

	d := seat.Evaluate(a.clock(), cfg, snap, seat.WithFreshness(a.freshness))
	obs.GateDecision(string(d.Reason))
	resp := seatCheckResponse{AccountID: accountID, Allowed: d.Allowed, Reason: d.Reason}

	if !d.Allowed {
		fields := map[string]any{"account_id": accountID, "reason": string(d.Reason)}
		if snap != nil {
			fields["used"] = snap.Used
			fields["limit"] = snap.Limit
			fields["checked_at"] = snap.CheckedAt.UnixMilli()
		}
		_ = audit.LogEvent(ctx, "seat_gate_blocked", fields)
		writeJSON(w, http.StatusForbidden, resp)
		return
	}

	if subject := strings.TrimSpace(r.URL.Query().Get("subject")); subject != "" && a.grants != nil {
		var checkedAt time.Time
		if snap != nil {
			checkedAt = snap.CheckedAt
		}
		token, exp, err := a.grants.Issue(subject, accountID, string(d.Reason), checkedAt, a.freshness)
		if err != nil {
			obs.Error("grant_issue_failed", err, map[string]any{"account_id": accountID})
		} else {
			resp.Grant = &grantResponse{Token: token, ExpiresAt: exp}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
