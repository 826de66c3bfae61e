package httpapi

import (
	"net/http"
	"strings"

	"rostergate.org/internal/audit"
	"rostergate.org/internal/auth"
	"rostergate.org/internal/obs"
)

const (
	authHeader   = "Authorization"
	workerHeader = "X-Worker-Token"
	bearer       = "Bearer "
)

// withWorkerAuth admits requests that present one of the configured worker
// secrets. An empty allow-set answers 503 so operators notice the gap.
func (a *API) withWorkerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := presentedToken(r)
		res := a.workers.Verify(token)
		obs.WorkerAuth(string(res.Outcome))

		switch res.Outcome {
		case auth.OutcomeMisconfigured:
			_ = audit.LogEvent(r.Context(), "worker_auth_misconfigured", map[string]any{
				"path": r.URL.Path,
			})
			writeError(w, r, http.StatusServiceUnavailable, "worker authentication is not configured")
			return
		case auth.OutcomeUnauthorized:
			w.Header().Set("WWW-Authenticate", `Bearer realm="worker"`)
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := auth.ContextWithWorker(r.Context(), res.WorkerID)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// presentedToken reads a bearer token, falling back to the worker header.
func presentedToken(r *http.Request) string {
	if token, ok := extractBearerToken(r.Header.Get(authHeader)); ok {
		return token
	}
	return strings.TrimSpace(r.Header.Get(workerHeader))
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearer):])
	return token, token != ""
}
