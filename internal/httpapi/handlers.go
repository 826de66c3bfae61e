package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rostergate.org/internal/auth"
	"rostergate.org/internal/content"
	"rostergate.org/internal/obs"
	"rostergate.org/internal/ownership"
	"rostergate.org/internal/queue"
	"rostergate.org/internal/seat"
)

const serviceName = "rostergate"

var (
	errCacheNotReady = errors.New("roster not loaded")
	errCacheStale    = errors.New("roster snapshot is stale")
)

// ReadyProbe checks the database and the ownership cache.
type ReadyProbe struct {
	DB     *sql.DB
	Cache  *ownership.Cache
	MaxAge time.Duration
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB != nil {
		if err := rp.DB.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if rp.Cache == nil {
		return nil
	}
	age, ok := rp.Cache.Age(time.Now().UTC())
	if !ok {
		return errCacheNotReady
	}
	if rp.MaxAge > 0 && age > rp.MaxAge {
		return errCacheStale
	}
	return nil
}

// SeatStore reads what the seat gate evaluates.
type SeatStore interface {
	SeatConfig(ctx context.Context, accountID string) (*seat.Config, error)
	LatestSeatSnapshot(ctx context.Context, accountID string) (*seat.Snapshot, error)
}

// MessageStore persists ingested chat messages.
type MessageStore interface {
	GetMessage(ctx context.Context, id string) (*content.Message, error)
	UpsertMessage(ctx context.Context, m content.Message) error
	DeleteMessage(ctx context.Context, id string, at time.Time) error
}

// Deps wires the API to its collaborators. Nil stores disable the routes
// that need them.
type Deps struct {
	Ready      ReadyProbe
	Version    string
	Cache      *ownership.Cache
	Seats      SeatStore
	Messages   MessageStore
	Queues     queue.PendingLister
	Categories []string
	Workers    auth.SecretSet
	Grants     *auth.GrantIssuer
	Freshness  time.Duration
	RateBurst  int
	RatePerSec int
	MaxBody    int64
	// TrustProxy keys rate limiting on X-Forwarded-For. Enable only behind a
	// proxy that overwrites the header.
	TrustProxy bool
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	cache      *ownership.Cache
	seats      SeatStore
	messages   MessageStore
	queues     queue.PendingLister
	categories []string
	workers    auth.SecretSet
	grants     *auth.GrantIssuer
	freshness  time.Duration

	rateBurst  int
	ratePerSec int
	maxBody    int64
	trustProxy bool
	clock      func() time.Time
}

func New(d Deps) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: d.Ready,
		version:    d.Version,
		cache:      d.Cache,
		seats:      d.Seats,
		messages:   d.Messages,
		queues:     d.Queues,
		categories: d.Categories,
		workers:    d.Workers,
		grants:     d.Grants,
		freshness:  seat.ClampFreshness(d.Freshness),
		rateBurst:  d.RateBurst,
		ratePerSec: d.RatePerSec,
		maxBody:    d.MaxBody,
		trustProxy: d.TrustProxy,
		clock:      func() time.Time { return time.Now().UTC() },
	}
	if d.Freshness == 0 {
		a.freshness = seat.DefaultFreshness
	}
	if a.cache == nil {
		a.cache = ownership.New()
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}
	if a.maxBody <= 0 {
		a.maxBody = 1 << 20
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	// Everything below serves remote workers and requires a worker secret.
	a.handleWorker("/v1/worker/status", a.handleWorkerStatus)
	a.handleWorker("/v1/seats/", a.handleSeatResource)
	a.handleWorker("/v1/ownership/stats", a.handleOwnershipStats)
	a.handleWorker("/v1/communities/", a.handleCommunityResource)
	a.handleWorker("/v1/roles/diff", a.handleRolesDiff)
	a.handleWorker("/v1/messages/ingest", a.handleMessageIngest)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

func (a *API) handleWorker(pattern string, h http.HandlerFunc) {
	a.mux.Handle(pattern, a.withWorkerAuth(h))
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = obs.Instrument(a.mux)
	h = RateLimit(h, a.rateBurst, a.ratePerSec, a.trustProxy)
	h = MaxBodyBytes(h, a.maxBody)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    a.clock().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// unixMillis renders an optional timestamp as epoch milliseconds or null.
func unixMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func handleStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, "request cancelled")
	default:
		obs.Error(op+"_failed", err, map[string]any{"request_id": RequestIDFromContext(r.Context())})
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
