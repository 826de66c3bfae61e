package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"rostergate.org/internal/obs"
)

// HealthReporter publishes readiness through the standard grpc.health.v1 service.
type HealthReporter struct {
	server   *health.Server
	probe    ReadyProbe
	interval time.Duration
}

// NewHealthReporter starts in NOT_SERVING until the first Refresh.
func NewHealthReporter(probe ReadyProbe, interval time.Duration) *HealthReporter {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	srv.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthReporter{server: srv, probe: probe, interval: interval}
}

// Register attaches the health service to s.
func (h *HealthReporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Refresh runs the readiness probe once and updates the serving status.
func (h *HealthReporter) Refresh(ctx context.Context) bool {
	status := healthpb.HealthCheckResponse_SERVING
	ready := true
	if err := h.probe.Check(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		ready = false
	}
	obs.SetReady(ready)
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(serviceName, status)
	return ready
}

// Run refreshes on every tick and marks the service as shut down when ctx ends.
func (h *HealthReporter) Run(ctx context.Context) error {
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		h.Refresh(ctx)
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return nil
		case <-t.C:
		}
	}
}
