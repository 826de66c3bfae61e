package httpapi

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"rostergate.org/internal/ownership"
)

const bufSize = 1024 * 1024

func startBufGRPC(t *testing.T, h *HealthReporter) (*grpc.ClientConn, func()) {
	t.Helper()

	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer()
	h.Register(server)

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			t.Logf("grpc serve error: %v", err)
		}
	}()

	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.Dial()
	}
	conn, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufnet: %v", err)
	}

	cleanup := func() {
		server.GracefulStop()
		_ = conn.Close()
		_ = listener.Close()
	}
	return conn, cleanup
}

func TestHealthFollowsCacheReadiness(t *testing.T) {
	cache := ownership.New()
	h := NewHealthReporter(ReadyProbe{Cache: cache}, time.Minute)
	conn, cleanup := startBufGRPC(t, h)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client := healthpb.NewHealthClient(conn)

	if h.Refresh(ctx) {
		t.Fatal("expected not ready before first snapshot")
	}
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: serviceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("unexpected status: %v", resp.GetStatus())
	}

	cache.ApplySnapshot([]string{"g1"}, nil)
	if !h.Refresh(ctx) {
		t.Fatal("expected ready after snapshot")
	}
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("unexpected status: %v", resp.GetStatus())
	}
}

func TestHealthReporterStaleRoster(t *testing.T) {
	clock := time.Now().Add(-time.Hour)
	cache := ownership.New(ownership.WithClock(func() time.Time { return clock }))
	cache.ApplySnapshot([]string{"g1"}, nil)

	h := NewHealthReporter(ReadyProbe{Cache: cache, MaxAge: time.Minute}, time.Minute)
	if h.Refresh(context.Background()) {
		t.Fatal("expected stale roster to report not ready")
	}
}

func TestHealthReporterRunStops(t *testing.T) {
	h := NewHealthReporter(ReadyProbe{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
