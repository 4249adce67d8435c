package gameserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func startHealth(t *testing.T) (*HealthServer, healthpb.HealthClient) {
	t.Helper()
	hs := NewHealthServer("127.0.0.1:0", zaptest.NewLogger(t))
	require.NoError(t, hs.Listen())
	go func() { _ = hs.Serve() }()
	t.Cleanup(hs.Stop)

	conn, err := grpc.NewClient(hs.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return hs, healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthServer_Transitions(t *testing.T) {
	hs, client := startHealth(t)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ""))

	hs.SetServing(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, HealthService))

	hs.SetServing(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, HealthService))
}

func TestHealthServer_ReportsRuntimeReload(t *testing.T) {
	hs, client := startHealth(t)
	rt, err := NewRuntime(RuntimeOptions{Health: hs, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	defer rt.Close()
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))

	require.NoError(t, rt.Reload())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
}
