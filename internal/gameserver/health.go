package gameserver

import (
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the service name reported alongside the overall ("") status.
const HealthService = "hysbakstryd.Game"

// HealthServer exposes the standard gRPC health protocol. A supervisor polls it
// to hold traffic while a reload migrates state.
type HealthServer struct {
	addr   string
	logger *zap.Logger
	grpc   *grpc.Server
	health *health.Server

	mu  sync.Mutex
	lis net.Listener
}

// NewHealthServer creates a server for addr reporting NOT_SERVING until
// SetServing(true).
//
// Precondition: logger must be non-nil.
func NewHealthServer(addr string, logger *zap.Logger) *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &HealthServer{addr: addr, logger: logger, grpc: srv, health: hs}
}

// SetServing implements HealthReporter.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(HealthService, status)
	h.logger.Debug("health status", zap.String("status", status.String()))
}

// Listen binds the listening socket.
//
// Postcondition: Addr returns the bound address.
func (h *HealthServer) Listen() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	h.mu.Lock()
	h.lis = lis
	h.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (h *HealthServer) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lis == nil {
		return nil
	}
	return h.lis.Addr()
}

// Serve listens if needed and serves until Stop. It blocks.
func (h *HealthServer) Serve() error {
	if h.Addr() == nil {
		if err := h.Listen(); err != nil {
			return err
		}
	}
	h.mu.Lock()
	lis := h.lis
	h.mu.Unlock()

	h.logger.Info("health server listening", zap.String("addr", lis.Addr().String()))
	if err := h.grpc.Serve(lis); err != nil {
		return fmt.Errorf("serving health: %w", err)
	}
	return nil
}

// Stop marks every service NOT_SERVING and stops the server gracefully.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
