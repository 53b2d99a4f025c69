// Package grpc exposes the gRPC health service of the marketplace.
package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the name under which the marketplace reports its health.
const ServiceName = "marketplace.v1.Marketplace"

// Pinger reports whether the backing storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer answers grpc.health.v1 checks from the store readiness.
type HealthServer struct {
	healthpb.UnimplementedHealthServer
	store   Pinger
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealthServer(store Pinger, timeout time.Duration, logger *slog.Logger) *HealthServer {
	return &HealthServer{
		store:   store,
		timeout: timeout,
		logger:  logger.With("component", "grpc-health"),
	}
}

// Register adds the health service to the given server.
func (s *HealthServer) Register(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, s)
}

func (s *HealthServer) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if name := req.GetService(); name != "" && name != ServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", name)
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.Ping(pingCtx); err != nil {
		s.logger.WarnContext(ctx, "Store is not reachable", "error", err)
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
