package health

import (
	"context"
	"log/slog"
	"time"

	"student-manager/common/metrics"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// GrpcServer serves grpc.health.v1.Health and keeps the status in step with
// the database.
type GrpcServer struct {
	Server  *grpc.Server
	health  *health.Server
	db      Pinger
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewGrpcServer(db Pinger, m *metrics.Metrics, logger *slog.Logger) *GrpcServer {
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(m.Grpc.UnaryServerInterceptor()),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &GrpcServer{
		Server:  server,
		health:  healthServer,
		db:      db,
		metrics: m,
		logger:  logger,
	}
}

// Refresh sets the serving status from one database ping.
func (s *GrpcServer) Refresh(ctx context.Context) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err := Check(ctx, s.db, s.metrics); err != nil {
		s.logger.WarnContext(ctx, "database health check failed", "error", err)
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
}

// Watch refreshes the status every interval until ctx is done.
func (s *GrpcServer) Watch(ctx context.Context, interval time.Duration) {
	s.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

func (s *GrpcServer) Stop() {
	s.health.Shutdown()
	s.Server.GracefulStop()
}
