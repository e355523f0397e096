package adminapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cuemby/tessera/pkg/log"
	"github.com/cuemby/tessera/pkg/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// Server exposes the broker's admin surface: a gRPC health service on
// grpcAddr and an HTTP server on httpAddr serving /health, /ready, and
// /metrics.
type Server struct {
	grpcServer *grpc.Server
	healthImpl *health.Server
	httpServer *http.Server
}

// New creates an admin Server. Call Start to begin serving.
func New() *Server {
	healthImpl := health.NewServer()
	grpcServer := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthImpl)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.Handle("/metrics", metrics.Handler())

	return &Server{
		grpcServer: grpcServer,
		healthImpl: healthImpl,
		httpServer: &http.Server{
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetServing flips the gRPC health status for the broker service.
func (s *Server) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.healthImpl.SetServingStatus("", status)
}

// Start binds and serves the gRPC health service on grpcAddr and the
// HTTP surface on httpAddr. It blocks until one of the two servers
// exits.
func (s *Server) Start(grpcAddr, httpAddr string) error {
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("adminapi: listen grpc: %w", err)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- s.grpcServer.Serve(lis) }()
	go func() {
		s.httpServer.Addr = httpAddr
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	return <-errCh
}

// Stop gracefully shuts down both servers.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.httpServer.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponent("adminapi")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(metrics.GetHealth()); err != nil {
		logger.Warn().Err(err).Msg("failed to encode health response")
	}
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponent("adminapi")
	readiness := metrics.GetReadiness()
	w.Header().Set("Content-Type", "application/json")
	statusCode := http.StatusOK
	if readiness.Status != "ready" {
		statusCode = http.StatusServiceUnavailable
	}
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(readiness); err != nil {
		logger.Warn().Err(err).Msg("failed to encode readiness response")
	}
}
