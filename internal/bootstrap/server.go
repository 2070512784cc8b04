package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/flightengine/api"
	"github.com/Domenick1991/flightengine/config"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	shutdownTimeout     = 5 * time.Second
	healthProbeInterval = 10 * time.Second
)

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	checks     map[string]api.HealthCheck
}

func NewServers(cfg *config.Config, handler http.Handler, checks map[string]api.HealthCheck) *Servers {
	grpcSrv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, hs)

	return &Servers{
		grpcServer: grpcSrv,
		health:     hs,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		checks: checks,
	}
}

// Run starts the gRPC health server and the HTTP API and blocks until ctx is
// canceled or one of them fails.
func Run(ctx context.Context, cfg *config.Config, handler http.Handler, checks map[string]api.HealthCheck) error {
	s := NewServers(cfg, handler, checks)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	return s.Serve(ctx, lis)
}

func (s *Servers) Serve(ctx context.Context, lis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("gRPC health listening on %s", lis.Addr())
		if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Printf("HTTP listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.probe(gctx)
		ticker := time.NewTicker(healthProbeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.probe(gctx)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

// probe flips the gRPC health status to NOT_SERVING while any dependency
// check fails.
func (s *Servers) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, healthProbeInterval/2)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("health check %s failed: %v", name, err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
}

func (s *Servers) shutdown() error {
	s.health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
