// Package grpcserver exposes the archiver's gRPC health endpoint.
package grpcserver

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name the archiver reports under.
const ServiceName = "wave.Archiver"

// Health adapts the standard health server to a serving flag.
type Health struct{ hs *health.Server }

// NewHealth starts NOT_SERVING until the archiver follows live events.
func NewHealth() *Health {
	h := &Health{hs: health.NewServer()}
	h.SetServing(false)
	return h
}

// SetServing reports the archiver's status under ServiceName and the server-wide "" name.
func (h *Health) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.hs.SetServingStatus(ServiceName, st)
	h.hs.SetServingStatus("", st)
}

// Shutdown marks everything NOT_SERVING and ends Watch streams.
func (h *Health) Shutdown() { h.hs.Shutdown() }

// NewServer builds a gRPC server with the health service and logging/recovery interceptors.
func NewServer(log *zap.Logger, h *Health, dev bool) *grpc.Server {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(RecoverStream(log), LoggingStream(log)),
	)
	healthpb.RegisterHealthServer(s, h.hs)
	if dev {
		reflection.Register(s)
	}
	return s
}

// Serve runs s on lis until ctx is done, then stops gracefully within grace.
func Serve(ctx context.Context, s *grpc.Server, lis net.Listener, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(lis) }()

	select {
	case <-ctx.Done():
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(grace):
			s.Stop()
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// Probe asks the health service at addr for service's status.
func Probe(ctx context.Context, addr, service string) (*healthpb.HealthCheckResponse, error) {
	cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	defer cc.Close()
	return healthpb.NewHealthClient(cc).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
}
