package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"kudos-controlplane/pkg/caller"
	"kudos-controlplane/pkg/config"
	"kudos-controlplane/pkg/errutil"
	"kudos-controlplane/pkg/health"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/validator"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const healthInterval = 10 * time.Second

var ProvideGRPCServer = fx.Module("grpc.server",
	fx.Provide(
		NewListener,
		NewCertReloader,
		WithOption,
		NewGRPCServer,
		grpchealth.NewServer,
	),
	fx.Invoke(
		StartGRPCServer,
	),
)

func NewListener(cfg *config.Config) (net.Listener, error) {
	return net.Listen("tcp", fmt.Sprintf(":%s", cfg.Grpc.Addr))
}

type OptionParams struct {
	fx.In
	Verifier       *caller.Verifier
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Certs          *CertReloader `optional:"true"`
}

func WithOption(p OptionParams) []grpc.ServerOption {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			ErrorUnaryInterceptor(),
			caller.UnaryServerInterceptor(p.Verifier),
			validator.UnaryServerInterceptor(validator.WithFailFast()),
		),
		grpc.ChainStreamInterceptor(
			validator.StreamServerInterceptor(validator.WithFailFast()),
		),
		WithStatsHandler(p.TracerProvider, p.MeterProvider),
	}

	if p.Certs != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(p.Certs.TLSConfig())))
	}

	return opts
}

func WithStatsHandler(tp trace.TracerProvider, mp metric.MeterProvider) grpc.ServerOption {
	return grpc.StatsHandler(
		otelgrpc.NewServerHandler(
			otelgrpc.WithTracerProvider(tp),
			otelgrpc.WithMeterProvider(mp),
		),
	)
}

// ErrorUnaryInterceptor maps domain errors onto gRPC status codes.
func ErrorUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return resp, errutil.ToGRPCError(err)
		}
		return resp, nil
	}
}

func NewGRPCServer(opts []grpc.ServerOption, hs *grpchealth.Server) *grpc.Server {
	srv := grpc.NewServer(opts...)
	grpc_health_v1.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return srv
}

// watchHealth mirrors the readiness check into the gRPC health service.
func watchHealth(ctx context.Context, checker health.HealthService, hs *grpchealth.Server) {
	update := func() {
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if checker.Check(ctx).Status != health.StatusHealthy {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
	}

	update()
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}

type StartParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Listener  net.Listener
	Server    *grpc.Server
	Health    *grpchealth.Server
	Checker   health.HealthService
}

func StartGRPCServer(p StartParams) {
	ctx, cancel := context.WithCancel(context.Background())
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go watchHealth(ctx, p.Checker, p.Health)
			go func() {
				zap.L().Info("Starting gRPC server", zap.String("addr", p.Listener.Addr().String()))
				if err := p.Server.Serve(p.Listener); err != nil {
					zap.L().Error("gRPC server exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			zap.L().Info("Stopping gRPC server")
			cancel()
			p.Health.Shutdown()
			p.Server.GracefulStop()
			return nil
		},
	})
}
