package server

import (
	"context"
	"errors"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"kudos-controlplane/pkg/config"
	"kudos-controlplane/pkg/errutil"
	"kudos-controlplane/pkg/health"
)

func TestErrorUnaryInterceptor(t *testing.T) {
	intercept := ErrorUnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/test.Service/Call"}

	cases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{name: "ok", code: codes.OK},
		{name: "forbidden", err: errutil.Forbidden("nope", nil), code: codes.PermissionDenied},
		{name: "conflict", err: errutil.Conflict("dup", nil), code: codes.AlreadyExists},
		{name: "plain", err: errors.New("boom"), code: codes.Internal},
		{name: "canceled", err: context.Canceled, code: codes.Canceled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := intercept(context.Background(), nil, info, func(context.Context, any) (any, error) {
				return nil, tc.err
			})
			require.Equal(t, tc.code, status.Code(err))
		})
	}
}

func TestNewHttpServer(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Addr = "8081"

	srv := NewHttpServer(Params{Config: cfg, Handler: gin.New()})
	require.Equal(t, ":8081", srv.server.Addr)
	require.Nil(t, srv.server.TLSConfig)
}

type checkerMock struct {
	health.HealthService
	status string
}

func (m *checkerMock) Check(context.Context) *health.Health {
	return &health.Health{Status: m.status}
}

func TestWatchHealth(t *testing.T) {
	hs := grpchealth.NewServer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	watchHealth(ctx, &checkerMock{status: health.StatusUnhealthy}, hs)
	resp, err := hs.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.Status)

	watchHealth(ctx, &checkerMock{status: health.StatusHealthy}, hs)
	resp, err = hs.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}
