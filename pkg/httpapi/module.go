package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"kudos-controlplane/pkg/caller"
	"kudos-controlplane/pkg/config"
	"kudos-controlplane/pkg/errutil"
	"kudos-controlplane/pkg/health"
	"kudos-controlplane/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"
)

var Module = fx.Module("httpapi",
	fx.Provide(
		NewServeMux,
		NewEngine,
	),
	fx.Invoke(registerVersionEndpoint),
)

// NewServeMux returns the gateway mux. Errors are rendered in the same
// envelope as the gin handlers.
func NewServeMux() *runtime.ServeMux {
	return runtime.NewServeMux(runtime.WithErrorHandler(errorHandler))
}

func errorHandler(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler, w http.ResponseWriter, _ *http.Request, err error) {
	code := errutil.StatusOf(err).HTTPStatus()
	msg := err.Error()
	if st, ok := status.FromError(err); ok {
		code = runtime.HTTPStatusFromCode(st.Code())
		msg = st.Message()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	body := gin.H{"error": gin.H{"code": http.StatusText(code), "message": msg}}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("failed to write gateway error", zap.Error(err))
	}
}

type EngineParams struct {
	fx.In
	Config   *config.Config
	Verifier *caller.Verifier
	Health   health.HealthService
	Gateway  *runtime.ServeMux
}

// NewEngine builds the gin router. Unmatched paths fall through to the
// gateway mux.
func NewEngine(p EngineParams) *gin.Engine {
	if p.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	p.Health.Register(r)

	r.Use(middleware.Error(), caller.Middleware(p.Verifier))
	r.NoRoute(gin.WrapH(p.Gateway))
	return r
}

func registerVersionEndpoint(mux *runtime.ServeMux, cfg *config.Config) {
	info := map[string]string{
		"name":    cfg.AppName,
		"version": cfg.AppVersion,
		"env":     cfg.AppEnv,
	}
	if err := mux.HandlePath(http.MethodGet, "/version", func(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
		w.Header().Set("Content-Type", "application/json")
		// gin marks NoRoute responses 404 before the gateway runs
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(info)
	}); err != nil {
		zap.L().Error("failed to register version endpoint", zap.Error(err))
	}
}
