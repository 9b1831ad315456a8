package treasury

import (
	"kudos-controlplane/pkg/db"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("treasury.service",
	fx.Provide(
		NewService,
		db.AsModels(Models),
	),
)

var Gateway = fx.Module("treasury.gateway",
	fx.Provide(NewHandler),
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *gin.Engine, h *Handler) {
	h.Register(r.Group("/v1"))
}

func Models() []any {
	return []any{&Balance{}, &LedgerEntry{}}
}
