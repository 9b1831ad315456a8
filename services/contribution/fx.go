package contribution

import (
	"kudos-controlplane/pkg/db"
	"kudos-controlplane/services/treasury"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("contribution.service",
	fx.Provide(
		NewPayer,
		NewService,
		db.AsModels(Models),
	),
)

var Gateway = fx.Module("contribution.gateway",
	fx.Provide(NewHandler),
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *gin.Engine, h *Handler) {
	h.Register(r.Group("/v1"))
}

func Models() []any {
	return []any{&Contribution{}}
}

type treasuryPayer struct {
	*treasury.Service
}

// NewPayer pays rewards out of the treasury ledger.
func NewPayer(svc *treasury.Service) Payer {
	return treasuryPayer{svc}
}

func (p treasuryPayer) WithTrx(tx *gorm.DB) Payer {
	return treasuryPayer{p.Service.WithTrx(tx)}
}
