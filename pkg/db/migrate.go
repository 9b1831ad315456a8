package db

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AsModels tags a constructor returning []any so its models join the
// "models" group migrated at start-up.
func AsModels(f any) any {
	return fx.Annotate(f, fx.ResultTags(`group:"models"`))
}

type MigrateParams struct {
	fx.In
	DB     *gorm.DB
	Models [][]any `group:"models"`
}

// Migrate auto-migrates every registered model.
func Migrate(p MigrateParams) error {
	var models []any
	for _, group := range p.Models {
		models = append(models, group...)
	}
	if len(models) == 0 {
		return nil
	}
	if err := p.DB.AutoMigrate(models...); err != nil {
		zap.L().Error("failed to migrate database", zap.Error(err))
		return err
	}
	zap.L().Info("database migrated", zap.Int("models", len(models)))
	return nil
}
