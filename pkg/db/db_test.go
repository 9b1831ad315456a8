package db

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"

	"kudos-controlplane/pkg/config"
	"kudos-controlplane/services/testutil"
)

func TestDialect(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Type = "postgres"
	cfg.Database.Host = "db"
	cfg.Database.Port = "5432"
	cfg.Database.DBNAME = "kudos"

	d, err := Dialect(cfg)
	require.NoError(t, err)
	require.Equal(t, "postgres", d.Name())
	require.Equal(t, "kudos", getDBNameFromDialector(d))

	cfg.Database.Type = "mysql"
	d, err = Dialect(cfg)
	require.NoError(t, err)
	require.IsType(t, &mysql.Dialector{}, d)
	require.Equal(t, "kudos", getDBNameFromDialector(d))

	cfg.Database.Type = "oracle"
	_, err = Dialect(cfg)
	require.Error(t, err)
}

func TestExtractDBNameFromDSN(t *testing.T) {
	require.Equal(t, "ledger", extractDBNameFromDSN("host=x dbname=ledger sslmode=disable"))
	require.Equal(t, "unknown", extractDBNameFromDSN(""))
	require.IsType(t, &postgres.Dialector{}, postgres.Open("dbname=x"))
}

type migratedThing struct {
	ID   string `gorm:"primaryKey"`
	Name string
}

func TestMigrate(t *testing.T) {
	gdb := testutil.NewTestDB(t)

	err := Migrate(MigrateParams{DB: gdb, Models: [][]any{{&migratedThing{}}, nil}})
	require.NoError(t, err)
	require.True(t, gdb.Migrator().HasTable(&migratedThing{}))

	require.NoError(t, Migrate(MigrateParams{DB: gdb}))
}
