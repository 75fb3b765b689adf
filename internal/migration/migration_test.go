package migration

import (
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhoantran/HotelMS-server/internal/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestSchemaGuardsIntervalOverlap(t *testing.T) {
	raw, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_dynamic_pricing.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "EXCLUDE USING gist")
}

func TestRunMigrationsRequiresHandle(t *testing.T) {
	assert.Error(t, RunMigrations(nil))
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestMigrateAutoMigratesSQLite(t *testing.T) {
	db := openSQLite(t)

	require.NoError(t, Migrate(db, config.Config{DBAutoMigrate: true}, zap.NewNop()))

	for _, table := range []string{"dynamic_pricing_settings", "time_rule_triggers", "interval_base_rates", "rate_plan_restrictions", "room_type_occupancy"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestMigrateSkippedWhenDisabled(t *testing.T) {
	db := openSQLite(t)

	require.NoError(t, Migrate(db, config.Config{}, zap.NewNop()))
	assert.False(t, db.Migrator().HasTable("dynamic_pricing_settings"))
}
