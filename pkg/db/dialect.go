package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xhoantran/HotelMS-server/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var ErrUnsupportedDialect = errors.New("unsupported_database_type")

// Dialect maps DATABASE_TYPE to a gorm dialector. Only postgres enforces the
// interval exclusion constraint; sqlite is for local runs.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.DBType)) {
	case "postgres", "postgresql":
		return postgres.Open(PostgresDSN(cfg)), nil
	case "sqlite":
		return sqlite.Open(SQLiteDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, cfg.DBType)
	}
}

func PostgresDSN(cfg config.Config) string {
	parts := []string{
		"host=" + cfg.DBHost,
		"user=" + cfg.DBUser,
		"password=" + cfg.DBPassword,
		"dbname=" + cfg.DBName,
		"port=" + cfg.DBPort,
		"sslmode=" + cfg.DBSSLMode,
		"TimeZone=UTC",
	}
	if cfg.AppName != "" {
		parts = append(parts, "application_name="+cfg.AppName)
	}
	return strings.Join(parts, " ")
}

// SQLiteDSN uses DATABASE_NAME as the file path and turns on foreign keys.
func SQLiteDSN(cfg config.Config) string {
	name := strings.TrimSpace(cfg.DBName)
	if name == "" {
		name = "rms.db"
	}
	if strings.Contains(name, "?") {
		return name
	}
	return name + "?_foreign_keys=on&_busy_timeout=5000"
}
