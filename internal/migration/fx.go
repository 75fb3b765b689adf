package migration

import (
	"github.com/xhoantran/HotelMS-server/internal/config"
	pricingdomain "github.com/xhoantran/HotelMS-server/internal/pricing/domain"
	recalcdomain "github.com/xhoantran/HotelMS-server/internal/recalculation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate brings the schema up to date. Postgres runs the embedded SQL, which
// carries the exclusion constraint and triggers; other dialects fall back to
// gorm auto-migration of the models.
func Migrate(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if !cfg.DBAutoMigrate {
		log.Info("database auto-migration disabled")
		return nil
	}

	if conn.Dialector.Name() != "postgres" {
		log.Warn("running model auto-migration, interval overlap is only checked by the service",
			zap.String("dialect", conn.Dialector.Name()),
		)
		if err := conn.AutoMigrate(pricingdomain.Tables()...); err != nil {
			return err
		}
		return conn.AutoMigrate(recalcdomain.Tables()...)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

var Module = fx.Module("migrations",
	fx.Invoke(Migrate),
)
