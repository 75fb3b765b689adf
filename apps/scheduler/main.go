package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/clock"
	"github.com/xhoantran/HotelMS-server/internal/config"
	"github.com/xhoantran/HotelMS-server/internal/lock"
	"github.com/xhoantran/HotelMS-server/internal/logger"
	"github.com/xhoantran/HotelMS-server/internal/observability/metrics"
	"github.com/xhoantran/HotelMS-server/internal/pricing/repository"
	"github.com/xhoantran/HotelMS-server/internal/ratecache"
	"github.com/xhoantran/HotelMS-server/internal/ratesync"
	"github.com/xhoantran/HotelMS-server/internal/recalculation"
	"github.com/xhoantran/HotelMS-server/internal/redisconn"
	"github.com/xhoantran/HotelMS-server/internal/scheduler"
	"github.com/xhoantran/HotelMS-server/pkg/db"
	"go.uber.org/fx"
)

// The scheduler app only fires time rules. Migrations and rule
// administration stay with the main rms process.
func main() {
	app := fx.New(
		config.Module,
		fx.Decorate(func(cfg config.Config) config.Config {
			cfg.SchedulerEnabled = true
			cfg.DBAutoMigrate = false
			return cfg
		}),
		logger.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		redisconn.Module,
		lock.Module,

		// Domain services required by scheduler
		fx.Provide(repository.Provide),
		ratecache.Module,
		ratesync.Module,
		recalculation.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
