package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/xhoantran/HotelMS-server/internal/clock"
	"github.com/xhoantran/HotelMS-server/internal/config"
	"github.com/xhoantran/HotelMS-server/internal/lock"
	"github.com/xhoantran/HotelMS-server/internal/logger"
	"github.com/xhoantran/HotelMS-server/internal/migration"
	"github.com/xhoantran/HotelMS-server/internal/observability/metrics"
	"github.com/xhoantran/HotelMS-server/internal/pricing"
	"github.com/xhoantran/HotelMS-server/internal/ratecache"
	"github.com/xhoantran/HotelMS-server/internal/ratesync"
	"github.com/xhoantran/HotelMS-server/internal/recalculation"
	"github.com/xhoantran/HotelMS-server/internal/redisconn"
	"github.com/xhoantran/HotelMS-server/internal/scheduler"
	"github.com/xhoantran/HotelMS-server/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		logger.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		redisconn.Module,
		lock.Module,

		// Functional Domains
		pricing.Module,
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
