package recalculation

import (
	"github.com/xhoantran/HotelMS-server/internal/lock"
	"github.com/xhoantran/HotelMS-server/internal/recalculation/domain"
	"github.com/xhoantran/HotelMS-server/internal/recalculation/service"
	"github.com/xhoantran/HotelMS-server/internal/recalculation/store"
	"go.uber.org/fx"
)

var Module = fx.Module("recalculation",
	fx.Provide(store.NewOccupancySource),
	fx.Provide(store.NewRestrictionStore),
	fx.Provide(store.NewRatePlanDirectory),
	fx.Provide(func(l *lock.PropertyLock) service.Locker { return l }),
	fx.Provide(service.New),
	fx.Provide(func(r *service.Runner) domain.Service { return r }),
)
