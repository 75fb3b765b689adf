package pricing

import (
	"github.com/xhoantran/HotelMS-server/internal/pricing/repository"
	"github.com/xhoantran/HotelMS-server/internal/pricing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
