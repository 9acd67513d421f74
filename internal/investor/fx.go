package investor

import (
	"github.com/smallbiznis/investorhub/internal/investor/service"
	"go.uber.org/fx"
)

var Module = fx.Module("investor.service",
	fx.Provide(service.New),
)
