package recordstore

import (
	"github.com/smallbiznis/investorhub/internal/recordstore/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("recordstore",
	fx.Provide(repository.Provide),
)
