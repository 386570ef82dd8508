package aircraft

import (
	"github.com/airfieldhq/clubops/internal/aircraft/repository"
	"github.com/airfieldhq/clubops/internal/aircraft/service"
	"go.uber.org/fx"
)

var Module = fx.Module("aircraft.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
