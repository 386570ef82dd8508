package flight

import (
	"github.com/airfieldhq/clubops/internal/flight/repository"
	"github.com/airfieldhq/clubops/internal/flight/service"
	"go.uber.org/fx"
)

var Module = fx.Module("flight.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
