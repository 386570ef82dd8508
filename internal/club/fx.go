package club

import (
	"github.com/airfieldhq/clubops/internal/club/repository"
	"github.com/airfieldhq/clubops/internal/club/service"
	"go.uber.org/fx"
)

var Module = fx.Module("club.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
