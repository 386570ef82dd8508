package account

import (
	"github.com/airfieldhq/clubops/internal/account/repository"
	"github.com/airfieldhq/clubops/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
