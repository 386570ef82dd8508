package billing

import (
	"github.com/airfieldhq/clubops/internal/billing/repository"
	"github.com/airfieldhq/clubops/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
