package payment

import (
	"github.com/airfieldhq/clubops/internal/config"
	"github.com/airfieldhq/clubops/internal/payment/domain"
	"github.com/airfieldhq/clubops/internal/payment/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.payment",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) domain.Provider {
	return stripe.New(cfg.StripeSecretKey, cfg.StripeBaseURL)
}
