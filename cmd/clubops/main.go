package main

import (
	"github.com/airfieldhq/clubops/internal/account"
	"github.com/airfieldhq/clubops/internal/aircraft"
	"github.com/airfieldhq/clubops/internal/billing"
	"github.com/airfieldhq/clubops/internal/club"
	"github.com/airfieldhq/clubops/internal/clock"
	"github.com/airfieldhq/clubops/internal/config"
	"github.com/airfieldhq/clubops/internal/flight"
	"github.com/airfieldhq/clubops/internal/migration"
	"github.com/airfieldhq/clubops/internal/observability"
	"github.com/airfieldhq/clubops/internal/payment"
	"github.com/airfieldhq/clubops/internal/providers/email"
	"github.com/airfieldhq/clubops/internal/scheduler"
	"github.com/airfieldhq/clubops/internal/server"
	"github.com/airfieldhq/clubops/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Domains
		club.Module,
		account.Module,
		aircraft.Module,
		flight.Module,
		billing.Module,

		// Outbound providers
		payment.Module,
		email.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
