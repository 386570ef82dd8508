package server

import (
	"context"
	"net/http"
	"time"

	accountdomain "github.com/airfieldhq/clubops/internal/account/domain"
	aircraftdomain "github.com/airfieldhq/clubops/internal/aircraft/domain"
	billingdomain "github.com/airfieldhq/clubops/internal/billing/domain"
	clubdomain "github.com/airfieldhq/clubops/internal/club/domain"
	"github.com/airfieldhq/clubops/internal/config"
	flightdomain "github.com/airfieldhq/clubops/internal/flight/domain"
	"github.com/airfieldhq/clubops/internal/observability"
	obsmiddleware "github.com/airfieldhq/clubops/internal/observability/logger"
	obsmetrics "github.com/airfieldhq/clubops/internal/observability/metrics"
	obstracing "github.com/airfieldhq/clubops/internal/observability/tracing"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	clubSvc     clubdomain.Service
	aircraftSvc aircraftdomain.Service
	flightSvc   flightdomain.Service
	accountSvc  accountdomain.Service
	billingSvc  billingdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	ClubSvc     clubdomain.Service
	AircraftSvc aircraftdomain.Service
	FlightSvc   flightdomain.Service
	AccountSvc  accountdomain.Service
	BillingSvc  billingdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		clubSvc:     p.ClubSvc,
		aircraftSvc: p.AircraftSvc,
		flightSvc:   p.FlightSvc,
		accountSvc:  p.AccountSvc,
		billingSvc:  p.BillingSvc,
	}

	svc.registerRoutes()
	return svc
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(ActorContext())

	v1.POST("/clubs", s.createClub)
	v1.POST("/accounts", s.createAccount)

	scoped := v1.Group("")
	scoped.Use(ClubContext())

	scoped.POST("/members", s.addMember)
	scoped.GET("/members/:id/account", s.getAccount)
	scoped.GET("/members/:id/flights", s.listMemberFlights)
	scoped.POST("/members/:id/credits", s.grantCredit)
	scoped.POST("/members/:id/customer", s.linkCustomer)

	scoped.POST("/aircraft", s.createAircraft)
	scoped.GET("/aircraft", s.listAircraft)
	scoped.GET("/aircraft/:id", s.getAircraft)
	scoped.POST("/aircraft/:id/ground", s.groundAircraft)
	scoped.POST("/aircraft/:id/unground", s.ungroundAircraft)

	scoped.POST("/flights/checkout", s.checkout)
	scoped.POST("/flights/:id/checkin", s.checkin)
	scoped.GET("/flights/active", s.listActiveFlights)

	scoped.POST("/billing/runs", s.runBilling)
	scoped.GET("/billing/runs", s.listBillingRuns)
	scoped.GET("/billing/runs/:id", s.getBillingRun)
	scoped.GET("/invoices", s.listInvoices)
	scoped.GET("/invoices/:id", s.getInvoice)
	scoped.POST("/invoices/:id/retry", s.retryInvoice)
}
