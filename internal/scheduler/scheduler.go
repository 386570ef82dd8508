// Package scheduler drives automatic billing: on every tick it sweeps stale
// runs and triggers a billing cycle for each club with auto-billing enabled.
package scheduler

import (
	"context"
	"errors"
	"time"

	billingdomain "github.com/airfieldhq/clubops/internal/billing/domain"
	clubdomain "github.com/airfieldhq/clubops/internal/club/domain"
	"github.com/airfieldhq/clubops/internal/clock"
	"github.com/airfieldhq/clubops/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Clubs      clubdomain.Service
	Billing    billingdomain.Service
	BillingCfg *config.BillingConfigHolder
}

type Scheduler struct {
	log        *zap.Logger
	clock      clock.Clock
	clubs      clubdomain.Service
	billing    billingdomain.Service
	billingCfg *config.BillingConfigHolder
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:        p.Log.Named("scheduler"),
		clock:      p.Clock,
		clubs:      p.Clubs,
		billing:    p.Billing,
		billingCfg: p.BillingCfg,
	}
}

// RunOnce executes one scheduler pass: abandon stale runs, then bill every
// auto-billing club. A run already in progress for a club is not an error.
func (s *Scheduler) RunOnce(parent context.Context) error {
	cfg := s.billingCfg.Get()

	var errs error
	if _, err := s.billing.MarkAbandonedRuns(parent, cfg.StaleRunAfter); err != nil {
		s.log.Warn("stale run sweep failed", zap.Error(err))
		errs = errors.Join(errs, err)
	}

	clubs, err := s.clubs.ListAutoBilling(parent)
	if err != nil {
		return errors.Join(errs, err)
	}

	for _, club := range clubs {
		ctx, cancel := context.WithTimeout(parent, cfg.RunTimeout)
		_, err := s.billing.RunCycleForClub(ctx, club.ID)
		cancel()
		if err != nil {
			if errors.Is(err, billingdomain.ErrRunInProgress) {
				continue
			}
			s.log.Warn("scheduled billing run failed",
				zap.String("club_id", club.ID.String()),
				zap.Error(err),
			)
			errs = errors.Join(errs, err)
		}
		if perr := parent.Err(); perr != nil {
			return errors.Join(errs, perr)
		}
	}
	return errs
}

// RunForever runs passes on the configured interval until ctx is canceled.
// The interval is re-read each tick so config reloads take effect live.
func (s *Scheduler) RunForever(ctx context.Context) {
	for {
		if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("scheduler pass failed", zap.Error(err))
		}

		timer := time.NewTimer(s.billingCfg.Get().SchedulerInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
