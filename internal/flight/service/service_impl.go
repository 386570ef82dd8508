package service

import (
	"context"
	"strings"

	"github.com/airfieldhq/clubops/internal/actorcontext"
	aircraftdomain "github.com/airfieldhq/clubops/internal/aircraft/domain"
	clubdomain "github.com/airfieldhq/clubops/internal/club/domain"
	"github.com/airfieldhq/clubops/internal/clock"
	"github.com/airfieldhq/clubops/internal/clubcontext"
	"github.com/airfieldhq/clubops/internal/flight/domain"
	"github.com/airfieldhq/clubops/internal/observability/metrics"
	"github.com/airfieldhq/clubops/pkg/db"
	"github.com/airfieldhq/clubops/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Aircraft aircraftdomain.Repository
	Clubs    clubdomain.Service
	Metrics  *metrics.DispatchMetrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	aircraft aircraftdomain.Repository
	clubs    clubdomain.Service
	metrics  *metrics.DispatchMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("flight.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		aircraft: p.Aircraft,
		clubs:    p.Clubs,
		metrics:  p.Metrics,
	}
}

func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.FlightRecord, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return domain.FlightRecord{}, aircraftdomain.ErrInvalidClub
	}
	actor, ok := actorcontext.FromContext(ctx)
	if !ok || actor.MemberID == 0 {
		return domain.FlightRecord{}, clubdomain.ErrNotMember
	}
	if _, err := s.clubs.RequireMember(ctx, actor.MemberID); err != nil {
		return domain.FlightRecord{}, err
	}

	aircraftID, err := aircraftdomain.ParseID(strings.TrimSpace(req.AircraftID))
	if err != nil || aircraftID == 0 {
		return domain.FlightRecord{}, aircraftdomain.ErrInvalidID
	}

	now := s.clock.Now()
	record := domain.FlightRecord{
		ID:         s.genID.Generate(),
		ClubID:     clubID,
		AircraftID: aircraftID,
		MemberID:   actor.MemberID,
		HobbsStart: req.StartingHobbs,
		StartedAt:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// The status CAS and the open-record insert commit together; losing
	// either race surfaces as Conflict.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		aircraft, err := s.aircraft.FindByID(ctx, tx, clubID, aircraftID)
		if err != nil {
			return err
		}
		if aircraft == nil {
			return aircraftdomain.ErrNotFound
		}
		if aircraft.Status != aircraftdomain.StatusAvailable {
			return aircraftdomain.ErrConflict
		}
		if req.StartingHobbs < aircraft.Hobbs {
			return aircraftdomain.ErrInvalidMeterReading
		}

		won, err := s.aircraft.MarkCheckedOut(ctx, tx, aircraftID, now)
		if err != nil {
			return err
		}
		if !won {
			return aircraftdomain.ErrConflict
		}

		if err := s.repo.Insert(ctx, tx, &record); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return aircraftdomain.ErrConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.metrics.IncCheckout("failure")
		return domain.FlightRecord{}, err
	}

	s.metrics.IncCheckout("success")
	s.log.Info("aircraft checked out",
		zap.String("aircraft_id", aircraftID.String()),
		zap.String("member_id", actor.MemberID.String()),
		zap.String("record_id", record.ID.String()),
	)
	return record, nil
}

func (s *Service) Checkin(ctx context.Context, req domain.CheckinRequest) (domain.FlightRecord, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return domain.FlightRecord{}, aircraftdomain.ErrInvalidClub
	}
	actor, ok := actorcontext.FromContext(ctx)
	if !ok || actor.MemberID == 0 {
		return domain.FlightRecord{}, clubdomain.ErrNotMember
	}
	membership, err := s.clubs.RequireMember(ctx, actor.MemberID)
	if err != nil {
		return domain.FlightRecord{}, err
	}

	recordID, err := snowflake.ParseString(strings.TrimSpace(req.RecordID))
	if err != nil || recordID == 0 {
		return domain.FlightRecord{}, domain.ErrInvalidRecordID
	}

	now := s.clock.Now()
	var closed domain.FlightRecord

	// Closing the record, updating the meters and releasing the aircraft
	// commit as one unit so a failed meter update never strands the
	// aircraft in CHECKED_OUT.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.repo.FindByID(ctx, tx, clubID, recordID)
		if err != nil {
			return err
		}
		if record == nil {
			return domain.ErrNotFound
		}
		if !record.Open() {
			return domain.ErrAlreadyClosed
		}
		if record.MemberID != actor.MemberID && membership.Role != clubdomain.RoleAdmin {
			return domain.ErrForbidden
		}
		if req.EndingHobbs < record.HobbsStart {
			return aircraftdomain.ErrInvalidMeterReading
		}

		aircraft, err := s.aircraft.FindByID(ctx, tx, clubID, record.AircraftID)
		if err != nil {
			return err
		}
		if aircraft == nil {
			return aircraftdomain.ErrNotFound
		}

		elapsed := int64(req.EndingHobbs - record.HobbsStart)
		cost := aircraftdomain.CostCents(elapsed, aircraft.HourlyRateCents)

		ok, err := s.repo.Close(ctx, tx, record.ID, now, req.EndingHobbs, req.EndingTach, elapsed, aircraft.HourlyRateCents, cost)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyClosed
		}

		tach := aircraft.Tach
		if req.EndingTach != nil {
			tach = *req.EndingTach
		}
		if err := s.aircraft.UpdateMeters(ctx, tx, aircraft.ID, req.EndingHobbs, tach, now); err != nil {
			return err
		}

		released, err := s.aircraft.MarkAvailable(ctx, tx, aircraft.ID, now)
		if err != nil {
			return err
		}
		if !released {
			return aircraftdomain.ErrConflict
		}

		closed = *record
		closed.EndedAt = &now
		closed.HobbsEnd = &req.EndingHobbs
		closed.TachEnd = req.EndingTach
		closed.ElapsedTenths = elapsed
		closed.HourlyRateCents = aircraft.HourlyRateCents
		closed.CostCents = cost
		closed.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.FlightRecord{}, err
	}

	s.metrics.IncCheckin()
	s.log.Info("aircraft checked in",
		zap.String("aircraft_id", closed.AircraftID.String()),
		zap.String("record_id", closed.ID.String()),
		zap.Int64("elapsed_tenths", closed.ElapsedTenths),
		zap.Int64("cost_cents", closed.CostCents),
	)
	return closed, nil
}

func (s *Service) ListActive(ctx context.Context) ([]domain.FlightRecord, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return nil, aircraftdomain.ErrInvalidClub
	}
	return s.repo.ListOpen(ctx, s.db, clubID)
}

func (s *Service) ListByMember(ctx context.Context, memberID snowflake.ID, page pagination.Pagination) ([]domain.FlightRecord, pagination.PageInfo, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return nil, pagination.PageInfo{}, aircraftdomain.ErrInvalidClub
	}

	afterID, err := page.After()
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	limit := page.Limit()
	records, err := s.repo.ListByMember(ctx, s.db, clubID, memberID, afterID, limit+1)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	records, info := pagination.Trim(records, limit, func(r domain.FlightRecord) snowflake.ID { return r.ID })
	return records, info, nil
}
