package service

import (
	"context"
	"strings"
	"time"

	"github.com/airfieldhq/clubops/internal/actorcontext"
	"github.com/airfieldhq/clubops/internal/aircraft/domain"
	clubdomain "github.com/airfieldhq/clubops/internal/club/domain"
	"github.com/airfieldhq/clubops/internal/clubcontext"
	"github.com/airfieldhq/clubops/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clubs clubdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clubs clubdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("aircraft.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clubs: p.Clubs,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAircraftRequest) (domain.Aircraft, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return domain.Aircraft{}, domain.ErrInvalidClub
	}
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Aircraft{}, err
	}

	tail := strings.ToUpper(strings.TrimSpace(req.TailNumber))
	if tail == "" {
		return domain.Aircraft{}, domain.ErrInvalidTailNumber
	}

	rateCents, err := domain.ParseCents(req.HourlyRate)
	if err != nil || rateCents <= 0 {
		return domain.Aircraft{}, domain.ErrInvalidHourlyRate
	}

	now := time.Now().UTC()
	aircraft := domain.Aircraft{
		ID:              s.genID.Generate(),
		ClubID:          clubID,
		TailNumber:      tail,
		Name:            strings.TrimSpace(req.Name),
		Make:            strings.TrimSpace(req.Make),
		Model:           strings.TrimSpace(req.Model),
		HourlyRateCents: rateCents,
		Hobbs:           req.Hobbs,
		Tach:            req.Tach,
		Status:          domain.StatusAvailable,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, &aircraft); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Aircraft{}, domain.ErrDuplicateTail
		}
		return domain.Aircraft{}, err
	}

	s.log.Info("aircraft registered",
		zap.String("aircraft_id", aircraft.ID.String()),
		zap.String("tail_number", aircraft.TailNumber),
	)
	return aircraft, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Aircraft, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return nil, domain.ErrInvalidClub
	}
	return s.repo.List(ctx, s.db, clubID)
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Aircraft, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return domain.Aircraft{}, domain.ErrInvalidClub
	}

	aircraftID, err := domain.ParseID(id)
	if err != nil || aircraftID == 0 {
		return domain.Aircraft{}, domain.ErrInvalidID
	}

	aircraft, err := s.repo.FindByID(ctx, s.db, clubID, aircraftID)
	if err != nil {
		return domain.Aircraft{}, err
	}
	if aircraft == nil {
		return domain.Aircraft{}, domain.ErrNotFound
	}
	return *aircraft, nil
}

// Ground takes an aircraft out of service. A checked-out aircraft cannot be
// grounded; the open flight has to be closed first.
func (s *Service) Ground(ctx context.Context, id string) (domain.Aircraft, error) {
	return s.setStatus(ctx, id, domain.StatusAvailable, domain.StatusGrounded)
}

// Unground returns a grounded aircraft to service.
func (s *Service) Unground(ctx context.Context, id string) (domain.Aircraft, error) {
	return s.setStatus(ctx, id, domain.StatusGrounded, domain.StatusAvailable)
}

func (s *Service) setStatus(ctx context.Context, id string, from, to domain.Status) (domain.Aircraft, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Aircraft{}, err
	}

	aircraft, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Aircraft{}, err
	}
	if aircraft.Status != from {
		return domain.Aircraft{}, domain.ErrConflict
	}

	now := time.Now().UTC()
	ok, err := s.repo.SetStatus(ctx, s.db, aircraft.ClubID, aircraft.ID, from, to, now)
	if err != nil {
		return domain.Aircraft{}, err
	}
	if !ok {
		return domain.Aircraft{}, domain.ErrConflict
	}

	aircraft.Status = to
	aircraft.UpdatedAt = now
	s.log.Info("aircraft status changed",
		zap.String("aircraft_id", aircraft.ID.String()),
		zap.String("status", string(to)),
	)
	return aircraft, nil
}

func (s *Service) requireAdmin(ctx context.Context) error {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok || actor.MemberID == 0 {
		return clubdomain.ErrNotMember
	}
	_, err := s.clubs.RequireAdmin(ctx, actor.MemberID)
	return err
}
