package service

import (
	"context"
	"strings"
	"time"

	"github.com/airfieldhq/clubops/internal/account/domain"
	"github.com/airfieldhq/clubops/internal/actorcontext"
	aircraftdomain "github.com/airfieldhq/clubops/internal/aircraft/domain"
	clubdomain "github.com/airfieldhq/clubops/internal/club/domain"
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
	Repo  domain.Repository
	Clubs clubdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	clubs clubdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.service"),
		repo:  p.Repo,
		clubs: p.Clubs,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAccountRequest) (domain.Account, error) {
	memberID, err := snowflake.ParseString(strings.TrimSpace(req.MemberID))
	if err != nil || memberID == 0 {
		return domain.Account{}, domain.ErrInvalidMember
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.Account{}, domain.ErrInvalidEmail
	}

	now := time.Now().UTC()
	account := domain.Account{
		MemberID:  memberID,
		Email:     email,
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &account); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Account{}, domain.ErrDuplicate
		}
		return domain.Account{}, err
	}
	return account, nil
}

func (s *Service) GetByMemberID(ctx context.Context, memberID snowflake.ID) (domain.Account, error) {
	account, err := s.repo.FindByMemberID(ctx, s.db, memberID)
	if err != nil {
		return domain.Account{}, err
	}
	if account == nil {
		return domain.Account{}, domain.ErrNotFound
	}
	return *account, nil
}

func (s *Service) GrantCredit(ctx context.Context, req domain.GrantCreditRequest) (domain.Account, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Account{}, err
	}

	memberID, err := snowflake.ParseString(strings.TrimSpace(req.MemberID))
	if err != nil || memberID == 0 {
		return domain.Account{}, domain.ErrInvalidMember
	}

	amountCents, err := aircraftdomain.ParseCents(req.Amount)
	if err != nil || amountCents <= 0 {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	ok, err := s.repo.AddCredit(ctx, s.db, memberID, amountCents, time.Now().UTC())
	if err != nil {
		return domain.Account{}, err
	}
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}

	s.log.Info("credit granted",
		zap.String("member_id", memberID.String()),
		zap.Int64("amount_cents", amountCents),
	)
	return s.GetByMemberID(ctx, memberID)
}

func (s *Service) LinkCustomer(ctx context.Context, req domain.LinkCustomerRequest) (domain.Account, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Account{}, err
	}

	memberID, err := snowflake.ParseString(strings.TrimSpace(req.MemberID))
	if err != nil || memberID == 0 {
		return domain.Account{}, domain.ErrInvalidMember
	}

	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return domain.Account{}, domain.ErrInvalidCustomer
	}

	if _, err := s.GetByMemberID(ctx, memberID); err != nil {
		return domain.Account{}, err
	}
	if err := s.repo.SetProviderCustomerID(ctx, s.db, memberID, customerID, time.Now().UTC()); err != nil {
		return domain.Account{}, err
	}
	return s.GetByMemberID(ctx, memberID)
}

func (s *Service) requireAdmin(ctx context.Context) error {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok || actor.MemberID == 0 {
		return clubdomain.ErrNotMember
	}
	_, err := s.clubs.RequireAdmin(ctx, actor.MemberID)
	return err
}
