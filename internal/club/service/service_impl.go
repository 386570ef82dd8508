package service

import (
	"context"
	"strings"
	"time"

	"github.com/airfieldhq/clubops/internal/club/domain"
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
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("club.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClubRequest) (domain.Club, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Club{}, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	club := domain.Club{
		ID:           s.genID.Generate(),
		Name:         name,
		BillingEmail: strings.TrimSpace(req.BillingEmail),
		AutoBilling:  req.AutoBilling,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &club); err != nil {
		return domain.Club{}, err
	}
	return club, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Club, error) {
	club, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Club{}, err
	}
	if club == nil {
		return domain.Club{}, domain.ErrNotFound
	}
	return *club, nil
}

func (s *Service) AddMember(ctx context.Context, req domain.AddMemberRequest) (domain.Membership, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return domain.Membership{}, domain.ErrInvalidClub
	}

	memberID, err := snowflake.ParseString(strings.TrimSpace(req.MemberID))
	if err != nil || memberID == 0 {
		return domain.Membership{}, domain.ErrInvalidMember
	}

	role := req.Role
	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleMember && role != domain.RoleAdmin {
		return domain.Membership{}, domain.ErrInvalidRole
	}

	club, err := s.repo.FindByID(ctx, s.db, clubID)
	if err != nil {
		return domain.Membership{}, err
	}
	if club == nil {
		return domain.Membership{}, domain.ErrNotFound
	}

	membership := domain.Membership{
		ID:        s.genID.Generate(),
		ClubID:    clubID,
		MemberID:  memberID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertMembership(ctx, s.db, &membership); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Membership{}, domain.ErrAlreadyMember
		}
		return domain.Membership{}, err
	}
	return membership, nil
}

func (s *Service) ListAutoBilling(ctx context.Context) ([]domain.Club, error) {
	return s.repo.ListAutoBilling(ctx, s.db)
}

func (s *Service) RequireMember(ctx context.Context, memberID snowflake.ID) (domain.Membership, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return domain.Membership{}, domain.ErrInvalidClub
	}

	membership, err := s.repo.FindMembership(ctx, s.db, clubID, memberID)
	if err != nil {
		return domain.Membership{}, err
	}
	if membership == nil {
		return domain.Membership{}, domain.ErrNotMember
	}
	return *membership, nil
}

func (s *Service) RequireAdmin(ctx context.Context, memberID snowflake.ID) (domain.Membership, error) {
	membership, err := s.RequireMember(ctx, memberID)
	if err != nil {
		return domain.Membership{}, err
	}
	if membership.Role != domain.RoleAdmin {
		return domain.Membership{}, domain.ErrAdminRequired
	}
	return membership, nil
}
