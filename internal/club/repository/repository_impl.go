package repository

import (
	"context"

	"github.com/airfieldhq/clubops/internal/club/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, club *domain.Club) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clubs (id, name, billing_email, auto_billing, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		club.ID,
		club.Name,
		club.BillingEmail,
		club.AutoBilling,
		club.CreatedAt,
		club.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Club, error) {
	var club domain.Club
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, billing_email, auto_billing, created_at, updated_at
		 FROM clubs WHERE id = ?`,
		id,
	).Scan(&club).Error
	if err != nil {
		return nil, err
	}
	if club.ID == 0 {
		return nil, nil
	}
	return &club, nil
}

func (r *repo) ListAutoBilling(ctx context.Context, db *gorm.DB) ([]domain.Club, error) {
	var clubs []domain.Club
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, billing_email, auto_billing, created_at, updated_at
		 FROM clubs WHERE auto_billing ORDER BY id`,
	).Scan(&clubs).Error
	if err != nil {
		return nil, err
	}
	return clubs, nil
}

func (r *repo) InsertMembership(ctx context.Context, db *gorm.DB, membership *domain.Membership) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO memberships (id, club_id, member_id, role, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		membership.ID,
		membership.ClubID,
		membership.MemberID,
		membership.Role,
		membership.CreatedAt,
	).Error
}

func (r *repo) FindMembership(ctx context.Context, db *gorm.DB, clubID, memberID snowflake.ID) (*domain.Membership, error) {
	var membership domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT id, club_id, member_id, role, created_at
		 FROM memberships WHERE club_id = ? AND member_id = ?`,
		clubID,
		memberID,
	).Scan(&membership).Error
	if err != nil {
		return nil, err
	}
	if membership.ID == 0 {
		return nil, nil
	}
	return &membership, nil
}

func (r *repo) ListAdmins(ctx context.Context, db *gorm.DB, clubID snowflake.ID) ([]domain.Membership, error) {
	var memberships []domain.Membership
	err := db.WithContext(ctx).Raw(
		`SELECT id, club_id, member_id, role, created_at
		 FROM memberships WHERE club_id = ? AND role = ? ORDER BY id`,
		clubID,
		domain.RoleAdmin,
	).Scan(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}
