package repository

import (
	"context"
	"time"

	"github.com/airfieldhq/clubops/internal/account/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO accounts (member_id, email, name, credit_cents, provider_customer_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.MemberID,
		account.Email,
		account.Name,
		account.CreditCents,
		account.ProviderCustomerID,
		account.CreatedAt,
		account.UpdatedAt,
	).Error
}

func (r *repo) FindByMemberID(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*domain.Account, error) {
	var account domain.Account
	err := db.WithContext(ctx).Raw(
		`SELECT member_id, email, name, credit_cents, provider_customer_id, created_at, updated_at
		 FROM accounts WHERE member_id = ?`,
		memberID,
	).Scan(&account).Error
	if err != nil {
		return nil, err
	}
	if account.MemberID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) AddCredit(ctx context.Context, db *gorm.DB, memberID snowflake.ID, amountCents int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE accounts SET credit_cents = credit_cents + ?, updated_at = ? WHERE member_id = ?`,
		amountCents,
		now,
		memberID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) DeductCredit(ctx context.Context, db *gorm.DB, memberID snowflake.ID, amountCents int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE accounts SET credit_cents = credit_cents - ?, updated_at = ?
		 WHERE member_id = ? AND credit_cents >= ?`,
		amountCents,
		now,
		memberID,
		amountCents,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) SetProviderCustomerID(ctx context.Context, db *gorm.DB, memberID snowflake.ID, customerID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE accounts SET provider_customer_id = ?, updated_at = ? WHERE member_id = ?`,
		customerID,
		now,
		memberID,
	).Error
}
