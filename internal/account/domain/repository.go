package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	FindByMemberID(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*Account, error)

	// AddCredit increases the balance by amountCents.
	AddCredit(ctx context.Context, db *gorm.DB, memberID snowflake.ID, amountCents int64, now time.Time) (bool, error)

	// DeductCredit decreases the balance by amountCents. It reports false
	// when the balance would go negative; the caller must re-read and
	// recompute how much credit is actually available.
	DeductCredit(ctx context.Context, db *gorm.DB, memberID snowflake.ID, amountCents int64, now time.Time) (bool, error)

	SetProviderCustomerID(ctx context.Context, db *gorm.DB, memberID snowflake.ID, customerID string, now time.Time) error
}
