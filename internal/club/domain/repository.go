package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, club *Club) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Club, error)
	ListAutoBilling(ctx context.Context, db *gorm.DB) ([]Club, error)
	InsertMembership(ctx context.Context, db *gorm.DB, membership *Membership) error
	FindMembership(ctx context.Context, db *gorm.DB, clubID, memberID snowflake.ID) (*Membership, error)
	ListAdmins(ctx context.Context, db *gorm.DB, clubID snowflake.ID) ([]Membership, error)
}
