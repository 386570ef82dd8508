package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateClubRequest struct {
	Name         string `json:"name"`
	BillingEmail string `json:"billing_email"`
	AutoBilling  bool   `json:"auto_billing"`
}

type AddMemberRequest struct {
	MemberID string `json:"member_id"`
	Role     Role   `json:"role"`
}

type Service interface {
	Create(ctx context.Context, req CreateClubRequest) (Club, error)
	GetByID(ctx context.Context, id snowflake.ID) (Club, error)
	AddMember(ctx context.Context, req AddMemberRequest) (Membership, error)
	ListAutoBilling(ctx context.Context) ([]Club, error)

	// RequireMember returns the caller's membership in the context club, or
	// ErrNotMember. RequireAdmin additionally enforces the admin role.
	RequireMember(ctx context.Context, memberID snowflake.ID) (Membership, error)
	RequireAdmin(ctx context.Context, memberID snowflake.ID) (Membership, error)
}

var (
	ErrInvalidClub   = errors.New("invalid_club")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidMember = errors.New("invalid_member")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrNotFound      = errors.New("club_not_found")
	ErrNotMember     = errors.New("not_a_member")
	ErrAdminRequired = errors.New("admin_required")
	ErrAlreadyMember = errors.New("already_a_member")
)
