package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateAccountRequest struct {
	MemberID string `json:"member_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type GrantCreditRequest struct {
	MemberID string `json:"member_id"`
	// Amount is a decimal currency string, e.g. "50.00".
	Amount string `json:"amount"`
}

type LinkCustomerRequest struct {
	MemberID   string `json:"member_id"`
	CustomerID string `json:"customer_id"`
}

type Service interface {
	Create(ctx context.Context, req CreateAccountRequest) (Account, error)
	GetByMemberID(ctx context.Context, memberID snowflake.ID) (Account, error)

	// GrantCredit is an admin operation adding prepaid balance.
	GrantCredit(ctx context.Context, req GrantCreditRequest) (Account, error)

	// LinkCustomer attaches the payment provider customer reference.
	LinkCustomer(ctx context.Context, req LinkCustomerRequest) (Account, error)
}

var (
	ErrInvalidMember   = errors.New("invalid_member")
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidAmount   = errors.New("invalid_credit_amount")
	ErrInvalidCustomer = errors.New("invalid_customer_id")
	ErrNotFound        = errors.New("account_not_found")
	ErrDuplicate       = errors.New("account_exists")
)
