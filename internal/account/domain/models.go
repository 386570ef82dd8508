// Package domain holds member billing accounts: contact details, the
// payment provider customer reference and the prepaid credit balance.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Account is a member's billing profile. CreditCents is a prepaid balance
// applied against invoices before payment capture; it never goes negative.
type Account struct {
	MemberID           snowflake.ID `json:"member_id" gorm:"primaryKey"`
	Email              string       `json:"email" gorm:"type:text;not null;uniqueIndex:ux_accounts_email"`
	Name               string       `json:"name" gorm:"type:text;not null;default:''"`
	CreditCents        int64        `json:"credit_cents" gorm:"not null;default:0"`
	ProviderCustomerID *string      `json:"provider_customer_id" gorm:"type:text"`
	CreatedAt          time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }
