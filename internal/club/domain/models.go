// Package domain contains persistence models for clubs and membership.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is a member's role inside a club.
type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

// Club is a flying club that owns aircraft and bills its members.
type Club struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Name         string       `json:"name" gorm:"type:text;not null"`
	BillingEmail string       `json:"billing_email" gorm:"type:text;not null;default:''"`
	AutoBilling  bool         `json:"auto_billing" gorm:"not null;default:false"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Club) TableName() string { return "clubs" }

// Membership links a member to a club with a role.
type Membership struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	ClubID    snowflake.ID `json:"club_id" gorm:"not null;uniqueIndex:ux_memberships_club_member,priority:1"`
	MemberID  snowflake.ID `json:"member_id" gorm:"not null;uniqueIndex:ux_memberships_club_member,priority:2"`
	Role      Role         `json:"role" gorm:"type:text;not null;default:'MEMBER'"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Membership) TableName() string { return "memberships" }
