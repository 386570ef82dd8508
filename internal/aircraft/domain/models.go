// Package domain contains the aircraft registry: the single source of truth
// for an aircraft's operational status and metering baseline.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status is an aircraft's availability state. Transitions between AVAILABLE
// and CHECKED_OUT belong exclusively to the dispatch state machine; GROUNDED
// is set by maintenance workflows and pre-empts checkout entirely.
type Status string

const (
	StatusAvailable  Status = "AVAILABLE"
	StatusCheckedOut Status = "CHECKED_OUT"
	StatusGrounded   Status = "GROUNDED"
)

// Aircraft is a club-owned airframe available for member checkout.
type Aircraft struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	ClubID          snowflake.ID `json:"club_id" gorm:"not null;uniqueIndex:ux_aircraft_club_tail,priority:1"`
	TailNumber      string       `json:"tail_number" gorm:"type:text;not null;uniqueIndex:ux_aircraft_club_tail,priority:2"`
	Name            string       `json:"name" gorm:"type:text;not null;default:''"`
	Make            string       `json:"make" gorm:"type:text;not null;default:''"`
	Model           string       `json:"model" gorm:"type:text;not null;default:''"`
	HourlyRateCents int64        `json:"hourly_rate_cents" gorm:"not null;default:0"`
	Hobbs           MeterReading `json:"hobbs" gorm:"not null;default:0"`
	Tach            MeterReading `json:"tach" gorm:"not null;default:0"`
	Status          Status       `json:"status" gorm:"type:text;not null;default:'AVAILABLE'"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Aircraft) TableName() string { return "aircraft" }
