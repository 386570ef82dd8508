// Package domain holds flight usage records: the per-flight ledger rows the
// dispatch state machine writes and the billing aggregator consumes.
package domain

import (
	"time"

	aircraftdomain "github.com/airfieldhq/clubops/internal/aircraft/domain"
	"github.com/bwmarrin/snowflake"
)

// FlightRecord is one aircraft checkout. A record is open while EndedAt is
// NULL; at most one open record may exist per aircraft, enforced by a partial
// unique index alongside the aircraft status CAS.
//
// HourlyRateCents is snapshotted when the flight closes, so later rate
// changes never reprice a closed flight. Billed is the sole billing
// eligibility flag; timestamps are audit data only.
type FlightRecord struct {
	ID              snowflake.ID               `json:"id" gorm:"primaryKey"`
	ClubID          snowflake.ID               `json:"club_id" gorm:"not null;index:ix_flight_records_club"`
	AircraftID      snowflake.ID               `json:"aircraft_id" gorm:"not null;index:ix_flight_records_aircraft"`
	MemberID        snowflake.ID               `json:"member_id" gorm:"not null;index:ix_flight_records_member"`
	HobbsStart      aircraftdomain.MeterReading  `json:"hobbs_start" gorm:"not null"`
	HobbsEnd        *aircraftdomain.MeterReading `json:"hobbs_end"`
	TachEnd         *aircraftdomain.MeterReading `json:"tach_end"`
	ElapsedTenths   int64                        `json:"elapsed_tenths" gorm:"not null;default:0"`
	HourlyRateCents int64                        `json:"hourly_rate_cents" gorm:"not null;default:0"`
	CostCents       int64                        `json:"cost_cents" gorm:"not null;default:0"`
	Billed          bool                         `json:"billed" gorm:"not null;default:false"`
	BillingRunID    *snowflake.ID                `json:"billing_run_id" gorm:"index:ix_flight_records_run"`
	StartedAt       time.Time                    `json:"started_at" gorm:"not null"`
	EndedAt         *time.Time                   `json:"ended_at"`
	CreatedAt       time.Time                    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time                    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FlightRecord) TableName() string { return "flight_records" }

// Open reports whether the flight is still in progress.
func (r FlightRecord) Open() bool { return r.EndedAt == nil }
