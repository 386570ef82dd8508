package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists aircraft state. Status transitions are compare-and-swap
// updates so concurrent dispatch requests cannot both win; callers pass their
// transaction handle so a transition commits atomically with the flight
// record it belongs to.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, aircraft *Aircraft) error
	FindByID(ctx context.Context, db *gorm.DB, clubID, id snowflake.ID) (*Aircraft, error)
	List(ctx context.Context, db *gorm.DB, clubID snowflake.ID) ([]Aircraft, error)

	// MarkCheckedOut transitions AVAILABLE -> CHECKED_OUT. It reports false
	// when the aircraft was not AVAILABLE (raced, grounded or missing).
	MarkCheckedOut(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)

	// MarkAvailable transitions CHECKED_OUT -> AVAILABLE.
	MarkAvailable(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)

	// UpdateMeters persists the latest Hobbs and Tach readings.
	UpdateMeters(ctx context.Context, db *gorm.DB, id snowflake.ID, hobbs, tach MeterReading, now time.Time) error

	// SetStatus transitions from -> to; used by maintenance grounding only.
	SetStatus(ctx context.Context, db *gorm.DB, clubID, id snowflake.ID, from, to Status, now time.Time) (bool, error)
}
