package domain

import (
	"context"
	"time"

	aircraftdomain "github.com/airfieldhq/clubops/internal/aircraft/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *FlightRecord) error
	FindByID(ctx context.Context, db *gorm.DB, clubID, id snowflake.ID) (*FlightRecord, error)
	ListOpen(ctx context.Context, db *gorm.DB, clubID snowflake.ID) ([]FlightRecord, error)

	// ListByMember pages the member's flight history newest-first. A
	// non-zero afterID is the exclusive keyset lower bound.
	ListByMember(ctx context.Context, db *gorm.DB, clubID, memberID, afterID snowflake.ID, limit int) ([]FlightRecord, error)

	// Close finalizes an open record. The update is guarded on
	// ended_at IS NULL; false means the record was already closed.
	Close(ctx context.Context, db *gorm.DB, id snowflake.ID, endedAt time.Time, hobbsEnd aircraftdomain.MeterReading, tachEnd *aircraftdomain.MeterReading, elapsedTenths, hourlyRateCents, costCents int64) (bool, error)

	// ListUnbilled returns all closed records with billed = false for the
	// club. The billed flag is the only eligibility criterion.
	ListUnbilled(ctx context.Context, db *gorm.DB, clubID snowflake.ID) ([]FlightRecord, error)

	// MarkBilled flips billed = true and stamps the billing run on the
	// given records.
	MarkBilled(ctx context.Context, db *gorm.DB, ids []snowflake.ID, runID snowflake.ID, now time.Time) error
}
