package repository

import (
	"context"
	"time"

	aircraftdomain "github.com/airfieldhq/clubops/internal/aircraft/domain"
	"github.com/airfieldhq/clubops/internal/flight/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const recordColumns = `id, club_id, aircraft_id, member_id, hobbs_start, hobbs_end, tach_end,
	 elapsed_tenths, hourly_rate_cents, cost_cents, billed, billing_run_id,
	 started_at, ended_at, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.FlightRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO flight_records (id, club_id, aircraft_id, member_id, hobbs_start, hobbs_end, tach_end,
		 elapsed_tenths, hourly_rate_cents, cost_cents, billed, billing_run_id, started_at, ended_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.ClubID,
		record.AircraftID,
		record.MemberID,
		record.HobbsStart,
		record.HobbsEnd,
		record.TachEnd,
		record.ElapsedTenths,
		record.HourlyRateCents,
		record.CostCents,
		record.Billed,
		record.BillingRunID,
		record.StartedAt,
		record.EndedAt,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, clubID, id snowflake.ID) (*domain.FlightRecord, error) {
	var record domain.FlightRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+` FROM flight_records WHERE club_id = ? AND id = ?`,
		clubID,
		id,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) ListOpen(ctx context.Context, db *gorm.DB, clubID snowflake.ID) ([]domain.FlightRecord, error) {
	var records []domain.FlightRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+` FROM flight_records
		 WHERE club_id = ? AND ended_at IS NULL ORDER BY started_at`,
		clubID,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, clubID, memberID, afterID snowflake.ID, limit int) ([]domain.FlightRecord, error) {
	var records []domain.FlightRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+` FROM flight_records
		 WHERE club_id = ? AND member_id = ? AND (? = 0 OR id < ?)
		 ORDER BY id DESC LIMIT ?`,
		clubID,
		memberID,
		afterID,
		afterID,
		limit,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) Close(ctx context.Context, db *gorm.DB, id snowflake.ID, endedAt time.Time, hobbsEnd aircraftdomain.MeterReading, tachEnd *aircraftdomain.MeterReading, elapsedTenths, hourlyRateCents, costCents int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE flight_records
		 SET ended_at = ?, hobbs_end = ?, tach_end = ?, elapsed_tenths = ?, hourly_rate_cents = ?, cost_cents = ?, updated_at = ?
		 WHERE id = ? AND ended_at IS NULL`,
		endedAt,
		hobbsEnd,
		tachEnd,
		elapsedTenths,
		hourlyRateCents,
		costCents,
		endedAt,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ListUnbilled(ctx context.Context, db *gorm.DB, clubID snowflake.ID) ([]domain.FlightRecord, error) {
	var records []domain.FlightRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+` FROM flight_records
		 WHERE club_id = ? AND ended_at IS NOT NULL AND NOT billed
		 ORDER BY member_id, ended_at`,
		clubID,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repo) MarkBilled(ctx context.Context, db *gorm.DB, ids []snowflake.ID, runID snowflake.ID, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE flight_records SET billed = ?, billing_run_id = ?, updated_at = ? WHERE id IN ?`,
		true,
		runID,
		now,
		ids,
	).Error
}
