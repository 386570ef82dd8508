package repository

import (
	"context"
	"time"

	"github.com/airfieldhq/clubops/internal/aircraft/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, aircraft *domain.Aircraft) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO aircraft (id, club_id, tail_number, name, make, model, hourly_rate_cents, hobbs, tach, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		aircraft.ID,
		aircraft.ClubID,
		aircraft.TailNumber,
		aircraft.Name,
		aircraft.Make,
		aircraft.Model,
		aircraft.HourlyRateCents,
		aircraft.Hobbs,
		aircraft.Tach,
		aircraft.Status,
		aircraft.CreatedAt,
		aircraft.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, clubID, id snowflake.ID) (*domain.Aircraft, error) {
	var aircraft domain.Aircraft
	err := db.WithContext(ctx).Raw(
		`SELECT id, club_id, tail_number, name, make, model, hourly_rate_cents, hobbs, tach, status, created_at, updated_at
		 FROM aircraft WHERE club_id = ? AND id = ?`,
		clubID,
		id,
	).Scan(&aircraft).Error
	if err != nil {
		return nil, err
	}
	if aircraft.ID == 0 {
		return nil, nil
	}
	return &aircraft, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, clubID snowflake.ID) ([]domain.Aircraft, error) {
	var fleet []domain.Aircraft
	err := db.WithContext(ctx).Raw(
		`SELECT id, club_id, tail_number, name, make, model, hourly_rate_cents, hobbs, tach, status, created_at, updated_at
		 FROM aircraft WHERE club_id = ? ORDER BY tail_number`,
		clubID,
	).Scan(&fleet).Error
	if err != nil {
		return nil, err
	}
	return fleet, nil
}

func (r *repo) MarkCheckedOut(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	return r.transition(ctx, db, id, domain.StatusAvailable, domain.StatusCheckedOut, now)
}

func (r *repo) MarkAvailable(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	return r.transition(ctx, db, id, domain.StatusCheckedOut, domain.StatusAvailable, now)
}

func (r *repo) transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE aircraft SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		now,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) UpdateMeters(ctx context.Context, db *gorm.DB, id snowflake.ID, hobbs, tach domain.MeterReading, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE aircraft SET hobbs = ?, tach = ?, updated_at = ? WHERE id = ?`,
		hobbs,
		tach,
		now,
		id,
	).Error
}

func (r *repo) SetStatus(ctx context.Context, db *gorm.DB, clubID, id snowflake.ID, from, to domain.Status, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE aircraft SET status = ?, updated_at = ? WHERE club_id = ? AND id = ? AND status = ?`,
		to,
		now,
		clubID,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
