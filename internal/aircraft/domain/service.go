package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateAircraftRequest struct {
	TailNumber string       `json:"tail_number"`
	Name       string       `json:"name"`
	Make       string       `json:"make"`
	Model      string       `json:"model"`
	HourlyRate string       `json:"hourly_rate"`
	Hobbs      MeterReading `json:"hobbs"`
	Tach       MeterReading `json:"tach"`
}

type Service interface {
	Create(ctx context.Context, req CreateAircraftRequest) (Aircraft, error)
	List(ctx context.Context) ([]Aircraft, error)
	GetByID(ctx context.Context, id string) (Aircraft, error)
	Ground(ctx context.Context, id string) (Aircraft, error)
	Unground(ctx context.Context, id string) (Aircraft, error)
}

var (
	ErrInvalidClub       = errors.New("invalid_club")
	ErrInvalidTailNumber = errors.New("invalid_tail_number")
	ErrInvalidHourlyRate = errors.New("invalid_hourly_rate")
	ErrInvalidID         = errors.New("invalid_aircraft_id")
	ErrNotFound          = errors.New("aircraft_not_found")
	ErrConflict          = errors.New("aircraft_unavailable")
	ErrDuplicateTail     = errors.New("duplicate_tail_number")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
