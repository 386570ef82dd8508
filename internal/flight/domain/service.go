package domain

import (
	"context"
	"errors"

	aircraftdomain "github.com/airfieldhq/clubops/internal/aircraft/domain"
	"github.com/airfieldhq/clubops/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

type CheckoutRequest struct {
	AircraftID    string                      `json:"aircraft_id"`
	StartingHobbs aircraftdomain.MeterReading `json:"starting_hobbs"`
}

type CheckinRequest struct {
	RecordID    string                       `json:"-"`
	EndingHobbs aircraftdomain.MeterReading  `json:"ending_hobbs"`
	EndingTach  *aircraftdomain.MeterReading `json:"ending_tach"`
}

type Service interface {
	// Checkout opens a flight record and marks the aircraft checked out in
	// one transaction. Exactly one of two racing checkouts wins.
	Checkout(ctx context.Context, req CheckoutRequest) (FlightRecord, error)

	// Checkin closes the record, prices the flight at the aircraft's
	// current hourly rate and returns the aircraft to service.
	Checkin(ctx context.Context, req CheckinRequest) (FlightRecord, error)

	ListActive(ctx context.Context) ([]FlightRecord, error)
	ListByMember(ctx context.Context, memberID snowflake.ID, page pagination.Pagination) ([]FlightRecord, pagination.PageInfo, error)
}

var (
	ErrInvalidRecordID = errors.New("invalid_flight_record_id")
	ErrNotFound        = errors.New("flight_record_not_found")
	ErrAlreadyClosed   = errors.New("flight_record_closed")
	ErrForbidden       = errors.New("flight_record_forbidden")
)
