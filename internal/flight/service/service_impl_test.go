package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/airfieldhq/clubops/internal/actorcontext"
	aircraftdomain "github.com/airfieldhq/clubops/internal/aircraft/domain"
	aircraftrepo "github.com/airfieldhq/clubops/internal/aircraft/repository"
	clubdomain "github.com/airfieldhq/clubops/internal/club/domain"
	clubrepo "github.com/airfieldhq/clubops/internal/club/repository"
	clubservice "github.com/airfieldhq/clubops/internal/club/service"
	"github.com/airfieldhq/clubops/internal/clock"
	"github.com/airfieldhq/clubops/internal/clubcontext"
	"github.com/airfieldhq/clubops/internal/flight/domain"
	flightrepo "github.com/airfieldhq/clubops/internal/flight/repository"
	"github.com/airfieldhq/clubops/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	node     *snowflake.Node
	clk      *clock.FakeClock
	clubs    clubdomain.Service
	aircraft aircraftdomain.Repository
	flights  domain.Service

	clubID   snowflake.ID
	adminID  snowflake.ID
	memberID snowflake.ID
	otherID  snowflake.ID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&clubdomain.Club{},
		&clubdomain.Membership{},
		&aircraftdomain.Aircraft{},
		&domain.FlightRecord{},
	))
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_flight_records_open_aircraft
		 ON flight_records (aircraft_id) WHERE ended_at IS NULL`,
	).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))

	clubs := clubservice.New(clubservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  clubrepo.Provide(),
	})

	env := &testEnv{
		db:       db,
		node:     node,
		clk:      clk,
		clubs:    clubs,
		aircraft: aircraftrepo.Provide(),
	}
	env.flights = New(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Repo:     flightrepo.Provide(),
		Aircraft: env.aircraft,
		Clubs:    clubs,
	})

	club, err := clubs.Create(context.Background(), clubdomain.CreateClubRequest{Name: "Ridge Soaring"})
	require.NoError(t, err)
	env.clubID = club.ID

	env.adminID = node.Generate()
	env.memberID = node.Generate()
	env.otherID = node.Generate()
	for id, role := range map[snowflake.ID]clubdomain.Role{
		env.adminID:  clubdomain.RoleAdmin,
		env.memberID: clubdomain.RoleMember,
		env.otherID:  clubdomain.RoleMember,
	} {
		_, err := clubs.AddMember(env.ctx(id), clubdomain.AddMemberRequest{
			MemberID: id.String(),
			Role:     role,
		})
		require.NoError(t, err)
	}
	return env
}

func (e *testEnv) ctx(memberID snowflake.ID) context.Context {
	ctx := clubcontext.WithClubID(context.Background(), e.clubID)
	return actorcontext.WithActor(ctx, actorcontext.Actor{MemberID: memberID})
}

func (e *testEnv) addAircraft(t *testing.T, hobbs aircraftdomain.MeterReading, rateCents int64) aircraftdomain.Aircraft {
	t.Helper()
	now := e.clk.Now()
	aircraft := aircraftdomain.Aircraft{
		ID:              e.node.Generate(),
		ClubID:          e.clubID,
		TailNumber:      fmt.Sprintf("N%d", e.node.Generate()%100000),
		HourlyRateCents: rateCents,
		Hobbs:           hobbs,
		Tach:            hobbs,
		Status:          aircraftdomain.StatusAvailable,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, e.aircraft.Insert(context.Background(), e.db, &aircraft))
	return aircraft
}

func (e *testEnv) findAircraft(t *testing.T, id snowflake.ID) aircraftdomain.Aircraft {
	t.Helper()
	found, err := e.aircraft.FindByID(context.Background(), e.db, e.clubID, id)
	require.NoError(t, err)
	require.NotNil(t, found)
	return *found
}

func TestCheckoutOpensRecordAndMarksAircraft(t *testing.T) {
	env := newTestEnv(t)
	aircraft := env.addAircraft(t, 1000, 15000)

	record, err := env.flights.Checkout(env.ctx(env.memberID), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 1000,
	})
	require.NoError(t, err)
	assert.True(t, record.Open())
	assert.Equal(t, env.memberID, record.MemberID)
	assert.Equal(t, aircraftdomain.MeterReading(1000), record.HobbsStart)

	assert.Equal(t, aircraftdomain.StatusCheckedOut, env.findAircraft(t, aircraft.ID).Status)
}

func TestCheckoutRejectsDecreasingHobbs(t *testing.T) {
	env := newTestEnv(t)
	aircraft := env.addAircraft(t, 1000, 15000)

	_, err := env.flights.Checkout(env.ctx(env.memberID), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 999,
	})
	assert.ErrorIs(t, err, aircraftdomain.ErrInvalidMeterReading)
	assert.Equal(t, aircraftdomain.StatusAvailable, env.findAircraft(t, aircraft.ID).Status)
}

func TestCheckoutConflictsWhenCheckedOut(t *testing.T) {
	env := newTestEnv(t)
	aircraft := env.addAircraft(t, 1000, 15000)

	_, err := env.flights.Checkout(env.ctx(env.memberID), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 1000,
	})
	require.NoError(t, err)

	_, err = env.flights.Checkout(env.ctx(env.otherID), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 1000,
	})
	assert.ErrorIs(t, err, aircraftdomain.ErrConflict)
}

func TestCheckoutConflictsWhenGrounded(t *testing.T) {
	env := newTestEnv(t)
	aircraft := env.addAircraft(t, 1000, 15000)
	ok, err := env.aircraft.SetStatus(context.Background(), env.db, env.clubID, aircraft.ID,
		aircraftdomain.StatusAvailable, aircraftdomain.StatusGrounded, env.clk.Now())
	require.NoError(t, err)
	require.True(t, ok)

	_, err = env.flights.Checkout(env.ctx(env.memberID), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 1000,
	})
	assert.ErrorIs(t, err, aircraftdomain.ErrConflict)
}

func TestCheckoutUnknownAircraft(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.flights.Checkout(env.ctx(env.memberID), domain.CheckoutRequest{
		AircraftID:    env.node.Generate().String(),
		StartingHobbs: 1000,
	})
	assert.ErrorIs(t, err, aircraftdomain.ErrNotFound)
}

func TestConcurrentCheckoutExactlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	aircraft := env.addAircraft(t, 1000, 15000)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	callers := []snowflake.ID{env.memberID, env.otherID}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.flights.Checkout(env.ctx(callers[i]), domain.CheckoutRequest{
				AircraftID:    aircraft.ID.String(),
				StartingHobbs: 1000,
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, aircraftdomain.ErrConflict)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestCheckinComputesExactCost(t *testing.T) {
	env := newTestEnv(t)
	// 100.0 -> 102.5 at $150.00/h must be exactly $375.00.
	aircraft := env.addAircraft(t, 1000, 15000)

	record, err := env.flights.Checkout(env.ctx(env.memberID), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 1000,
	})
	require.NoError(t, err)

	env.clk.Advance(3 * time.Hour)
	closed, err := env.flights.Checkin(env.ctx(env.memberID), domain.CheckinRequest{
		RecordID:    record.ID.String(),
		EndingHobbs: 1025,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(25), closed.ElapsedTenths)
	assert.Equal(t, int64(15000), closed.HourlyRateCents)
	assert.Equal(t, int64(37500), closed.CostCents)
	assert.False(t, closed.Open())
	assert.False(t, closed.Billed)

	after := env.findAircraft(t, aircraft.ID)
	assert.Equal(t, aircraftdomain.StatusAvailable, after.Status)
	assert.Equal(t, aircraftdomain.MeterReading(1025), after.Hobbs)
}

func TestCheckinSnapshotsRateAtClose(t *testing.T) {
	env := newTestEnv(t)
	aircraft := env.addAircraft(t, 1000, 15000)

	record, err := env.flights.Checkout(env.ctx(env.memberID), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 1000,
	})
	require.NoError(t, err)

	// Rate change mid-flight applies because the snapshot is taken at close.
	require.NoError(t, env.db.Exec(
		`UPDATE aircraft SET hourly_rate_cents = ? WHERE id = ?`, int64(18000), aircraft.ID,
	).Error)

	closed, err := env.flights.Checkin(env.ctx(env.memberID), domain.CheckinRequest{
		RecordID:    record.ID.String(),
		EndingHobbs: 1010,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(18000), closed.HourlyRateCents)
	assert.Equal(t, int64(18000), closed.CostCents)
}

func TestCheckinRejectsLowerEndingHobbs(t *testing.T) {
	env := newTestEnv(t)
	aircraft := env.addAircraft(t, 1000, 15000)

	record, err := env.flights.Checkout(env.ctx(env.memberID), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 1000,
	})
	require.NoError(t, err)

	_, err = env.flights.Checkin(env.ctx(env.memberID), domain.CheckinRequest{
		RecordID:    record.ID.String(),
		EndingHobbs: 999,
	})
	assert.ErrorIs(t, err, aircraftdomain.ErrInvalidMeterReading)

	// The aircraft stays checked out; the failed close changed nothing.
	assert.Equal(t, aircraftdomain.StatusCheckedOut, env.findAircraft(t, aircraft.ID).Status)
}

func TestCheckinTwiceIsAlreadyClosed(t *testing.T) {
	env := newTestEnv(t)
	aircraft := env.addAircraft(t, 1000, 15000)

	record, err := env.flights.Checkout(env.ctx(env.memberID), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 1000,
	})
	require.NoError(t, err)

	_, err = env.flights.Checkin(env.ctx(env.memberID), domain.CheckinRequest{
		RecordID:    record.ID.String(),
		EndingHobbs: 1010,
	})
	require.NoError(t, err)

	_, err = env.flights.Checkin(env.ctx(env.memberID), domain.CheckinRequest{
		RecordID:    record.ID.String(),
		EndingHobbs: 1010,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyClosed)
}

func TestCheckinByWrongMemberForbidden(t *testing.T) {
	env := newTestEnv(t)
	aircraft := env.addAircraft(t, 1000, 15000)

	record, err := env.flights.Checkout(env.ctx(env.memberID), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 1000,
	})
	require.NoError(t, err)

	_, err = env.flights.Checkin(env.ctx(env.otherID), domain.CheckinRequest{
		RecordID:    record.ID.String(),
		EndingHobbs: 1010,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCheckinAdminOverride(t *testing.T) {
	env := newTestEnv(t)
	aircraft := env.addAircraft(t, 1000, 15000)

	record, err := env.flights.Checkout(env.ctx(env.memberID), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 1000,
	})
	require.NoError(t, err)

	closed, err := env.flights.Checkin(env.ctx(env.adminID), domain.CheckinRequest{
		RecordID:    record.ID.String(),
		EndingHobbs: 1010,
	})
	require.NoError(t, err)
	assert.Equal(t, env.memberID, closed.MemberID)
}

func TestListActiveShowsOnlyOpenFlights(t *testing.T) {
	env := newTestEnv(t)
	first := env.addAircraft(t, 1000, 15000)
	second := env.addAircraft(t, 2000, 12000)

	open, err := env.flights.Checkout(env.ctx(env.memberID), domain.CheckoutRequest{
		AircraftID:    first.ID.String(),
		StartingHobbs: 1000,
	})
	require.NoError(t, err)

	closedRec, err := env.flights.Checkout(env.ctx(env.otherID), domain.CheckoutRequest{
		AircraftID:    second.ID.String(),
		StartingHobbs: 2000,
	})
	require.NoError(t, err)
	_, err = env.flights.Checkin(env.ctx(env.otherID), domain.CheckinRequest{
		RecordID:    closedRec.ID.String(),
		EndingHobbs: 2005,
	})
	require.NoError(t, err)

	active, err := env.flights.ListActive(env.ctx(env.memberID))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, open.ID, active[0].ID)
}

func TestCheckoutRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	aircraft := env.addAircraft(t, 1000, 15000)

	stranger := env.node.Generate()
	_, err := env.flights.Checkout(env.ctx(stranger), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 1000,
	})
	assert.ErrorIs(t, err, clubdomain.ErrNotMember)
}

func TestListByMemberPagesNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	aircraft := env.addAircraft(t, 1000, 15000)
	ctx := env.ctx(env.memberID)

	var ids []snowflake.ID
	hobbs := aircraftdomain.MeterReading(1000)
	for i := 0; i < 5; i++ {
		rec, err := env.flights.Checkout(ctx, domain.CheckoutRequest{
			AircraftID:    aircraft.ID.String(),
			StartingHobbs: hobbs,
		})
		require.NoError(t, err)
		hobbs += 5
		closed, err := env.flights.Checkin(ctx, domain.CheckinRequest{
			RecordID:    rec.ID.String(),
			EndingHobbs: hobbs,
		})
		require.NoError(t, err)
		ids = append(ids, closed.ID)
	}

	page, info, err := env.flights.ListByMember(ctx, env.memberID, pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	page, info, err = env.flights.ListByMember(ctx, env.memberID, pagination.Pagination{
		PageSize:  2,
		PageToken: info.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, info.HasMore)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	page, info, err = env.flights.ListByMember(ctx, env.memberID, pagination.Pagination{
		PageSize:  2,
		PageToken: info.NextPageToken,
	})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.False(t, info.HasMore)
	assert.Equal(t, ids[0], page[0].ID)

	_, _, err = env.flights.ListByMember(ctx, env.memberID, pagination.Pagination{PageToken: "bogus"})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

func TestCheckinZeroDurationThenRecheckout(t *testing.T) {
	env := newTestEnv(t)
	aircraft := env.addAircraft(t, 1000, 15000)

	rec, err := env.flights.Checkout(env.ctx(env.memberID), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 1000,
	})
	require.NoError(t, err)

	// Equal readings are a valid zero-duration flight.
	closed, err := env.flights.Checkin(env.ctx(env.memberID), domain.CheckinRequest{
		RecordID:    rec.ID.String(),
		EndingHobbs: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), closed.ElapsedTenths)
	assert.Equal(t, int64(0), closed.CostCents)
	assert.Equal(t, aircraftdomain.StatusAvailable, env.findAircraft(t, aircraft.ID).Status)

	// The released aircraft is immediately available to another member.
	_, err = env.flights.Checkout(env.ctx(env.otherID), domain.CheckoutRequest{
		AircraftID:    aircraft.ID.String(),
		StartingHobbs: 1000,
	})
	require.NoError(t, err)
}
