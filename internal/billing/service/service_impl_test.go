package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	accountdomain "github.com/airfieldhq/clubops/internal/account/domain"
	accountrepo "github.com/airfieldhq/clubops/internal/account/repository"
	"github.com/airfieldhq/clubops/internal/actorcontext"
	aircraftdomain "github.com/airfieldhq/clubops/internal/aircraft/domain"
	aircraftrepo "github.com/airfieldhq/clubops/internal/aircraft/repository"
	"github.com/airfieldhq/clubops/internal/billing/domain"
	billingrepo "github.com/airfieldhq/clubops/internal/billing/repository"
	clubdomain "github.com/airfieldhq/clubops/internal/club/domain"
	clubrepo "github.com/airfieldhq/clubops/internal/club/repository"
	clubservice "github.com/airfieldhq/clubops/internal/club/service"
	"github.com/airfieldhq/clubops/internal/clock"
	"github.com/airfieldhq/clubops/internal/clubcontext"
	"github.com/airfieldhq/clubops/internal/config"
	flightdomain "github.com/airfieldhq/clubops/internal/flight/domain"
	flightrepo "github.com/airfieldhq/clubops/internal/flight/repository"
	paymentdomain "github.com/airfieldhq/clubops/internal/payment/domain"
	"github.com/airfieldhq/clubops/internal/providers/email"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type billingEnv struct {
	db       *gorm.DB
	node     *snowflake.Node
	clk      *clock.FakeClock
	provider *paymentdomain.FakeProvider
	clubs    clubdomain.Service
	accounts accountdomain.Repository
	flights  flightdomain.Repository
	repo     domain.Repository
	billing  domain.Service

	clubID  snowflake.ID
	adminID snowflake.ID
}

func newBillingEnv(t *testing.T) *billingEnv {
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
		&accountdomain.Account{},
		&aircraftdomain.Aircraft{},
		&flightdomain.FlightRecord{},
		&domain.BillingRun{},
		&domain.Invoice{},
		&domain.InvoiceItem{},
	))
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_billing_runs_running_club
		 ON billing_runs (club_id) WHERE status = 'RUNNING'`,
	).Error)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2026, 8, 15, 6, 0, 0, 0, time.UTC))

	clubs := clubservice.New(clubservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  clubrepo.Provide(),
	})

	env := &billingEnv{
		db:       db,
		node:     node,
		clk:      clk,
		provider: paymentdomain.NewFakeProvider(),
		clubs:    clubs,
		accounts: accountrepo.Provide(),
		flights:  flightrepo.Provide(),
		repo:     billingrepo.Provide(),
	}
	env.billing = New(Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      clk,
		Repo:       env.repo,
		Flights:    env.flights,
		Aircraft:   aircraftrepo.Provide(),
		Accounts:   env.accounts,
		Clubs:      clubs,
		Provider:   env.provider,
		Email:      &email.NoOpProvider{},
		BillingCfg: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
	})

	club, err := clubs.Create(context.Background(), clubdomain.CreateClubRequest{
		Name:         "Ridge Soaring",
		BillingEmail: "treasurer@ridge.example",
	})
	require.NoError(t, err)
	env.clubID = club.ID

	env.adminID = node.Generate()
	_, err = clubs.AddMember(env.ctx(), clubdomain.AddMemberRequest{
		MemberID: env.adminID.String(),
		Role:     clubdomain.RoleAdmin,
	})
	require.NoError(t, err)
	return env
}

func (e *billingEnv) ctx() context.Context {
	ctx := clubcontext.WithClubID(context.Background(), e.clubID)
	return actorcontext.WithActor(ctx, actorcontext.Actor{MemberID: e.adminID})
}

func (e *billingEnv) addAccount(t *testing.T, creditCents int64, customerID string) snowflake.ID {
	t.Helper()
	memberID := e.node.Generate()
	now := e.clk.Now()
	account := accountdomain.Account{
		MemberID:    memberID,
		Email:       fmt.Sprintf("member-%d@ridge.example", memberID),
		CreditCents: creditCents,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if customerID != "" {
		account.ProviderCustomerID = &customerID
	}
	require.NoError(t, e.accounts.Insert(context.Background(), e.db, &account))
	return memberID
}

// addClosedFlight persists an already-closed, unbilled flight record.
func (e *billingEnv) addClosedFlight(t *testing.T, memberID snowflake.ID, costCents int64) flightdomain.FlightRecord {
	t.Helper()
	now := e.clk.Now()
	ended := now
	hobbsEnd := aircraftdomain.MeterReading(1010)
	record := flightdomain.FlightRecord{
		ID:              e.node.Generate(),
		ClubID:          e.clubID,
		AircraftID:      e.node.Generate(),
		MemberID:        memberID,
		HobbsStart:      1000,
		HobbsEnd:        &hobbsEnd,
		ElapsedTenths:   10,
		HourlyRateCents: costCents,
		CostCents:       costCents,
		StartedAt:       now.Add(-time.Hour),
		EndedAt:         &ended,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, e.flights.Insert(context.Background(), e.db, &record))
	return record
}

func (e *billingEnv) getInvoice(t *testing.T, id snowflake.ID) domain.Invoice {
	t.Helper()
	invoice, err := e.repo.FindInvoiceByID(context.Background(), e.db, e.clubID, id)
	require.NoError(t, err)
	require.NotNil(t, invoice)
	return *invoice
}

func TestRunCycleInvoicesAndCaptures(t *testing.T) {
	env := newBillingEnv(t)
	memberID := env.addAccount(t, 0, "cus_123")
	env.addClosedFlight(t, memberID, 37500)

	result, err := env.billing.RunCycle(env.ctx())
	require.NoError(t, err)

	require.Len(t, result.Members, 1)
	member := result.Members[0]
	assert.True(t, member.Success)
	assert.Equal(t, int64(37500), member.SubtotalCents)
	assert.Equal(t, int64(0), member.CreditAppliedCents)
	assert.Equal(t, int64(37500), member.TotalCents)

	assert.Equal(t, domain.RunStatusCompleted, result.Run.Status)
	assert.Equal(t, 1, result.Run.SuccessCount)
	assert.Equal(t, int64(37500), result.Run.TotalBilledCents)

	invoice := env.getInvoice(t, member.InvoiceID)
	assert.Equal(t, domain.InvoiceStatusPaid, invoice.Status)
	require.NotNil(t, invoice.ProviderChargeID)

	calls := env.provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "cus_123", calls[0].CustomerID)
	assert.Equal(t, int64(37500), calls[0].AmountCents)
}

func TestRunCycleBilledFlagIsSoleEligibility(t *testing.T) {
	env := newBillingEnv(t)
	memberID := env.addAccount(t, 0, "cus_123")
	env.addClosedFlight(t, memberID, 10000)

	first, err := env.billing.RunCycle(env.ctx())
	require.NoError(t, err)
	require.Len(t, first.Members, 1)

	// Everything is billed now; a second run finds nothing regardless of
	// any timestamp relation to the first run.
	second, err := env.billing.RunCycle(env.ctx())
	require.NoError(t, err)
	assert.Empty(t, second.Members)
	assert.Equal(t, domain.RunStatusCompleted, second.Run.Status)
	assert.Len(t, env.provider.Calls(), 1)
}

func TestRunCycleSkipsOpenFlights(t *testing.T) {
	env := newBillingEnv(t)
	memberID := env.addAccount(t, 0, "cus_123")
	now := env.clk.Now()
	open := flightdomain.FlightRecord{
		ID:         env.node.Generate(),
		ClubID:     env.clubID,
		AircraftID: env.node.Generate(),
		MemberID:   memberID,
		HobbsStart: 1000,
		StartedAt:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, env.flights.Insert(context.Background(), env.db, &open))

	result, err := env.billing.RunCycle(env.ctx())
	require.NoError(t, err)
	assert.Empty(t, result.Members)
}

func TestRunCycleAppliesCreditBeforeCapture(t *testing.T) {
	env := newBillingEnv(t)
	memberID := env.addAccount(t, 20000, "cus_credit")
	env.addClosedFlight(t, memberID, 37500)

	result, err := env.billing.RunCycle(env.ctx())
	require.NoError(t, err)

	require.Len(t, result.Members, 1)
	member := result.Members[0]
	assert.True(t, member.Success)
	assert.Equal(t, int64(20000), member.CreditAppliedCents)
	assert.Equal(t, int64(17500), member.TotalCents)

	account, err := env.accounts.FindByMemberID(context.Background(), env.db, memberID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), account.CreditCents)

	calls := env.provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(17500), calls[0].AmountCents)
}

func TestRunCycleZeroTotalPaidWithoutCapture(t *testing.T) {
	env := newBillingEnv(t)
	memberID := env.addAccount(t, 50000, "cus_rich")
	env.addClosedFlight(t, memberID, 30000)

	result, err := env.billing.RunCycle(env.ctx())
	require.NoError(t, err)
	require.Len(t, result.Members, 1)

	member := result.Members[0]
	assert.True(t, member.Success)
	assert.Equal(t, int64(0), member.TotalCents)
	assert.Empty(t, env.provider.Calls())

	invoice := env.getInvoice(t, member.InvoiceID)
	assert.Equal(t, domain.InvoiceStatusPaid, invoice.Status)
	assert.Nil(t, invoice.ProviderChargeID)

	account, err := env.accounts.FindByMemberID(context.Background(), env.db, memberID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), account.CreditCents)
}

func TestRunCyclePartialFailureIsolation(t *testing.T) {
	env := newBillingEnv(t)
	noCustomer := env.addAccount(t, 0, "")
	failing := env.addAccount(t, 0, "cus_declined")
	paying := env.addAccount(t, 0, "cus_good")
	env.provider.FailCustomer("cus_declined", errors.New("card_declined"))

	env.addClosedFlight(t, noCustomer, 10000)
	env.addClosedFlight(t, failing, 20000)
	env.addClosedFlight(t, paying, 30000)

	result, err := env.billing.RunCycle(env.ctx())
	require.NoError(t, err)
	require.Len(t, result.Members, 3)

	byMember := make(map[snowflake.ID]domain.MemberResult)
	for _, m := range result.Members {
		byMember[m.MemberID] = m
	}

	assert.False(t, byMember[noCustomer].Success)
	assert.Equal(t, "no payment customer on file", byMember[noCustomer].Error)
	assert.False(t, byMember[failing].Success)
	assert.True(t, byMember[paying].Success)

	assert.Equal(t, domain.RunStatusCompleted, result.Run.Status)
	assert.Equal(t, 1, result.Run.SuccessCount)
	assert.Equal(t, 2, result.Run.FailureCount)
	assert.Equal(t, int64(30000), result.Run.TotalBilledCents)

	paid := env.getInvoice(t, byMember[paying].InvoiceID)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	failed := env.getInvoice(t, byMember[failing].InvoiceID)
	assert.Equal(t, domain.InvoiceStatusFailed, failed.Status)
	require.NotNil(t, failed.FailureReason)
	assert.Equal(t, "card_declined", *failed.FailureReason)

	// Failed captures stay billed; the next run must not pick them up.
	unbilled, err := env.flights.ListUnbilled(context.Background(), env.db, env.clubID)
	require.NoError(t, err)
	assert.Empty(t, unbilled)
}

func TestRunCycleConflictsWithRunningRun(t *testing.T) {
	env := newBillingEnv(t)
	now := env.clk.Now()
	running := domain.BillingRun{
		ID:        env.node.Generate(),
		ClubID:    env.clubID,
		Status:    domain.RunStatusRunning,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, env.repo.InsertRun(context.Background(), env.db, &running))

	_, err := env.billing.RunCycle(env.ctx())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
}

func TestRunCycleRequiresAdmin(t *testing.T) {
	env := newBillingEnv(t)
	memberID := env.node.Generate()
	_, err := env.clubs.AddMember(env.ctx(), clubdomain.AddMemberRequest{
		MemberID: memberID.String(),
		Role:     clubdomain.RoleMember,
	})
	require.NoError(t, err)

	ctx := clubcontext.WithClubID(context.Background(), env.clubID)
	ctx = actorcontext.WithActor(ctx, actorcontext.Actor{MemberID: memberID})
	_, err = env.billing.RunCycle(ctx)
	assert.ErrorIs(t, err, clubdomain.ErrAdminRequired)
}

func TestMarkAbandonedRunsSweepsStaleOnly(t *testing.T) {
	env := newBillingEnv(t)
	now := env.clk.Now()

	stale := domain.BillingRun{
		ID:        env.node.Generate(),
		ClubID:    env.clubID,
		Status:    domain.RunStatusRunning,
		StartedAt: now.Add(-7 * time.Hour),
		CreatedAt: now.Add(-7 * time.Hour),
		UpdatedAt: now.Add(-7 * time.Hour),
	}
	require.NoError(t, env.repo.InsertRun(context.Background(), env.db, &stale))

	swept, err := env.billing.MarkAbandonedRuns(env.ctx(), 6*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	run, err := env.repo.FindRunByID(context.Background(), env.db, env.clubID, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusAbandoned, run.Status)

	// A fresh RUNNING run survives the sweep.
	fresh := domain.BillingRun{
		ID:        env.node.Generate(),
		ClubID:    env.clubID,
		Status:    domain.RunStatusRunning,
		StartedAt: now.Add(-time.Minute),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, env.repo.InsertRun(context.Background(), env.db, &fresh))
	swept, err = env.billing.MarkAbandonedRuns(env.ctx(), 6*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), swept)
}

func TestRetryInvoiceCapturesPending(t *testing.T) {
	env := newBillingEnv(t)
	memberID := env.addAccount(t, 0, "cus_retry")
	now := env.clk.Now()

	completedAt := now
	run := domain.BillingRun{
		ID:          env.node.Generate(),
		ClubID:      env.clubID,
		Status:      domain.RunStatusCompleted,
		StartedAt:   now.Add(-time.Hour),
		CompletedAt: &completedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, env.repo.InsertRun(context.Background(), env.db, &run))

	// A PENDING invoice on a completed run is the capture crash window.
	pending := domain.Invoice{
		ID:            env.node.Generate(),
		ClubID:        env.clubID,
		MemberID:      memberID,
		BillingRunID:  run.ID,
		Status:        domain.InvoiceStatusPending,
		SubtotalCents: 17500,
		TotalCents:    17500,
		Currency:      "usd",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, env.repo.InsertInvoice(context.Background(), env.db, &pending))

	invoice, err := env.billing.RetryInvoice(env.ctx(), pending.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, invoice.Status)
	require.NotNil(t, invoice.ProviderChargeID)

	calls := env.provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(17500), calls[0].AmountCents)
}

func TestRetryInvoiceRejectsFinalStates(t *testing.T) {
	env := newBillingEnv(t)
	memberID := env.addAccount(t, 0, "cus_123")
	env.addClosedFlight(t, memberID, 10000)

	result, err := env.billing.RunCycle(env.ctx())
	require.NoError(t, err)
	invoiceID := result.Members[0].InvoiceID

	_, err = env.billing.RetryInvoice(env.ctx(), invoiceID.String())
	assert.ErrorIs(t, err, domain.ErrInvoiceNotPending)
}

func TestGetInvoiceReturnsLineItems(t *testing.T) {
	env := newBillingEnv(t)
	memberID := env.addAccount(t, 0, "cus_123")
	first := env.addClosedFlight(t, memberID, 10000)
	second := env.addClosedFlight(t, memberID, 20000)

	result, err := env.billing.RunCycle(env.ctx())
	require.NoError(t, err)
	invoiceID := result.Members[0].InvoiceID

	detail, err := env.billing.GetInvoice(env.ctx(), invoiceID.String())
	require.NoError(t, err)
	require.Len(t, detail.Items, 2)

	got := map[snowflake.ID]int64{}
	for _, item := range detail.Items {
		got[item.FlightRecordID] = item.AmountCents
	}
	assert.Equal(t, int64(10000), got[first.ID])
	assert.Equal(t, int64(20000), got[second.ID])
}
