package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	billingdomain "github.com/airfieldhq/clubops/internal/billing/domain"
	clubdomain "github.com/airfieldhq/clubops/internal/club/domain"
	"github.com/airfieldhq/clubops/internal/clock"
	"github.com/airfieldhq/clubops/internal/config"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubClubs struct {
	clubdomain.Service
	clubs   []clubdomain.Club
	listErr error
}

func (s *stubClubs) ListAutoBilling(ctx context.Context) ([]clubdomain.Club, error) {
	return s.clubs, s.listErr
}

type stubBilling struct {
	billingdomain.Service
	sweptOlderThan time.Duration
	sweepErr       error
	ranFor         []snowflake.ID
	runErrs        map[snowflake.ID]error
}

func (s *stubBilling) MarkAbandonedRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.sweptOlderThan = olderThan
	return 0, s.sweepErr
}

func (s *stubBilling) RunCycleForClub(ctx context.Context, clubID snowflake.ID) (billingdomain.RunResult, error) {
	s.ranFor = append(s.ranFor, clubID)
	return billingdomain.RunResult{}, s.runErrs[clubID]
}

func newScheduler(clubs *stubClubs, billing *stubBilling) *Scheduler {
	return New(Params{
		Log:        zap.NewNop(),
		Clock:      clock.NewFakeClock(time.Date(2026, 8, 15, 6, 0, 0, 0, time.UTC)),
		Clubs:      clubs,
		Billing:    billing,
		BillingCfg: config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
	})
}

func TestRunOnceSweepsThenBillsAutoBillingClubs(t *testing.T) {
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	first := node.Generate()
	second := node.Generate()

	clubs := &stubClubs{clubs: []clubdomain.Club{{ID: first}, {ID: second}}}
	billing := &stubBilling{}

	require.NoError(t, newScheduler(clubs, billing).RunOnce(context.Background()))
	assert.Equal(t, config.DefaultBillingConfig().StaleRunAfter, billing.sweptOlderThan)
	assert.Equal(t, []snowflake.ID{first, second}, billing.ranFor)
}

func TestRunOnceSkipsRunInProgress(t *testing.T) {
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	busy := node.Generate()
	idle := node.Generate()

	clubs := &stubClubs{clubs: []clubdomain.Club{{ID: busy}, {ID: idle}}}
	billing := &stubBilling{runErrs: map[snowflake.ID]error{
		busy: billingdomain.ErrRunInProgress,
	}}

	// An in-progress run on one club is not an error and does not stop
	// the pass from reaching the others.
	require.NoError(t, newScheduler(clubs, billing).RunOnce(context.Background()))
	assert.Equal(t, []snowflake.ID{busy, idle}, billing.ranFor)
}

func TestRunOnceAccumulatesFailures(t *testing.T) {
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	failing := node.Generate()
	healthy := node.Generate()

	boom := errors.New("provider down")
	clubs := &stubClubs{clubs: []clubdomain.Club{{ID: failing}, {ID: healthy}}}
	billing := &stubBilling{runErrs: map[snowflake.ID]error{failing: boom}}

	err = newScheduler(clubs, billing).RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []snowflake.ID{failing, healthy}, billing.ranFor)
}

func TestRunOnceReturnsClubListError(t *testing.T) {
	boom := errors.New("db down")
	clubs := &stubClubs{listErr: boom}
	billing := &stubBilling{}

	err := newScheduler(clubs, billing).RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, billing.ranFor)
}

func TestRunOnceStopsOnCanceledContext(t *testing.T) {
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	first := node.Generate()
	second := node.Generate()

	ctx, cancel := context.WithCancel(context.Background())
	clubs := &stubClubs{clubs: []clubdomain.Club{{ID: first}, {ID: second}}}
	billing := &stubBilling{}

	sched := newScheduler(clubs, billing)
	cancel()
	err = sched.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	// The canceled parent stops the pass after the first club.
	assert.Len(t, billing.ranFor, 1)
}
