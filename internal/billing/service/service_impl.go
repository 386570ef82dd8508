package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	accountdomain "github.com/airfieldhq/clubops/internal/account/domain"
	"github.com/airfieldhq/clubops/internal/actorcontext"
	aircraftdomain "github.com/airfieldhq/clubops/internal/aircraft/domain"
	"github.com/airfieldhq/clubops/internal/billing/domain"
	clubdomain "github.com/airfieldhq/clubops/internal/club/domain"
	"github.com/airfieldhq/clubops/internal/clock"
	"github.com/airfieldhq/clubops/internal/clubcontext"
	"github.com/airfieldhq/clubops/internal/config"
	flightdomain "github.com/airfieldhq/clubops/internal/flight/domain"
	"github.com/airfieldhq/clubops/internal/observability/metrics"
	paymentdomain "github.com/airfieldhq/clubops/internal/payment/domain"
	"github.com/airfieldhq/clubops/internal/providers/email"
	"github.com/airfieldhq/clubops/pkg/db"
	"github.com/airfieldhq/clubops/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const reasonNoCustomer = "no payment customer on file"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Flights    flightdomain.Repository
	Aircraft   aircraftdomain.Repository
	Accounts   accountdomain.Repository
	Clubs      clubdomain.Service
	Provider   paymentdomain.Provider
	Email      email.Provider
	BillingCfg *config.BillingConfigHolder
	Metrics    *metrics.DispatchMetrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	flights    flightdomain.Repository
	aircraft   aircraftdomain.Repository
	accounts   accountdomain.Repository
	clubs      clubdomain.Service
	provider   paymentdomain.Provider
	email      email.Provider
	billingCfg *config.BillingConfigHolder
	metrics    *metrics.DispatchMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("billing.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		flights:    p.Flights,
		aircraft:   p.Aircraft,
		accounts:   p.Accounts,
		clubs:      p.Clubs,
		provider:   p.Provider,
		email:      p.Email,
		billingCfg: p.BillingCfg,
		metrics:    p.Metrics,
	}
}

func (s *Service) RunCycle(ctx context.Context) (domain.RunResult, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return domain.RunResult{}, clubdomain.ErrInvalidClub
	}
	if err := s.requireAdmin(ctx); err != nil {
		return domain.RunResult{}, err
	}
	return s.RunCycleForClub(ctx, clubID)
}

func (s *Service) RunCycleForClub(ctx context.Context, clubID snowflake.ID) (domain.RunResult, error) {
	club, err := s.clubs.GetByID(ctx, clubID)
	if err != nil {
		return domain.RunResult{}, err
	}

	cfg := s.billingCfg.Get()
	startedAt := s.clock.Now()
	run := domain.BillingRun{
		ID:        s.genID.Generate(),
		ClubID:    clubID,
		Status:    domain.RunStatusRunning,
		StartedAt: startedAt,
		CreatedAt: startedAt,
		UpdatedAt: startedAt,
	}
	// The RUNNING guard index rejects a second concurrent run; the loser
	// sees Conflict rather than double-billing.
	if err := s.repo.InsertRun(ctx, s.db, &run); err != nil {
		if db.IsDuplicateKeyErr(err) {
			s.metrics.IncBillingRun("conflict")
			return domain.RunResult{}, domain.ErrRunInProgress
		}
		return domain.RunResult{}, err
	}

	log := s.log.With(
		zap.String("club_id", clubID.String()),
		zap.String("run_id", run.ID.String()),
	)
	log.Info("billing run started")

	// The billed flag is the sole eligibility criterion; the window
	// timestamps on the run are audit data only.
	records, err := s.flights.ListUnbilled(ctx, s.db, clubID)
	if err != nil {
		if _, aerr := s.repo.AbandonRun(ctx, s.db, run.ID, s.clock.Now()); aerr != nil {
			log.Error("run abandonment failed", zap.Error(aerr))
		}
		s.metrics.IncBillingRun("abandoned")
		return domain.RunResult{}, err
	}

	tails, err := s.tailNumbers(ctx, clubID)
	if err != nil {
		log.Warn("aircraft lookup failed, invoice items will carry record ids", zap.Error(err))
	}

	memberIDs, grouped := groupByMember(records)
	results := make([]domain.MemberResult, 0, len(memberIDs))
	var totalBilled int64

	for _, memberID := range memberIDs {
		result := s.processMember(ctx, cfg, &run, memberID, grouped[memberID], tails, log)
		if result.Success {
			totalBilled += result.TotalCents
		}
		results = append(results, result)
	}

	completed := s.finishRun(ctx, &run, results, totalBilled, log)
	s.metrics.IncBillingRun("completed")
	s.metrics.ObserveRunDuration(s.clock.Now().Sub(startedAt))

	s.notifyCompletion(club, completed, results)
	return domain.RunResult{Run: completed, Members: results}, nil
}

// processMember invoices one member inside a transaction, then captures
// payment outside it. A failure here never touches other members.
func (s *Service) processMember(ctx context.Context, cfg config.BillingConfig, run *domain.BillingRun, memberID snowflake.ID, records []flightdomain.FlightRecord, tails map[snowflake.ID]string, log *zap.Logger) domain.MemberResult {
	now := s.clock.Now()

	var subtotal int64
	recordIDs := make([]snowflake.ID, 0, len(records))
	for _, rec := range records {
		subtotal += rec.CostCents
		recordIDs = append(recordIDs, rec.ID)
	}

	invoice := domain.Invoice{
		ID:            s.genID.Generate(),
		ClubID:        run.ClubID,
		MemberID:      memberID,
		BillingRunID:  run.ID,
		Status:        domain.InvoiceStatusPending,
		SubtotalCents: subtotal,
		Currency:      cfg.Currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var account *accountdomain.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = s.accounts.FindByMemberID(ctx, tx, memberID)
		if err != nil {
			return err
		}

		// Credit decrement, invoice creation and the billed-flag flip
		// commit together so a crash never drops or double-bills usage.
		var credit int64
		if account != nil && account.CreditCents > 0 {
			credit = account.CreditCents
			if credit > subtotal {
				credit = subtotal
			}
			if credit > 0 {
				ok, err := s.accounts.DeductCredit(ctx, tx, memberID, credit, now)
				if err != nil {
					return err
				}
				if !ok {
					credit = 0
				}
			}
		}
		invoice.CreditAppliedCents = credit
		invoice.TotalCents = subtotal - credit

		if err := s.repo.InsertInvoice(ctx, tx, &invoice); err != nil {
			return err
		}

		items := make([]domain.InvoiceItem, 0, len(records))
		for _, rec := range records {
			items = append(items, domain.InvoiceItem{
				ID:             s.genID.Generate(),
				InvoiceID:      invoice.ID,
				FlightRecordID: rec.ID,
				Description:    itemDescription(rec, tails),
				AmountCents:    rec.CostCents,
				CreatedAt:      now,
			})
		}
		if err := s.repo.InsertItems(ctx, tx, items); err != nil {
			return err
		}

		return s.flights.MarkBilled(ctx, tx, recordIDs, run.ID, now)
	})
	if err != nil {
		log.Error("member aggregation failed",
			zap.String("member_id", memberID.String()),
			zap.Error(err),
		)
		return domain.MemberResult{
			MemberID:      memberID,
			SubtotalCents: subtotal,
			Success:       false,
			Error:         err.Error(),
		}
	}

	result := domain.MemberResult{
		MemberID:           memberID,
		InvoiceID:          invoice.ID,
		SubtotalCents:      invoice.SubtotalCents,
		CreditAppliedCents: invoice.CreditAppliedCents,
		TotalCents:         invoice.TotalCents,
	}

	if invoice.TotalCents == 0 {
		// Fully covered by credit, nothing to capture.
		if _, err := s.repo.MarkInvoicePaid(ctx, s.db, invoice.ID, nil, s.clock.Now()); err != nil {
			result.Error = err.Error()
			return result
		}
		s.metrics.IncInvoice("paid")
		result.Success = true
		return result
	}

	if account == nil || account.ProviderCustomerID == nil || strings.TrimSpace(*account.ProviderCustomerID) == "" {
		s.failInvoice(ctx, invoice.ID, reasonNoCustomer, &result)
		return result
	}

	captureCtx, cancel := context.WithTimeout(ctx, cfg.CaptureTimeout)
	defer cancel()

	description := fmt.Sprintf("Flight time invoice %s", invoice.ID.String())
	charge, err := s.provider.ChargeCustomer(captureCtx, *account.ProviderCustomerID, invoice.TotalCents, invoice.Currency, description)
	if err != nil {
		s.failInvoice(ctx, invoice.ID, err.Error(), &result)
		return result
	}

	if _, err := s.repo.MarkInvoicePaid(ctx, s.db, invoice.ID, &charge.ProviderChargeID, s.clock.Now()); err != nil {
		result.Error = err.Error()
		return result
	}
	s.metrics.IncInvoice("paid")
	s.metrics.AddCapturedCents(invoice.TotalCents)
	result.Success = true
	return result
}

func (s *Service) failInvoice(ctx context.Context, invoiceID snowflake.ID, reason string, result *domain.MemberResult) {
	result.Success = false
	result.Error = reason
	if _, err := s.repo.MarkInvoiceFailed(ctx, s.db, invoiceID, reason, s.clock.Now()); err != nil {
		s.log.Error("invoice status update failed",
			zap.String("invoice_id", invoiceID.String()),
			zap.Error(err),
		)
	}
	s.metrics.IncInvoice("failed")
}

func (s *Service) finishRun(ctx context.Context, run *domain.BillingRun, results []domain.MemberResult, totalBilled int64, log *zap.Logger) domain.BillingRun {
	successCount := 0
	failureCount := 0
	for _, r := range results {
		if r.Success {
			successCount++
		} else {
			failureCount++
		}
	}

	details, err := json.Marshal(results)
	if err != nil {
		details = []byte("[]")
	}

	completedAt := s.clock.Now()
	ok, err := s.repo.CompleteRun(ctx, s.db, run.ID, completedAt, totalBilled, successCount, failureCount, details)
	if err != nil {
		log.Error("billing run completion update failed", zap.Error(err))
	} else if !ok {
		log.Warn("billing run was no longer RUNNING at completion")
	}

	run.Status = domain.RunStatusCompleted
	run.CompletedAt = &completedAt
	run.TotalBilledCents = totalBilled
	run.SuccessCount = successCount
	run.FailureCount = failureCount
	run.Details = details
	run.UpdatedAt = completedAt

	log.Info("billing run completed",
		zap.Int("success_count", successCount),
		zap.Int("failure_count", failureCount),
		zap.Int64("total_billed_cents", totalBilled),
	)
	return *run
}

// notifyCompletion emails the club's billing contact. Fire and forget;
// a mail failure never affects the billing result.
func (s *Service) notifyCompletion(club clubdomain.Club, run domain.BillingRun, results []domain.MemberResult) {
	to := strings.TrimSpace(club.BillingEmail)
	if to == "" {
		return
	}

	subject := fmt.Sprintf("Billing run completed for %s", club.Name)
	var b strings.Builder
	fmt.Fprintf(&b, "Billing run %s finished at %s.\n", run.ID.String(), run.CompletedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Members billed: %d succeeded, %d failed.\n", run.SuccessCount, run.FailureCount)
	fmt.Fprintf(&b, "Total collected: %s %s.\n", aircraftdomain.FormatCents(run.TotalBilledCents), strings.ToUpper(s.billingCfg.Get().Currency))
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(&b, "Member %s: %s\n", r.MemberID.String(), r.Error)
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.email.Send(ctx, []string{to}, subject, b.String()); err != nil {
			s.log.Warn("billing summary email failed",
				zap.String("club_id", club.ID.String()),
				zap.Error(err),
			)
		}
	}()
}

func (s *Service) GetRun(ctx context.Context, id string) (domain.BillingRun, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return domain.BillingRun{}, clubdomain.ErrInvalidClub
	}

	runID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || runID == 0 {
		return domain.BillingRun{}, domain.ErrInvalidRunID
	}

	run, err := s.repo.FindRunByID(ctx, s.db, clubID, runID)
	if err != nil {
		return domain.BillingRun{}, err
	}
	if run == nil {
		return domain.BillingRun{}, domain.ErrRunNotFound
	}
	return *run, nil
}

func (s *Service) ListRuns(ctx context.Context) ([]domain.BillingRun, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return nil, clubdomain.ErrInvalidClub
	}
	return s.repo.ListRuns(ctx, s.db, clubID)
}

func (s *Service) ListInvoices(ctx context.Context, page pagination.Pagination) ([]domain.Invoice, pagination.PageInfo, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return nil, pagination.PageInfo{}, clubdomain.ErrInvalidClub
	}

	afterID, err := page.After()
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	limit := page.Limit()
	invoices, err := s.repo.ListInvoices(ctx, s.db, clubID, afterID, limit+1)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}

	invoices, info := pagination.Trim(invoices, limit, func(inv domain.Invoice) snowflake.ID { return inv.ID })
	return invoices, info, nil
}

func (s *Service) GetInvoice(ctx context.Context, id string) (domain.InvoiceDetail, error) {
	clubID, ok := clubcontext.ClubIDFromContext(ctx)
	if !ok || clubID == 0 {
		return domain.InvoiceDetail{}, clubdomain.ErrInvalidClub
	}

	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || invoiceID == 0 {
		return domain.InvoiceDetail{}, domain.ErrInvalidInvoiceID
	}

	invoice, err := s.repo.FindInvoiceByID(ctx, s.db, clubID, invoiceID)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	if invoice == nil {
		return domain.InvoiceDetail{}, domain.ErrInvoiceNotFound
	}

	items, err := s.repo.ListItems(ctx, s.db, invoice.ID)
	if err != nil {
		return domain.InvoiceDetail{}, err
	}
	return domain.InvoiceDetail{Invoice: *invoice, Items: items}, nil
}

func (s *Service) RetryInvoice(ctx context.Context, id string) (domain.Invoice, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return domain.Invoice{}, err
	}

	detail, err := s.GetInvoice(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	invoice := detail.Invoice
	if invoice.Status != domain.InvoiceStatusPending {
		return domain.Invoice{}, domain.ErrInvoiceNotPending
	}

	now := s.clock.Now()
	if invoice.TotalCents == 0 {
		if _, err := s.repo.MarkInvoicePaid(ctx, s.db, invoice.ID, nil, now); err != nil {
			return domain.Invoice{}, err
		}
		invoice.Status = domain.InvoiceStatusPaid
		invoice.UpdatedAt = now
		s.metrics.IncInvoice("paid")
		return invoice, nil
	}

	account, err := s.accounts.FindByMemberID(ctx, s.db, invoice.MemberID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if account == nil || account.ProviderCustomerID == nil || strings.TrimSpace(*account.ProviderCustomerID) == "" {
		if _, err := s.repo.MarkInvoiceFailed(ctx, s.db, invoice.ID, reasonNoCustomer, now); err != nil {
			return domain.Invoice{}, err
		}
		invoice.Status = domain.InvoiceStatusFailed
		reason := reasonNoCustomer
		invoice.FailureReason = &reason
		s.metrics.IncInvoice("failed")
		return invoice, nil
	}

	cfg := s.billingCfg.Get()
	captureCtx, cancel := context.WithTimeout(ctx, cfg.CaptureTimeout)
	defer cancel()

	description := fmt.Sprintf("Flight time invoice %s (retry)", invoice.ID.String())
	charge, err := s.provider.ChargeCustomer(captureCtx, *account.ProviderCustomerID, invoice.TotalCents, invoice.Currency, description)
	if err != nil {
		reason := err.Error()
		if _, ferr := s.repo.MarkInvoiceFailed(ctx, s.db, invoice.ID, reason, s.clock.Now()); ferr != nil {
			return domain.Invoice{}, ferr
		}
		invoice.Status = domain.InvoiceStatusFailed
		invoice.FailureReason = &reason
		s.metrics.IncInvoice("failed")
		return invoice, nil
	}

	if _, err := s.repo.MarkInvoicePaid(ctx, s.db, invoice.ID, &charge.ProviderChargeID, s.clock.Now()); err != nil {
		return domain.Invoice{}, err
	}
	invoice.Status = domain.InvoiceStatusPaid
	invoice.ProviderChargeID = &charge.ProviderChargeID
	s.metrics.IncInvoice("paid")
	s.metrics.AddCapturedCents(invoice.TotalCents)
	return invoice, nil
}

func (s *Service) MarkAbandonedRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := s.clock.Now()
	swept, err := s.repo.MarkRunsAbandoned(ctx, s.db, now.Add(-olderThan), now)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		s.log.Warn("stale billing runs abandoned", zap.Int64("count", swept))
		for i := int64(0); i < swept; i++ {
			s.metrics.IncBillingRun("abandoned")
		}
	}
	return swept, nil
}

func (s *Service) requireAdmin(ctx context.Context) error {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok || actor.MemberID == 0 {
		return clubdomain.ErrNotMember
	}
	_, err := s.clubs.RequireAdmin(ctx, actor.MemberID)
	return err
}

func (s *Service) tailNumbers(ctx context.Context, clubID snowflake.ID) (map[snowflake.ID]string, error) {
	fleet, err := s.aircraft.List(ctx, s.db, clubID)
	if err != nil {
		return nil, err
	}
	tails := make(map[snowflake.ID]string, len(fleet))
	for _, a := range fleet {
		tails[a.ID] = a.TailNumber
	}
	return tails, nil
}

// groupByMember preserves first-seen member order so run results are stable.
func groupByMember(records []flightdomain.FlightRecord) ([]snowflake.ID, map[snowflake.ID][]flightdomain.FlightRecord) {
	order := make([]snowflake.ID, 0)
	grouped := make(map[snowflake.ID][]flightdomain.FlightRecord)
	for _, rec := range records {
		if _, seen := grouped[rec.MemberID]; !seen {
			order = append(order, rec.MemberID)
		}
		grouped[rec.MemberID] = append(grouped[rec.MemberID], rec)
	}
	return order, grouped
}

func itemDescription(rec flightdomain.FlightRecord, tails map[snowflake.ID]string) string {
	tail := tails[rec.AircraftID]
	if tail == "" {
		tail = rec.AircraftID.String()
	}
	day := rec.StartedAt.Format("2006-01-02")
	if rec.EndedAt != nil {
		day = rec.EndedAt.Format("2006-01-02")
	}
	hours := aircraftdomain.MeterReading(rec.ElapsedTenths).String()
	return fmt.Sprintf("%s %s %sh", tail, day, hours)
}
