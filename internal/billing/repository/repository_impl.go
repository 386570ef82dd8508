package repository

import (
	"context"
	"time"

	"github.com/airfieldhq/clubops/internal/billing/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const runColumns = `id, club_id, status, started_at, completed_at, total_billed_cents,
	 success_count, failure_count, details, created_at, updated_at`

const invoiceColumns = `id, club_id, member_id, billing_run_id, status, subtotal_cents,
	 credit_applied_cents, total_cents, currency, provider_charge_id, failure_reason,
	 created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertRun(ctx context.Context, db *gorm.DB, run *domain.BillingRun) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO billing_runs (id, club_id, status, started_at, completed_at, total_billed_cents,
		 success_count, failure_count, details, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.ClubID,
		run.Status,
		run.StartedAt,
		run.CompletedAt,
		run.TotalBilledCents,
		run.SuccessCount,
		run.FailureCount,
		run.Details,
		run.CreatedAt,
		run.UpdatedAt,
	).Error
}

func (r *repo) FindRunByID(ctx context.Context, db *gorm.DB, clubID, id snowflake.ID) (*domain.BillingRun, error) {
	var run domain.BillingRun
	err := db.WithContext(ctx).Raw(
		`SELECT `+runColumns+` FROM billing_runs WHERE club_id = ? AND id = ?`,
		clubID,
		id,
	).Scan(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == 0 {
		return nil, nil
	}
	return &run, nil
}

func (r *repo) ListRuns(ctx context.Context, db *gorm.DB, clubID snowflake.ID) ([]domain.BillingRun, error) {
	var runs []domain.BillingRun
	err := db.WithContext(ctx).Raw(
		`SELECT `+runColumns+` FROM billing_runs WHERE club_id = ? ORDER BY started_at DESC`,
		clubID,
	).Scan(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *repo) CompleteRun(ctx context.Context, db *gorm.DB, id snowflake.ID, completedAt time.Time, totalBilledCents int64, successCount, failureCount int, details datatypes.JSON) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE billing_runs
		 SET status = ?, completed_at = ?, total_billed_cents = ?, success_count = ?, failure_count = ?, details = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.RunStatusCompleted,
		completedAt,
		totalBilledCents,
		successCount,
		failureCount,
		details,
		completedAt,
		id,
		domain.RunStatusRunning,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) AbandonRun(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE billing_runs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		domain.RunStatusAbandoned,
		now,
		id,
		domain.RunStatusRunning,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkRunsAbandoned(ctx context.Context, db *gorm.DB, cutoff, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE billing_runs SET status = ?, updated_at = ? WHERE status = ? AND started_at < ?`,
		domain.RunStatusAbandoned,
		now,
		domain.RunStatusRunning,
		cutoff,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) InsertInvoice(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (id, club_id, member_id, billing_run_id, status, subtotal_cents,
		 credit_applied_cents, total_cents, currency, provider_charge_id, failure_reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.ClubID,
		invoice.MemberID,
		invoice.BillingRunID,
		invoice.Status,
		invoice.SubtotalCents,
		invoice.CreditAppliedCents,
		invoice.TotalCents,
		invoice.Currency,
		invoice.ProviderChargeID,
		invoice.FailureReason,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.InvoiceItem) error {
	for i := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO invoice_items (id, invoice_id, flight_record_id, description, amount_cents, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			items[i].ID,
			items[i].InvoiceID,
			items[i].FlightRecordID,
			items[i].Description,
			items[i].AmountCents,
			items[i].CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindInvoiceByID(ctx context.Context, db *gorm.DB, clubID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices WHERE club_id = ? AND id = ?`,
		clubID,
		id,
	).Scan(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) ListInvoices(ctx context.Context, db *gorm.DB, clubID, afterID snowflake.ID, limit int) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE club_id = ? AND (? = 0 OR id < ?)
		 ORDER BY id DESC LIMIT ?`,
		clubID,
		afterID,
		afterID,
		limit,
	).Scan(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.InvoiceItem, error) {
	var items []domain.InvoiceItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_id, flight_record_id, description, amount_cents, created_at
		 FROM invoice_items WHERE invoice_id = ? ORDER BY id`,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkInvoicePaid(ctx context.Context, db *gorm.DB, id snowflake.ID, chargeID *string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, provider_charge_id = ?, updated_at = ? WHERE id = ? AND status = ?`,
		domain.InvoiceStatusPaid,
		chargeID,
		now,
		id,
		domain.InvoiceStatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkInvoiceFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, failure_reason = ?, updated_at = ? WHERE id = ? AND status = ?`,
		domain.InvoiceStatusFailed,
		reason,
		now,
		id,
		domain.InvoiceStatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
