package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertRun creates the RUNNING row. A partial unique index on
	// (club_id) WHERE status = 'RUNNING' makes a second concurrent run
	// fail with a duplicate-key error.
	InsertRun(ctx context.Context, db *gorm.DB, run *BillingRun) error
	FindRunByID(ctx context.Context, db *gorm.DB, clubID, id snowflake.ID) (*BillingRun, error)
	ListRuns(ctx context.Context, db *gorm.DB, clubID snowflake.ID) ([]BillingRun, error)

	// CompleteRun transitions RUNNING -> COMPLETED with the final tallies.
	// False means the run was no longer RUNNING (swept as stale).
	CompleteRun(ctx context.Context, db *gorm.DB, id snowflake.ID, completedAt time.Time, totalBilledCents int64, successCount, failureCount int, details datatypes.JSON) (bool, error)

	// AbandonRun transitions RUNNING -> ABANDONED for a run whose
	// bootstrap failed before any member was processed.
	AbandonRun(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (bool, error)

	// MarkRunsAbandoned sweeps RUNNING runs started before cutoff.
	MarkRunsAbandoned(ctx context.Context, db *gorm.DB, cutoff, now time.Time) (int64, error)

	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	InsertItems(ctx context.Context, db *gorm.DB, items []InvoiceItem) error
	FindInvoiceByID(ctx context.Context, db *gorm.DB, clubID, id snowflake.ID) (*Invoice, error)
	// ListInvoices pages the club's invoices newest-first. A non-zero
	// afterID is the exclusive keyset lower bound.
	ListInvoices(ctx context.Context, db *gorm.DB, clubID, afterID snowflake.ID, limit int) ([]Invoice, error)
	ListItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]InvoiceItem, error)

	// MarkInvoicePaid and MarkInvoiceFailed are guarded on status =
	// 'PENDING' so a capture outcome never overwrites a final state.
	MarkInvoicePaid(ctx context.Context, db *gorm.DB, id snowflake.ID, chargeID *string, now time.Time) (bool, error)
	MarkInvoiceFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, reason string, now time.Time) (bool, error)
}
