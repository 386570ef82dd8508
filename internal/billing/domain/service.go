package domain

import (
	"context"
	"errors"
	"time"

	"github.com/airfieldhq/clubops/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
)

// RunResult is what a completed cycle returns to its caller.
type RunResult struct {
	Run     BillingRun     `json:"run"`
	Members []MemberResult `json:"members"`
}

// InvoiceDetail is an invoice with its line items.
type InvoiceDetail struct {
	Invoice Invoice       `json:"invoice"`
	Items   []InvoiceItem `json:"items"`
}

type Service interface {
	// RunCycle aggregates the context club's unbilled flights, invoices
	// each member and captures payment. Admin only.
	RunCycle(ctx context.Context) (RunResult, error)

	// RunCycleForClub is RunCycle without actor authorization; the
	// scheduler calls it on behalf of auto-billing clubs.
	RunCycleForClub(ctx context.Context, clubID snowflake.ID) (RunResult, error)

	GetRun(ctx context.Context, id string) (BillingRun, error)
	ListRuns(ctx context.Context) ([]BillingRun, error)

	ListInvoices(ctx context.Context, page pagination.Pagination) ([]Invoice, pagination.PageInfo, error)
	GetInvoice(ctx context.Context, id string) (InvoiceDetail, error)

	// RetryInvoice re-captures a PENDING invoice left behind by a crash
	// between aggregation and capture. Admin only.
	RetryInvoice(ctx context.Context, id string) (Invoice, error)

	// MarkAbandonedRuns sweeps RUNNING runs older than the threshold.
	MarkAbandonedRuns(ctx context.Context, olderThan time.Duration) (int64, error)
}

var (
	ErrRunInProgress     = errors.New("billing_run_in_progress")
	ErrRunNotFound       = errors.New("billing_run_not_found")
	ErrInvoiceNotFound   = errors.New("invoice_not_found")
	ErrInvalidRunID      = errors.New("invalid_billing_run_id")
	ErrInvalidInvoiceID  = errors.New("invalid_invoice_id")
	ErrInvoiceNotPending = errors.New("invoice_not_pending")
)
