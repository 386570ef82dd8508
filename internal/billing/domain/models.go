// Package domain holds the billing aggregator's records: runs, invoices and
// their line items. A flight record's billed flag, not any timestamp, decides
// whether a run picks it up.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// RunStatus is a billing run's lifecycle state. At most one RUNNING run may
// exist per club; a stale RUNNING run is swept to ABANDONED, never resumed.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusAbandoned RunStatus = "ABANDONED"
)

// InvoiceStatus is an invoice's payment state. PENDING invoices on a
// COMPLETED run are the capture crash window; they are retried, never
// re-aggregated.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusFailed  InvoiceStatus = "FAILED"
)

// BillingRun is one aggregation cycle over a club's unbilled flights.
// Details carries the per-member result snapshot for audit.
type BillingRun struct {
	ID               snowflake.ID   `json:"id" gorm:"primaryKey"`
	ClubID           snowflake.ID   `json:"club_id" gorm:"not null;index:ix_billing_runs_club"`
	Status           RunStatus      `json:"status" gorm:"type:text;not null"`
	StartedAt        time.Time      `json:"started_at" gorm:"not null"`
	CompletedAt      *time.Time     `json:"completed_at"`
	TotalBilledCents int64          `json:"total_billed_cents" gorm:"not null;default:0"`
	SuccessCount     int            `json:"success_count" gorm:"not null;default:0"`
	FailureCount     int            `json:"failure_count" gorm:"not null;default:0"`
	Details          datatypes.JSON `json:"details"`
	CreatedAt        time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingRun) TableName() string { return "billing_runs" }

// Invoice bills one member for the flights a run aggregated. TotalCents is
// the subtotal net of applied credit; a zero total is paid immediately
// without capture.
type Invoice struct {
	ID                 snowflake.ID  `json:"id" gorm:"primaryKey"`
	ClubID             snowflake.ID  `json:"club_id" gorm:"not null;index:ix_invoices_club"`
	MemberID           snowflake.ID  `json:"member_id" gorm:"not null;index:ix_invoices_member"`
	BillingRunID       snowflake.ID  `json:"billing_run_id" gorm:"not null;index:ix_invoices_run"`
	Status             InvoiceStatus `json:"status" gorm:"type:text;not null"`
	SubtotalCents      int64         `json:"subtotal_cents" gorm:"not null;default:0"`
	CreditAppliedCents int64         `json:"credit_applied_cents" gorm:"not null;default:0"`
	TotalCents         int64         `json:"total_cents" gorm:"not null;default:0"`
	Currency           string        `json:"currency" gorm:"type:text;not null;default:'usd'"`
	ProviderChargeID   *string       `json:"provider_charge_id" gorm:"type:text"`
	FailureReason      *string       `json:"failure_reason" gorm:"type:text"`
	CreatedAt          time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is one flight on an invoice.
type InvoiceItem struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	InvoiceID      snowflake.ID `json:"invoice_id" gorm:"not null;index:ix_invoice_items_invoice"`
	FlightRecordID snowflake.ID `json:"flight_record_id" gorm:"not null"`
	Description    string       `json:"description" gorm:"type:text;not null;default:''"`
	AmountCents    int64        `json:"amount_cents" gorm:"not null;default:0"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }

// MemberResult is one member's outcome within a run; the slice of these is
// persisted on the run as its Details snapshot and returned to the caller.
type MemberResult struct {
	MemberID           snowflake.ID `json:"member_id"`
	InvoiceID          snowflake.ID `json:"invoice_id,omitempty"`
	SubtotalCents      int64        `json:"subtotal_cents"`
	CreditAppliedCents int64        `json:"credit_applied_cents"`
	TotalCents         int64        `json:"total_cents"`
	Success            bool         `json:"success"`
	Error              string       `json:"error,omitempty"`
}
