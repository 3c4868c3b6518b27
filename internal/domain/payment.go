package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus int16

const (
	PaymentStatusCompleted PaymentStatus = 1
	PaymentStatusRejected  PaymentStatus = 2
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentStatusCompleted:
		return "completed"
	case PaymentStatusRejected:
		return "rejected"
	}
	return "unknown"
}

// Payment is finalized exactly once at creation time: it ends up either
// completed (fully allocated across the customer's active loans) or rejected,
// and is immutable afterward.
type Payment struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	ExternalID  string          `json:"external_id" db:"external_id"`
	CustomerID  uuid.UUID       `json:"customer_id" db:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status      PaymentStatus   `json:"status" db:"status"`
	PaidAt      *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`

	// Loans this payment encountered but could not settle. Informational
	// only; the loans themselves are never altered by this payment.
	RejectedLoans []string `json:"rejected_loans,omitempty" db:"-"`

	Details []*PaymentDetail `json:"details,omitempty" db:"-"`
}

// PaymentDetail records one application of payment money to one loan. Rows
// are immutable; per payment their amounts sum to at most total_amount.
type PaymentDetail struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	PaymentID uuid.UUID       `json:"payment_id" db:"payment_id"`
	LoanID    uuid.UUID       `json:"loan_id" db:"loan_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// DTOs for requests and responses

// CreatePaymentRequest carries the engine-chosen mode when Details is empty;
// a non-empty Details list switches to caller-specified allocation, which is
// validated and applied as given.
type CreatePaymentRequest struct {
	ExternalID         string                 `json:"external_id" validate:"required,max=60"`
	CustomerExternalID string                 `json:"customer_external_id" validate:"required"`
	TotalAmount        decimal.Decimal        `json:"total_amount" validate:"decimal_gt=0"`
	Details            []PaymentDetailRequest `json:"details,omitempty" validate:"omitempty,dive"`
}

type PaymentDetailRequest struct {
	LoanExternalID string          `json:"loan_external_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
}

type PaymentDetailResult struct {
	LoanExternalID string          `json:"loan_external_id"`
	Amount         decimal.Decimal `json:"amount"`
	Outstanding    decimal.Decimal `json:"outstanding"`
}

type CreatePaymentResponse struct {
	Payment *Payment               `json:"payment"`
	Details []*PaymentDetailResult `json:"details"`
}
