package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus uses the integer codes the schema defines rather than free-form
// strings, so the database and the API agree on one representation.
type LoanStatus int16

const (
	LoanStatusPending  LoanStatus = 1
	LoanStatusActive   LoanStatus = 2
	LoanStatusRejected LoanStatus = 3
	LoanStatusPaid     LoanStatus = 4
)

func (s LoanStatus) String() string {
	switch s {
	case LoanStatusPending:
		return "pending"
	case LoanStatusActive:
		return "active"
	case LoanStatusRejected:
		return "rejected"
	case LoanStatusPaid:
		return "paid"
	}
	return "unknown"
}

// Loan is drawn against a customer's credit line. Outstanding starts at the
// principal amount and only the payment allocator may reduce it; taken_at is
// stamped exactly once, on activation.
type Loan struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	ExternalID         string          `json:"external_id" db:"external_id"`
	CustomerID         uuid.UUID       `json:"customer_id" db:"customer_id"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	Outstanding        decimal.Decimal `json:"outstanding" db:"outstanding"`
	ContractVersion    string          `json:"contract_version,omitempty" db:"contract_version"`
	Status             LoanStatus      `json:"status" db:"status"`
	TakenAt            *time.Time      `json:"taken_at,omitempty" db:"taken_at"`
	MaximumPaymentDate *time.Time      `json:"maximum_payment_date,omitempty" db:"maximum_payment_date"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

func (l *Loan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	ExternalID         string          `json:"external_id" validate:"required,max=60"`
	CustomerExternalID string          `json:"customer_external_id" validate:"required"`
	Amount             decimal.Decimal `json:"amount" validate:"decimal_gt=0"`
	ContractVersion    string          `json:"contract_version,omitempty" validate:"max=30"`
	MaximumPaymentDate *time.Time      `json:"maximum_payment_date,omitempty"`
}

type CreateLoanResponse struct {
	Loan               *Loan  `json:"loan"`
	CustomerExternalID string `json:"customer_external_id"`
}

type ActivateLoanRequest struct {
	ExternalID string `json:"external_id" validate:"required"`
}
