package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CustomerStatus int16

const (
	CustomerStatusActive   CustomerStatus = 1
	CustomerStatusInactive CustomerStatus = 2
)

// Customer holds a credit line. Score is the credit limit; the sum of
// outstanding debt across the customer's open loans may never exceed it.
type Customer struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	ExternalID    string          `json:"external_id" db:"external_id"`
	Status        CustomerStatus  `json:"status" db:"status"`
	Score         decimal.Decimal `json:"score" db:"score"`
	PreapprovedAt *time.Time      `json:"preapproved_at,omitempty" db:"preapproved_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// DTOs for requests and responses

type CreateCustomerRequest struct {
	ExternalID string          `json:"external_id" validate:"required,max=60"`
	Score      decimal.Decimal `json:"score" validate:"decimal_gte=0"`
}

type CustomerBalance struct {
	ExternalID      string          `json:"external_id"`
	Score           decimal.Decimal `json:"score"`
	TotalDebt       decimal.Decimal `json:"total_debt"`
	AvailableAmount decimal.Decimal `json:"available_amount"`
}
