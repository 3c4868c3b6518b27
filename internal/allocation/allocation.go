// Package allocation implements the payment allocation engine: distributing
// one payment across a customer's active loans, oldest debt first. It is a
// pure computation over a snapshot the caller supplies; nothing here reads or
// writes storage.
package allocation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kredia/credit-engine/internal/domain"
	customError "github.com/kredia/credit-engine/pkg/errors"
)

// Entry is one planned application of money to a loan.
type Entry struct {
	Loan   *domain.Loan
	Amount decimal.Decimal
}

// Plan is the settlement plan for a single payment: ordered entries, loans
// encountered but skipped, and whatever portion of the payment could not be
// placed.
type Plan struct {
	Entries  []Entry
	Skipped  []*domain.Loan
	Residual decimal.Decimal
}

// Overfunded reports whether the payment exceeds what the plan could apply.
func (p *Plan) Overfunded() bool {
	return p.Residual.IsPositive()
}

// Allocated returns the sum of the plan's entry amounts.
func (p *Plan) Allocated() decimal.Decimal {
	total := decimal.Zero
	for _, e := range p.Entries {
		total = total.Add(e.Amount)
	}
	return total
}

// Allocate walks the candidate loans and greedily applies min(outstanding,
// residual) to each until the payment is exhausted. Candidates must already
// be ordered by creation time ascending; the first-in-first-settled policy
// keeps the allocation deterministic when a payment only partially covers
// total debt. Candidates that are no longer active are recorded as skipped
// and left untouched. Loans are not mutated; Apply does that.
func Allocate(amount decimal.Decimal, candidates []*domain.Loan) *Plan {
	plan := &Plan{Residual: amount}

	for _, loan := range candidates {
		if !plan.Residual.IsPositive() {
			break
		}

		if !loan.IsActive() {
			plan.Skipped = append(plan.Skipped, loan)
			continue
		}

		applied := decimal.Min(loan.Outstanding, plan.Residual)
		if !applied.IsPositive() {
			continue
		}

		plan.Entries = append(plan.Entries, Entry{Loan: loan, Amount: applied})
		plan.Residual = plan.Residual.Sub(applied)
	}

	return plan
}

// PlanFromEntries builds a plan from caller-specified per-loan amounts. Each
// entry must target an active loan, must not exceed that loan's outstanding
// balance, and the entries together must not exceed the payment total. The
// plan is applied as given; any shortfall against the total becomes residual.
func PlanFromEntries(total decimal.Decimal, entries []Entry) (*Plan, error) {
	seen := make(map[uuid.UUID]bool, len(entries))
	allocated := decimal.Zero

	for _, e := range entries {
		if seen[e.Loan.ID] {
			return nil, customError.WrapInvalidPaymentPlan(
				fmt.Sprintf("loan %s appears more than once in the plan", e.Loan.ExternalID))
		}
		seen[e.Loan.ID] = true

		if !e.Loan.IsActive() {
			return nil, customError.WrapInvalidPaymentPlan(
				fmt.Sprintf("loan %s is not active", e.Loan.ExternalID))
		}
		if !e.Amount.IsPositive() {
			return nil, customError.WrapInvalidPaymentPlan(
				fmt.Sprintf("amount for loan %s must be positive", e.Loan.ExternalID))
		}
		if e.Amount.GreaterThan(e.Loan.Outstanding) {
			return nil, customError.WrapInvalidPaymentPlan(
				fmt.Sprintf("amount for loan %s exceeds its outstanding balance", e.Loan.ExternalID))
		}

		allocated = allocated.Add(e.Amount)
	}

	if allocated.GreaterThan(total) {
		return nil, customError.WrapInvalidPaymentPlan("plan amounts exceed the payment total")
	}

	return &Plan{Entries: entries, Residual: total.Sub(allocated)}, nil
}

// Apply executes one settlement entry: the only place a loan's outstanding
// balance and status are mutated. The loan's outstanding drops by the entry
// amount and the loan transitions to paid when it reaches exactly zero. The
// returned detail row records the application.
func Apply(payment *domain.Payment, e Entry, now time.Time) *domain.PaymentDetail {
	e.Loan.Outstanding = e.Loan.Outstanding.Sub(e.Amount)
	e.Loan.UpdatedAt = now

	if e.Loan.Outstanding.IsZero() {
		e.Loan.Status = domain.LoanStatusPaid
	}

	return &domain.PaymentDetail{
		ID:        uuid.New(),
		PaymentID: payment.ID,
		LoanID:    e.Loan.ID,
		Amount:    e.Amount,
		CreatedAt: now,
	}
}
