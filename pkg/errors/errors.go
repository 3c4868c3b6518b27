package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrCustomerAlreadyExists = errors.New("customer already exists")
	ErrLoanNotFound          = errors.New("loan not found")
	ErrLoanAlreadyExists     = errors.New("loan already exists")
	ErrLoanNotPending        = errors.New("loan is not pending activation")
	ErrCreditLimitExceeded   = errors.New("loan amount exceeds customer's credit limit")
	ErrNoActiveLoans         = errors.New("customer has no active loans")
	ErrPaymentExceedsDebt    = errors.New("payment amount exceeds customer's total debt")
	ErrInvalidPaymentAmount  = errors.New("payment amount must be positive")
	ErrInvalidPaymentPlan    = errors.New("invalid payment plan")
	ErrConcurrencyConflict   = errors.New("another payment for this customer is in progress")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeCustomerNotFound      = "CUSTOMER_NOT_FOUND"
	ErrCodeCustomerAlreadyExists = "CUSTOMER_ALREADY_EXISTS"
	ErrCodeLoanNotFound          = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyExists     = "LOAN_ALREADY_EXISTS"
	ErrCodeLoanNotPending        = "LOAN_NOT_PENDING"
	ErrCodeCreditLimitExceeded   = "CREDIT_LIMIT_EXCEEDED"
	ErrCodeNoActiveLoans         = "NO_ACTIVE_LOANS"
	ErrCodePaymentExceedsDebt    = "PAYMENT_EXCEEDS_DEBT"
	ErrCodeInvalidPaymentAmount  = "INVALID_PAYMENT_AMOUNT"
	ErrCodeInvalidPaymentPlan    = "INVALID_PAYMENT_PLAN"
	ErrCodeConcurrencyConflict   = "CONCURRENCY_CONFLICT"
	ErrCodeDatabaseError         = "DATABASE_ERROR"
	ErrCodeCacheError            = "CACHE_ERROR"
)

// Wrap common errors with business context
func WrapCustomerNotFound(externalID string) *BusinessError {
	return NewBusinessError(
		ErrCodeCustomerNotFound,
		fmt.Sprintf("Customer with external ID %s not found", externalID),
		ErrCustomerNotFound,
	)
}

func WrapCustomerAlreadyExists(externalID string) *BusinessError {
	return NewBusinessError(
		ErrCodeCustomerAlreadyExists,
		fmt.Sprintf("Customer with external ID %s already exists", externalID),
		ErrCustomerAlreadyExists,
	)
}

func WrapLoanNotFound(externalID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with external ID %s not found", externalID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyExists(externalID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyExists,
		fmt.Sprintf("Loan with external ID %s already exists", externalID),
		ErrLoanAlreadyExists,
	)
}

func WrapLoanNotPending(externalID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotPending,
		fmt.Sprintf("Loan with external ID %s is not pending activation", externalID),
		ErrLoanNotPending,
	)
}

func WrapCreditLimitExceeded(externalID string) *BusinessError {
	return NewBusinessError(
		ErrCodeCreditLimitExceeded,
		fmt.Sprintf("Loan amount exceeds credit limit for customer %s", externalID),
		ErrCreditLimitExceeded,
	)
}

func WrapNoActiveLoans(externalID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoActiveLoans,
		fmt.Sprintf("Customer %s has no active loans to settle", externalID),
		ErrNoActiveLoans,
	)
}

func WrapPaymentExceedsDebt(amount, debt string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentExceedsDebt,
		fmt.Sprintf("Payment amount %s exceeds total outstanding debt %s", amount, debt),
		ErrPaymentExceedsDebt,
	)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapInvalidPaymentPlan(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentPlan,
		reason,
		ErrInvalidPaymentPlan,
	)
}

func WrapConcurrencyConflict(externalID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConcurrencyConflict,
		fmt.Sprintf("A payment for customer %s is already being processed", externalID),
		ErrConcurrencyConflict,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}
