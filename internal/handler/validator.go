package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// newValidator registers the decimal_gt and decimal_gte tags used by the
// request DTOs; the built-in numeric comparisons do not understand
// decimal.Decimal and money must never round-trip through float64.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("decimal_gt", decimalGT)
	_ = v.RegisterValidation("decimal_gte", decimalGTE)
	return v
}

func decimalGT(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(decimal.Decimal)
	if !ok {
		return false
	}
	bound, err := decimal.NewFromString(fl.Param())
	if err != nil {
		return false
	}
	return value.GreaterThan(bound)
}

func decimalGTE(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(decimal.Decimal)
	if !ok {
		return false
	}
	bound, err := decimal.NewFromString(fl.Param())
	if err != nil {
		return false
	}
	return value.GreaterThanOrEqual(bound)
}
