// Package validation содержит проверки входных данных, выполняемые перед записью.
package validation

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/money"
)

// ValidateDecimal проверяет, что значение кратно шагу 10^-precision.
// Значение сдвигается на precision знаков, округляется до ещё одного знака
// и должно оказаться целым.
func ValidateDecimal(field string, value decimal.Decimal, precision int32) error {
	shifted := value.Shift(precision).Round(1)
	if !shifted.Equal(shifted.Truncate(0)) {
		return model.NewValidationError(field, "must be a multiple of %s", money.Granularity(precision).String())
	}
	return nil
}

// ValidateMoney применяет ValidateDecimal к денежной сумме.
func ValidateMoney(field string, value money.Money, precision int32) error {
	return ValidateDecimal(field, value.Decimal(), precision)
}
