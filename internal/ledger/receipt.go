// Package ledger содержит чистые вычисления бюджета комплектования:
// сумму позиции поставки, статус заказа и остаток счёта.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/money"
	"github.com/mmeshcher/acquisitions/internal/validation"
)

var hundred = decimal.NewFromInt(100)

// ReceiptLineTotal вычисляет фактическую сумму позиции поставки:
// quantity * amount * (1 + vat/100) * exchangeRate с округлением до precision знаков.
func ReceiptLineTotal(quantity int64, amount money.Money, vatRate, exchangeRate decimal.Decimal, precision int32) (money.Money, error) {
	err := validation.Run(
		validation.Positive("quantity", quantity),
		validation.Percentage("vat_rate", vatRate),
		validation.StrictlyPositive("exchange_rate", exchangeRate),
	)
	if err != nil {
		return money.Money{}, err
	}

	total := amount.Mul(quantity)
	total = total.MulRate(decimal.NewFromInt(1).Add(vatRate.Div(hundred)))
	total = total.MulRate(exchangeRate)

	return total.Round(precision), nil
}

// LineTotal вычисляет сумму сохранённой позиции поставки.
func LineTotal(line *model.ReceiptLine, precision int32) (money.Money, error) {
	return ReceiptLineTotal(line.Quantity, line.Amount, line.VATRate, line.ExchangeRate, precision)
}
