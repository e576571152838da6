// Package money содержит денежный тип с фиксированной точностью.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultPrecision задаёт количество знаков после запятой по умолчанию.
const DefaultPrecision int32 = 2

// Money представляет денежную сумму в десятичном виде без потерь точности.
type Money struct {
	d decimal.Decimal
}

// New создаёт сумму из десятичного значения.
func New(d decimal.Decimal) Money {
	return Money{d: d}
}

// FromInt создаёт сумму из целого количества основных единиц.
func FromInt(v int64) Money {
	return Money{d: decimal.NewFromInt(v)}
}

// Parse разбирает строковое представление суммы, например "123.45".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	return Money{d: d}, nil
}

// MustParse аналогичен Parse, но паникует при ошибке. Используется в тестах и константах.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero возвращает нулевую сумму.
func Zero() Money {
	return Money{d: decimal.Zero}
}

// Decimal возвращает значение суммы.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// Add возвращает сумму m и other.
func (m Money) Add(other Money) Money {
	return Money{d: m.d.Add(other.d)}
}

// Sub возвращает разность m и other.
func (m Money) Sub(other Money) Money {
	return Money{d: m.d.Sub(other.d)}
}

// Mul умножает сумму на количество единиц.
func (m Money) Mul(qty int64) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(qty))}
}

// MulRate умножает сумму на произвольный десятичный коэффициент (ставку, курс).
func (m Money) MulRate(rate decimal.Decimal) Money {
	return Money{d: m.d.Mul(rate)}
}

// Neg возвращает сумму с противоположным знаком.
func (m Money) Neg() Money {
	return Money{d: m.d.Neg()}
}

// Round округляет сумму до precision знаков, половина округляется от нуля.
func (m Money) Round(precision int32) Money {
	return Money{d: m.d.Round(precision)}
}

// IsZero сообщает, что сумма равна нулю.
func (m Money) IsZero() bool { return m.d.IsZero() }

// IsNegative сообщает, что сумма меньше нуля.
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// IsPositive сообщает, что сумма больше нуля.
func (m Money) IsPositive() bool { return m.d.IsPositive() }

// Cmp сравнивает суммы: -1, 0 или 1.
func (m Money) Cmp(other Money) int {
	return m.d.Cmp(other.d)
}

// Equal сравнивает суммы по значению, без учёта количества хранимых знаков.
func (m Money) Equal(other Money) bool {
	return m.d.Equal(other.d)
}

// LessThan сообщает, что m меньше other.
func (m Money) LessThan(other Money) bool {
	return m.d.LessThan(other.d)
}

// String возвращает сумму в каноническом десятичном виде.
func (m Money) String() string {
	return m.d.String()
}

// StringFixed возвращает сумму ровно с precision знаками после запятой.
func (m Money) StringFixed(precision int32) string {
	return m.d.StringFixed(precision)
}

// MarshalJSON сериализует сумму строкой, чтобы не терять точность в клиентах.
func (m Money) MarshalJSON() ([]byte, error) {
	return m.d.MarshalJSON()
}

// UnmarshalJSON принимает как строку, так и число JSON.
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.d.UnmarshalJSON(data)
}

// Sum складывает произвольное количество сумм.
func Sum(values ...Money) Money {
	total := Zero()
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Granularity возвращает минимальный шаг суммы для точности precision, например 0.01.
func Granularity(precision int32) decimal.Decimal {
	return decimal.New(1, -precision)
}
