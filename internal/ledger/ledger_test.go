package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/money"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestReceiptLineTotal(t *testing.T) {
	tests := []struct {
		name     string
		quantity int64
		amount   string
		vat      string
		rate     string
		want     string
	}{
		{name: "documented vat example", quantity: 1, amount: "1000", vat: "6.2", rate: "1", want: "1062"},
		{name: "full vat", quantity: 1, amount: "1000", vat: "100", rate: "1", want: "2000"},
		{name: "no vat", quantity: 3, amount: "19.99", vat: "0", rate: "1", want: "59.97"},
		{name: "exchange rate", quantity: 2, amount: "10", vat: "0", rate: "1.5", want: "30"},
		{name: "half rounds away from zero", quantity: 1, amount: "0.05", vat: "10", rate: "1", want: "0.06"},
		{name: "vat and rate", quantity: 4, amount: "12.34", vat: "5.5", rate: "0.9123", want: "47.51"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReceiptLineTotal(tt.quantity, money.MustParse(tt.amount), dec(tt.vat), dec(tt.rate), 2)
			require.NoError(t, err)
			assert.True(t, got.Equal(money.MustParse(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestReceiptLineTotal_NoDriftWithoutVAT(t *testing.T) {
	amounts := []string{"0.1", "0.2", "0.3", "2.20", "19.99", "1234.56", "0.01"}
	for _, a := range amounts {
		for q := int64(1); q <= 25; q++ {
			got, err := ReceiptLineTotal(q, money.MustParse(a), decimal.Zero, decimal.NewFromInt(1), 2)
			require.NoError(t, err)
			assert.True(t, got.Equal(money.MustParse(a).Mul(q)), "%d * %s", q, a)
		}
	}
}

func TestReceiptLineTotal_Validation(t *testing.T) {
	tests := []struct {
		name     string
		quantity int64
		vat      string
		rate     string
		field    string
	}{
		{name: "zero quantity", quantity: 0, vat: "0", rate: "1", field: "quantity"},
		{name: "negative quantity", quantity: -1, vat: "0", rate: "1", field: "quantity"},
		{name: "vat above 100", quantity: 1, vat: "100.5", rate: "1", field: "vat_rate"},
		{name: "negative vat", quantity: 1, vat: "-1", rate: "1", field: "vat_rate"},
		{name: "zero rate", quantity: 1, vat: "0", rate: "0", field: "exchange_rate"},
		{name: "negative rate", quantity: 1, vat: "0", rate: "-1.2", field: "exchange_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReceiptLineTotal(tt.quantity, money.FromInt(10), dec(tt.vat), dec(tt.rate), 2)

			var verr *model.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestOrderStatus(t *testing.T) {
	const (
		a = model.OrderLineApproved
		r = model.OrderLineReceived
		c = model.OrderLineCancelled
	)

	tests := []struct {
		name  string
		lines []model.OrderLineStatus
		want  model.OrderStatus
	}{
		{name: "no lines", lines: nil, want: model.OrderStatusPending},
		{name: "all approved", lines: []model.OrderLineStatus{a, a}, want: model.OrderStatusPending},
		{name: "one received", lines: []model.OrderLineStatus{r, a}, want: model.OrderStatusPartiallyReceived},
		{name: "all received", lines: []model.OrderLineStatus{r, r}, want: model.OrderStatusReceived},
		{name: "all cancelled", lines: []model.OrderLineStatus{c, c}, want: model.OrderStatusCancelled},
		{name: "received and cancelled", lines: []model.OrderLineStatus{r, c}, want: model.OrderStatusReceived},
		{name: "approved and cancelled", lines: []model.OrderLineStatus{a, c}, want: model.OrderStatusPending},
		{name: "mixed", lines: []model.OrderLineStatus{a, r, c}, want: model.OrderStatusPartiallyReceived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OrderStatus(tt.lines))
		})
	}
}

func TestOrderStatus_Idempotent(t *testing.T) {
	lines := []*model.OrderLine{
		{Status: model.OrderLineReceived},
		{Status: model.OrderLineApproved},
	}
	first := StatusOfLines(lines)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, StatusOfLines(lines))
	}
}

func TestBalance(t *testing.T) {
	lines := []*model.OrderLine{
		{Quantity: 1, UnitPrice: money.FromInt(400), Status: model.OrderLineApproved},
		{Quantity: 1, ReceivedQuantity: 1, UnitPrice: money.FromInt(300), Status: model.OrderLineReceived},
		{Quantity: 2, UnitPrice: money.FromInt(50), Status: model.OrderLineCancelled},
	}
	receiptLines := []*model.ReceiptLine{
		{Quantity: 1, Amount: money.FromInt(300), VATRate: decimal.Zero, ExchangeRate: decimal.NewFromInt(1)},
	}

	b, err := Balance(money.FromInt(1000), lines, receiptLines, 2)
	require.NoError(t, err)

	assert.True(t, b.Allocated.Equal(money.FromInt(1000)))
	assert.True(t, b.Encumbrance.Equal(money.FromInt(400)))
	assert.True(t, b.Expenditure.Equal(money.FromInt(300)))
	assert.True(t, b.Available.Equal(money.FromInt(300)))

	again, err := Balance(money.FromInt(1000), lines, receiptLines, 2)
	require.NoError(t, err)
	assert.Equal(t, b, again)
}

func TestBalance_PartialReceiptMovesToExpenditure(t *testing.T) {
	lines := []*model.OrderLine{
		{Quantity: 4, ReceivedQuantity: 1, UnitPrice: money.FromInt(25), Status: model.OrderLineApproved},
	}
	receiptLines := []*model.ReceiptLine{
		{Quantity: 1, Amount: money.FromInt(25), VATRate: decimal.Zero, ExchangeRate: decimal.NewFromInt(1)},
	}

	b, err := Balance(money.FromInt(100), lines, receiptLines, 2)
	require.NoError(t, err)
	assert.True(t, b.Encumbrance.Equal(money.FromInt(75)))
	assert.True(t, b.Expenditure.Equal(money.FromInt(25)))
	assert.True(t, b.Available.IsZero())
}

func TestSubtree(t *testing.T) {
	tree := map[string][]string{
		"root": {"a", "b"},
		"a":    {"a1"},
		"a1":   {"a2"},
		"a2":   {"root"},
	}

	ids, err := Subtree("root", func(id string) ([]string, error) { return tree[id], nil })
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"root", "a", "b", "a1", "a2"}, ids)

	_, err = Subtree("root", func(string) ([]string, error) { return nil, errors.New("store down") })
	require.Error(t, err)
}
