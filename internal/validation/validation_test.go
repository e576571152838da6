package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/money"
)

func TestValidateDecimal(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		precision int32
		valid     bool
	}{
		{name: "exact precision", value: "123.45", precision: 2, valid: true},
		{name: "too many decimals", value: "123.456", precision: 2, valid: false},
		{name: "fewer decimals", value: "123.4", precision: 2, valid: true},
		{name: "trailing zero", value: "2.20", precision: 2, valid: true},
		{name: "integer", value: "1000", precision: 2, valid: true},
		{name: "zero precision", value: "10.5", precision: 0, valid: false},
		{name: "negative value", value: "-0.01", precision: 2, valid: true},
		{name: "three decimals rule", value: "0.125", precision: 3, valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDecimal("amount", decimal.RequireFromString(tt.value), tt.precision)
			if tt.valid {
				assert.NoError(t, err)
				return
			}

			var verr *model.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "amount", verr.Field)
			assert.Contains(t, verr.Message, money.Granularity(tt.precision).String())
		})
	}
}

func TestRun_StopsAtFirstError(t *testing.T) {
	calls := 0
	count := func(err error) Rule {
		return func() error {
			calls++
			return err
		}
	}

	err := Run(count(nil), count(errors.New("boom")), count(nil))
	require.EqualError(t, err, "boom")
	assert.Equal(t, 2, calls)
}

func TestRules(t *testing.T) {
	assert.Error(t, Positive("quantity", 0)())
	assert.NoError(t, Positive("quantity", 1)())

	assert.Error(t, NonNegative("allocated", money.MustParse("-1"))())
	assert.NoError(t, NonNegative("allocated", money.Zero())())

	assert.NoError(t, Percentage("vat_rate", decimal.Zero)())
	assert.NoError(t, Percentage("vat_rate", decimal.NewFromInt(100))())
	assert.Error(t, Percentage("vat_rate", decimal.RequireFromString("100.01"))())
	assert.Error(t, Percentage("vat_rate", decimal.NewFromInt(-1))())

	assert.Error(t, StrictlyPositive("exchange_rate", decimal.Zero)())
	assert.Error(t, StrictlyPositive("exchange_rate", decimal.NewFromInt(-2))())
	assert.NoError(t, StrictlyPositive("exchange_rate", decimal.RequireFromString("0.93"))())

	assert.NoError(t, Money("amount", money.MustParse("9.99"), 2)())
	assert.Error(t, Money("amount", money.MustParse("9.999"), 2)())
}

func TestNotes(t *testing.T) {
	ok := []model.Note{{Type: model.NoteStaff, Content: "checked"}, {Type: model.NoteVendor, Content: "late"}}
	assert.NoError(t, Notes("notes", ok)())

	dup := []model.Note{{Type: model.NoteStaff, Content: "a"}, {Type: model.NoteStaff, Content: "b"}}
	assert.Error(t, Notes("notes", dup)())

	unknown := []model.Note{{Type: "private", Content: "a"}}
	assert.Error(t, Notes("notes", unknown)())

	empty := []model.Note{{Type: model.NoteReceipt, Content: "  "}}
	assert.Error(t, Notes("notes", empty)())
}

func TestStruct(t *testing.T) {
	type input struct {
		Name      string `json:"name" validate:"required"`
		LibraryID string `json:"library_id" validate:"required"`
	}

	err := Struct(&input{Name: "books"})()

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "library_id", verr.Field)

	assert.NoError(t, Struct(&input{Name: "books", LibraryID: "lib1"})())
}
