package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/acquisitions/internal/money"
)

func TestOrderLineStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderLineStatus
		want     bool
	}{
		{OrderLineApproved, OrderLineReceived, true},
		{OrderLineApproved, OrderLineCancelled, true},
		{OrderLineApproved, OrderLineApproved, false},
		{OrderLineReceived, OrderLineApproved, false},
		{OrderLineReceived, OrderLineCancelled, false},
		{OrderLineCancelled, OrderLineApproved, false},
		{OrderLineCancelled, OrderLineReceived, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestBudget_Overlaps(t *testing.T) {
	day := func(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC) }

	year := &Budget{StartDate: day(1, 1), EndDate: day(12, 31)}
	h2 := &Budget{StartDate: day(7, 1), EndDate: day(12, 31)}
	next := &Budget{StartDate: day(12, 31).AddDate(0, 0, 1), EndDate: day(12, 31).AddDate(1, 0, 0)}

	assert.True(t, year.Overlaps(h2))
	assert.True(t, h2.Overlaps(year))
	assert.False(t, year.Overlaps(next))
}

func TestOrderLine_Amounts(t *testing.T) {
	l := &OrderLine{Quantity: 3, ReceivedQuantity: 1, UnitPrice: money.MustParse("12.50")}

	assert.True(t, l.Amount().Equal(money.MustParse("37.5")))
	assert.Equal(t, int64(2), l.RemainingQuantity())

	l.ReceivedQuantity = 5
	assert.Equal(t, int64(0), l.RemainingQuantity())
}

func TestCategoryOf(t *testing.T) {
	wrapped := fmt.Errorf("create line: %w", &InsufficientFundsError{AccountID: "a"})

	assert.Equal(t, CategoryInsufficientFunds, CategoryOf(wrapped))
	assert.Equal(t, CategoryValidation, CategoryOf(NewValidationError("quantity", "must be positive")))
	assert.Equal(t, CategoryConflict, CategoryOf(&ConflictError{}))
	assert.Equal(t, CategoryIllegalTransition, CategoryOf(&IllegalTransitionError{}))
	assert.Equal(t, CategoryPermissionDenied, CategoryOf(&PermissionDeniedError{}))
	assert.Equal(t, "", CategoryOf(ErrNotFound))
}

func TestNoteType_IsValid(t *testing.T) {
	assert.True(t, NoteStaff.IsValid())
	assert.True(t, NoteVendor.IsValid())
	assert.False(t, NoteType("private").IsValid())
}
