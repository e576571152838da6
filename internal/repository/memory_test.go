package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/money"
)

func TestMemoryStore_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	acc := &model.Account{Name: "Books", Allocated: money.FromInt(1000), OrganisationID: "org1"}
	id, rev, err := s.Create(ctx, acc)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, int64(1), rev)
	assert.Equal(t, id, acc.ID)
	assert.Equal(t, int64(1), acc.Revision)

	got, err := Load[model.Account](ctx, s, id)
	require.NoError(t, err)
	assert.Equal(t, "Books", got.Name)
	assert.True(t, got.Allocated.Equal(money.FromInt(1000)))

	got.Name = "Serials"
	rev, err = s.Update(ctx, id, 1, got)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
	assert.Equal(t, int64(2), got.Revision)

	_, err = s.Update(ctx, id, 1, got)
	var conflict *model.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, int64(1), conflict.Expected)
	assert.Equal(t, int64(2), conflict.Actual)
}

func TestMemoryStore_GetWrongKind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, _, err := s.Create(ctx, &model.Order{LibraryID: "L1"})
	require.NoError(t, err)

	_, err = Load[model.Account](ctx, s, id)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = Load[model.Order](ctx, s, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, _, err := s.Create(ctx, &model.Vendor{Name: "ACME"})
	require.NoError(t, err)

	err = s.Delete(ctx, model.KindVendor, id, 7)
	var conflict *model.ConflictError
	require.True(t, errors.As(err, &conflict))

	require.NoError(t, s.Delete(ctx, model.KindVendor, id, 1))
	assert.ErrorIs(t, s.Delete(ctx, model.KindVendor, id, 1), model.ErrNotFound)
}

func TestMemoryStore_SearchPaged(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore().WithPageSize(2)

	for i := 0; i < 5; i++ {
		_, _, err := s.Create(ctx, &model.OrderLine{OrderID: "o1", Quantity: int64(i + 1)})
		require.NoError(t, err)
	}
	_, _, err := s.Create(ctx, &model.OrderLine{OrderID: "o2", Quantity: 99})
	require.NoError(t, err)

	lines, err := All[model.OrderLine](ctx, s, Filter{"order_id": "o1"})
	require.NoError(t, err)
	require.Len(t, lines, 5)
	for i, l := range lines {
		assert.Equal(t, int64(i+1), l.Quantity, "insertion order")
	}

	all, err := All[model.OrderLine](ctx, s, nil)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	none, err := All[model.OrderLine](ctx, s, Filter{"order_id": "o3"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStore_SearchByBool(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, _, err := s.Create(ctx, &model.Budget{OrganisationID: "org1", IsActive: true})
	require.NoError(t, err)
	_, _, err = s.Create(ctx, &model.Budget{OrganisationID: "org1", IsActive: false})
	require.NoError(t, err)

	active, err := All[model.Budget](ctx, s, Filter{"organisation_id": "org1", "is_active": true})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestMemoryStore_WithinTx_Commit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	line := &model.OrderLine{OrderID: "o1", Quantity: 2, Status: model.OrderLineApproved}
	_, _, err := s.Create(ctx, line)
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(tx Store) error {
		if _, _, err := tx.Create(ctx, &model.ReceiptLine{OrderLineID: line.ID, Quantity: 2}); err != nil {
			return err
		}
		line.ReceivedQuantity = 2
		line.Status = model.OrderLineReceived
		_, err := tx.Update(ctx, line.ID, line.Revision, line)
		if err != nil {
			return err
		}

		inTx, err := All[model.ReceiptLine](ctx, tx, Filter{"order_line_id": line.ID})
		if err != nil {
			return err
		}
		if len(inTx) != 1 {
			return fmt.Errorf("receipt lines in tx = %d, want 1", len(inTx))
		}

		outside, err := All[model.ReceiptLine](ctx, s, nil)
		if err != nil {
			return err
		}
		if len(outside) != 0 {
			return fmt.Errorf("receipt lines outside tx = %d, want 0", len(outside))
		}
		return nil
	})
	require.NoError(t, err)

	stored, err := Load[model.OrderLine](ctx, s, line.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderLineReceived, stored.Status)

	rls, err := All[model.ReceiptLine](ctx, s, Filter{"order_line_id": line.ID})
	require.NoError(t, err)
	assert.Len(t, rls, 1)
}

func TestMemoryStore_WithinTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	line := &model.OrderLine{OrderID: "o1", Quantity: 2, Status: model.OrderLineApproved}
	_, _, err := s.Create(ctx, line)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithinTx(ctx, func(tx Store) error {
		if _, _, err := tx.Create(ctx, &model.ReceiptLine{OrderLineID: line.ID, Quantity: 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rls, err := All[model.ReceiptLine](ctx, s, nil)
	require.NoError(t, err)
	assert.Empty(t, rls)
}

func TestMemoryStore_WithinTx_ConflictOnCommit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	line := &model.OrderLine{OrderID: "o1", Quantity: 2, Status: model.OrderLineApproved}
	_, _, err := s.Create(ctx, line)
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(tx Store) error {
		inTx, err := Load[model.OrderLine](ctx, tx, line.ID)
		if err != nil {
			return err
		}

		concurrent := *line
		if _, err := s.Update(ctx, line.ID, line.Revision, &concurrent); err != nil {
			return err
		}

		inTx.ReceivedQuantity = 1
		_, err = tx.Update(ctx, inTx.ID, inTx.Revision, inTx)
		return err
	})

	var conflict *model.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)

	stored, err := Load[model.OrderLine](ctx, s, line.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.ReceivedQuantity)
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	doc := &model.Document{Title: "Dune"}
	require.NoError(t, Save(ctx, s, doc))
	assert.Equal(t, int64(1), doc.Revision)

	doc.Title = "Dune Messiah"
	require.NoError(t, Save(ctx, s, doc))
	assert.Equal(t, int64(2), doc.Revision)
}
