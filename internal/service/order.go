package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/acquisitions/internal/ledger"
	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/permission"
	"github.com/mmeshcher/acquisitions/internal/repository"
	"github.com/mmeshcher/acquisitions/internal/validation"
)

// OrderInput содержит поля нового заказа.
type OrderInput struct {
	VendorID  string `json:"vendor_id" validate:"required"`
	LibraryID string `json:"library_id" validate:"required"`
	Reference string `json:"reference"`
}

// CreateOrder создаёт заказ библиотеки. Организация берётся из поставщика.
func (s *Service) CreateOrder(ctx context.Context, actor permission.Actor, in OrderInput) (*model.Order, error) {
	if err := validation.Run(validation.Struct(in)); err != nil {
		return nil, err
	}

	vendor, err := repository.Load[model.Vendor](ctx, s.store, in.VendorID)
	if err != nil {
		return nil, fmt.Errorf("vendor %s: %w", in.VendorID, err)
	}
	if err := authorize(actor, permission.ActionCreate, model.KindOrder, "", vendor.OrganisationID, in.LibraryID); err != nil {
		return nil, err
	}

	o := &model.Order{
		VendorID:       vendor.ID,
		Reference:      in.Reference,
		OrganisationID: vendor.OrganisationID,
		LibraryID:      in.LibraryID,
	}
	if _, _, err := s.store.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("order created", zap.String("order_id", o.ID), zap.String("library_id", o.LibraryID))
	return o, nil
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, actor permission.Actor, id string) (*model.Order, error) {
	o, err := repository.Load[model.Order](ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionRead, model.KindOrder, o.ID, o.OrganisationID, o.LibraryID); err != nil {
		return nil, err
	}
	return o, nil
}

// OrderLines возвращает позиции заказа.
func (s *Service) OrderLines(ctx context.Context, actor permission.Actor, orderID string) ([]*model.OrderLine, error) {
	o, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return repository.All[model.OrderLine](ctx, s.store, repository.Filter{"order_id": o.ID})
}

// OrderStatus вычисляет статус заказа по текущим статусам его позиций.
func (s *Service) OrderStatus(ctx context.Context, actor permission.Actor, orderID string) (model.OrderStatus, error) {
	lines, err := s.OrderLines(ctx, actor, orderID)
	if err != nil {
		return "", err
	}
	return ledger.StatusOfLines(lines), nil
}

// CancelOrder отменяет заказ, пока по нему ничего не получено.
// Все позиции переводятся в CANCELLED одной транзакцией.
func (s *Service) CancelOrder(ctx context.Context, actor permission.Actor, orderID string) error {
	o, err := repository.Load[model.Order](ctx, s.store, orderID)
	if err != nil {
		return err
	}
	if err := authorize(actor, permission.ActionUpdate, model.KindOrder, o.ID, o.OrganisationID, o.LibraryID); err != nil {
		return err
	}

	var cancelled []string
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		cancelled = cancelled[:0]

		lines, err := repository.All[model.OrderLine](ctx, tx, repository.Filter{"order_id": o.ID})
		if err != nil {
			return err
		}

		status := ledger.StatusOfLines(lines)
		if len(lines) == 0 || status != model.OrderStatusPending {
			reason := "order has received lines"
			if len(lines) == 0 {
				reason = "order has no lines, delete it instead"
			}
			return &model.IllegalTransitionError{
				Kind:   model.KindOrder,
				ID:     o.ID,
				From:   string(status),
				To:     string(model.OrderStatusCancelled),
				Reason: reason,
			}
		}

		receipts, err := repository.All[model.Receipt](ctx, tx, repository.Filter{"order_id": o.ID})
		if err != nil {
			return err
		}
		if len(receipts) > 0 {
			return &model.IllegalTransitionError{
				Kind:   model.KindOrder,
				ID:     o.ID,
				From:   string(status),
				To:     string(model.OrderStatusCancelled),
				Reason: "receipts exist for the order",
			}
		}

		for _, line := range lines {
			if !line.Status.CanTransitionTo(model.OrderLineCancelled) {
				continue
			}
			line.Status = model.OrderLineCancelled
			if _, err := tx.Update(ctx, line.ID, line.Revision, line); err != nil {
				return err
			}
			cancelled = append(cancelled, line.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range cancelled {
		s.reindex(ctx, model.KindOrderLine, id)
	}
	s.reindex(ctx, model.KindOrder, o.ID)

	s.logger.Info("order cancelled", zap.String("order_id", o.ID), zap.Int("lines", len(cancelled)))
	return nil
}

// DeleteOrder удаляет заказ без позиций.
func (s *Service) DeleteOrder(ctx context.Context, actor permission.Actor, orderID string, revision int64) error {
	o, err := repository.Load[model.Order](ctx, s.store, orderID)
	if err != nil {
		return err
	}
	if err := authorize(actor, permission.ActionDelete, model.KindOrder, o.ID, o.OrganisationID, o.LibraryID); err != nil {
		return err
	}

	lines, err := repository.All[model.OrderLine](ctx, s.store, repository.Filter{"order_id": o.ID})
	if err != nil {
		return err
	}
	if len(lines) > 0 {
		return &model.IllegalTransitionError{
			Kind:   model.KindOrder,
			ID:     o.ID,
			From:   string(ledger.StatusOfLines(lines)),
			To:     "deleted",
			Reason: "order has lines, cancel it instead",
		}
	}

	return s.store.Delete(ctx, model.KindOrder, o.ID, revision)
}
