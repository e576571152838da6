package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/acquisitions/internal/ledger"
	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/money"
	"github.com/mmeshcher/acquisitions/internal/permission"
	"github.com/mmeshcher/acquisitions/internal/repository"
	"github.com/mmeshcher/acquisitions/internal/validation"
)

// OrderLineInput содержит поля новой позиции заказа.
type OrderLineInput struct {
	AccountID  string      `json:"account_id" validate:"required"`
	DocumentID string      `json:"document_id" validate:"required"`
	Quantity   int64       `json:"quantity"`
	UnitPrice  money.Money `json:"unit_price"`
}

// OrderLineUpdate содержит изменяемые поля позиции заказа.
type OrderLineUpdate struct {
	Quantity  int64       `json:"quantity"`
	UnitPrice money.Money `json:"unit_price"`
}

func (s *Service) orderLineRules(quantity int64, unitPrice money.Money) []validation.Rule {
	return []validation.Rule{
		validation.Positive("quantity", quantity),
		validation.Money("unit_price", unitPrice, s.precision),
		validation.NonNegative("unit_price", unitPrice),
	}
}

// AddOrderLine добавляет позицию в заказ и резервирует её сумму на счёте.
func (s *Service) AddOrderLine(ctx context.Context, actor permission.Actor, orderID string, in OrderLineInput) (*model.OrderLine, error) {
	o, err := repository.Load[model.Order](ctx, s.store, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionCreate, model.KindOrderLine, "", o.OrganisationID, o.LibraryID); err != nil {
		return nil, err
	}

	rules := append([]validation.Rule{validation.Struct(in)}, s.orderLineRules(in.Quantity, in.UnitPrice)...)
	if err := validation.Run(rules...); err != nil {
		return nil, err
	}

	acc, err := repository.Load[model.Account](ctx, s.store, in.AccountID)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", in.AccountID, err)
	}
	if acc.OrganisationID != o.OrganisationID {
		return nil, model.NewValidationError("account_id", "account belongs to another organisation")
	}
	doc, err := repository.Load[model.Document](ctx, s.store, in.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", in.DocumentID, err)
	}
	if doc.OrganisationID != o.OrganisationID {
		return nil, model.NewValidationError("document_id", "document belongs to another organisation")
	}

	unlock, err := s.lockAccount(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	lines, err := repository.All[model.OrderLine](ctx, s.store, repository.Filter{"order_id": o.ID})
	if err != nil {
		return nil, err
	}
	if status := ledger.StatusOfLines(lines); status == model.OrderStatusCancelled {
		return nil, &model.IllegalTransitionError{
			Kind:   model.KindOrder,
			ID:     o.ID,
			From:   string(status),
			To:     string(model.OrderStatusPending),
			Reason: "cannot add a line to a cancelled order",
		}
	}

	line := &model.OrderLine{
		OrderID:        o.ID,
		AccountID:      acc.ID,
		DocumentID:     doc.ID,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
		Status:         model.OrderLineApproved,
		OrganisationID: o.OrganisationID,
		LibraryID:      o.LibraryID,
	}
	if err := s.checkFunds(ctx, s.store, acc.ID, line.Amount()); err != nil {
		return nil, err
	}

	if _, _, err := s.store.Create(ctx, line); err != nil {
		return nil, fmt.Errorf("create order line: %w", err)
	}
	s.reindex(ctx, model.KindOrder, o.ID)

	s.logger.Info("order line approved",
		zap.String("order_line_id", line.ID),
		zap.String("order_id", o.ID),
		zap.String("account_id", acc.ID),
		zap.String("amount", line.Amount().StringFixed(s.precision)),
	)
	return line, nil
}

// GetOrderLine возвращает позицию заказа.
func (s *Service) GetOrderLine(ctx context.Context, actor permission.Actor, id string) (*model.OrderLine, error) {
	line, err := repository.Load[model.OrderLine](ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionRead, model.KindOrderLine, line.ID, line.OrganisationID, line.LibraryID); err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateOrderLine меняет количество и цену утверждённой позиции.
// Проверка средств выполняется только на прирост резерва.
func (s *Service) UpdateOrderLine(ctx context.Context, actor permission.Actor, id string, revision int64, in OrderLineUpdate) (*model.OrderLine, error) {
	line, err := repository.Load[model.OrderLine](ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionUpdate, model.KindOrderLine, line.ID, line.OrganisationID, line.LibraryID); err != nil {
		return nil, err
	}
	if err := validation.Run(s.orderLineRules(in.Quantity, in.UnitPrice)...); err != nil {
		return nil, err
	}

	if line.Status != model.OrderLineApproved {
		return nil, &model.IllegalTransitionError{
			Kind:   model.KindOrderLine,
			ID:     line.ID,
			From:   string(line.Status),
			To:     string(line.Status),
			Reason: "only approved lines can be changed",
		}
	}
	// Позиция становится RECEIVED только при создании позиции поставки.
	if line.ReceivedQuantity > 0 && in.Quantity <= line.ReceivedQuantity {
		return nil, &model.IllegalTransitionError{
			Kind:   model.KindOrderLine,
			ID:     line.ID,
			From:   string(line.Status),
			To:     string(model.OrderLineReceived),
			Reason: fmt.Sprintf("quantity %d must exceed received quantity %d", in.Quantity, line.ReceivedQuantity),
		}
	}

	unlock, err := s.lockAccount(ctx, line.AccountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	before := ledger.Encumbrance(line)
	line.Quantity = in.Quantity
	line.UnitPrice = in.UnitPrice

	if err := s.checkFunds(ctx, s.store, line.AccountID, ledger.Encumbrance(line).Sub(before)); err != nil {
		return nil, err
	}

	if _, err := s.store.Update(ctx, line.ID, revision, line); err != nil {
		return nil, err
	}
	s.reindex(ctx, model.KindOrder, line.OrderID)
	return line, nil
}

// CancelOrderLine отменяет позицию, по которой ещё ничего не получено.
func (s *Service) CancelOrderLine(ctx context.Context, actor permission.Actor, id string, revision int64) (*model.OrderLine, error) {
	line, err := repository.Load[model.OrderLine](ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionUpdate, model.KindOrderLine, line.ID, line.OrganisationID, line.LibraryID); err != nil {
		return nil, err
	}

	if !line.Status.CanTransitionTo(model.OrderLineCancelled) || line.ReceivedQuantity > 0 {
		reason := ""
		if line.ReceivedQuantity > 0 {
			reason = "line is partially received"
		}
		return nil, &model.IllegalTransitionError{
			Kind:   model.KindOrderLine,
			ID:     line.ID,
			From:   string(line.Status),
			To:     string(model.OrderLineCancelled),
			Reason: reason,
		}
	}

	line.Status = model.OrderLineCancelled
	if _, err := s.store.Update(ctx, line.ID, revision, line); err != nil {
		return nil, err
	}
	s.reindex(ctx, model.KindOrder, line.OrderID)

	s.logger.Info("order line cancelled", zap.String("order_line_id", line.ID))
	return line, nil
}
