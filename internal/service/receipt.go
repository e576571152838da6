package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/acquisitions/internal/ledger"
	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/money"
	"github.com/mmeshcher/acquisitions/internal/permission"
	"github.com/mmeshcher/acquisitions/internal/repository"
	"github.com/mmeshcher/acquisitions/internal/validation"
)

// ReceiptInput содержит поля новой поставки. Без даты используется текущая.
type ReceiptInput struct {
	ReceiptDate *time.Time `json:"receipt_date"`
	Reference   string     `json:"reference"`
}

// ReceiptLineInput содержит поля новой позиции поставки.
// Если ExchangeRate не задан, курс запрашивается по Currency, а без неё равен 1.
type ReceiptLineInput struct {
	OrderLineID  string           `json:"order_line_id" validate:"required"`
	Quantity     int64            `json:"quantity"`
	Amount       money.Money      `json:"amount"`
	VATRate      decimal.Decimal  `json:"vat_rate"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`
	Currency     string           `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Notes        []model.Note     `json:"notes,omitempty"`
}

// CreateReceipt регистрирует поставку по заказу.
func (s *Service) CreateReceipt(ctx context.Context, actor permission.Actor, orderID string, in ReceiptInput) (*model.Receipt, error) {
	o, err := repository.Load[model.Order](ctx, s.store, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionCreate, model.KindReceipt, "", o.OrganisationID, o.LibraryID); err != nil {
		return nil, err
	}

	lines, err := repository.All[model.OrderLine](ctx, s.store, repository.Filter{"order_id": o.ID})
	if err != nil {
		return nil, err
	}
	status := ledger.StatusOfLines(lines)
	if status == model.OrderStatusCancelled || status == model.OrderStatusReceived {
		return nil, &model.IllegalTransitionError{
			Kind:   model.KindOrder,
			ID:     o.ID,
			From:   string(status),
			To:     string(model.OrderStatusPartiallyReceived),
			Reason: "order accepts no more receipts",
		}
	}

	date := s.now().UTC()
	if in.ReceiptDate != nil {
		date = *in.ReceiptDate
	}

	r := &model.Receipt{
		OrderID:        o.ID,
		ReceiptDate:    date,
		Reference:      in.Reference,
		OrganisationID: o.OrganisationID,
		LibraryID:      o.LibraryID,
	}
	if _, _, err := s.store.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create receipt: %w", err)
	}

	s.logger.Info("receipt created", zap.String("receipt_id", r.ID), zap.String("order_id", o.ID))
	return r, nil
}

// GetReceipt возвращает поставку.
func (s *Service) GetReceipt(ctx context.Context, actor permission.Actor, id string) (*model.Receipt, error) {
	r, err := repository.Load[model.Receipt](ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionRead, model.KindReceipt, r.ID, r.OrganisationID, r.LibraryID); err != nil {
		return nil, err
	}
	return r, nil
}

// ReceiptLines возвращает позиции поставки.
func (s *Service) ReceiptLines(ctx context.Context, actor permission.Actor, receiptID string) ([]*model.ReceiptLine, error) {
	r, err := s.GetReceipt(ctx, actor, receiptID)
	if err != nil {
		return nil, err
	}
	return repository.All[model.ReceiptLine](ctx, s.store, repository.Filter{"receipt_id": r.ID})
}

func (s *Service) exchangeRate(ctx context.Context, in ReceiptLineInput) (decimal.Decimal, error) {
	if in.ExchangeRate != nil {
		return *in.ExchangeRate, nil
	}
	if in.Currency == "" {
		return decimal.NewFromInt(1), nil
	}
	if s.rates == nil {
		return decimal.Decimal{}, model.NewValidationError("exchange_rate", "no rate given for %s and no rate service configured", in.Currency)
	}

	rate, err := s.rates.GetRate(ctx, strings.ToUpper(in.Currency))
	if err != nil {
		s.logger.Warn("exchange rate lookup failed", zap.String("currency", in.Currency), zap.Error(err))
		return decimal.Decimal{}, fmt.Errorf("exchange rate for %s: %w", in.Currency, err)
	}
	return rate, nil
}

// CreateReceiptLine регистрирует получение позиции заказа.
// Позиция поставки создаётся и полученное количество позиции заказа обновляется одной транзакцией;
// при получении всего количества позиция заказа переходит в RECEIVED.
func (s *Service) CreateReceiptLine(ctx context.Context, actor permission.Actor, receiptID string, in ReceiptLineInput) (*model.ReceiptLine, error) {
	r, err := repository.Load[model.Receipt](ctx, s.store, receiptID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionCreate, model.KindReceiptLine, "", r.OrganisationID, r.LibraryID); err != nil {
		return nil, err
	}

	err = validation.Run(
		validation.Struct(in),
		validation.Positive("quantity", in.Quantity),
		validation.Money("amount", in.Amount, s.precision),
		validation.NonNegative("amount", in.Amount),
		validation.Percentage("vat_rate", in.VATRate),
		validation.Notes("notes", in.Notes),
	)
	if err != nil {
		return nil, err
	}

	rate, err := s.exchangeRate(ctx, in)
	if err != nil {
		return nil, err
	}
	total, err := ledger.ReceiptLineTotal(in.Quantity, in.Amount, in.VATRate, rate, s.precision)
	if err != nil {
		return nil, err
	}

	current, err := repository.Load[model.OrderLine](ctx, s.store, in.OrderLineID)
	if err != nil {
		return nil, fmt.Errorf("order line %s: %w", in.OrderLineID, err)
	}
	if current.OrderID != r.OrderID {
		return nil, model.NewValidationError("order_line_id", "order line belongs to another order")
	}

	unlock, err := s.lockAccount(ctx, current.AccountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rl := &model.ReceiptLine{
		ReceiptID:      r.ID,
		OrderLineID:    current.ID,
		AccountID:      current.AccountID,
		Quantity:       in.Quantity,
		Amount:         in.Amount,
		VATRate:        in.VATRate,
		ExchangeRate:   rate,
		Notes:          in.Notes,
		OrganisationID: r.OrganisationID,
		LibraryID:      r.LibraryID,
	}

	var line *model.OrderLine
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		line, err = repository.Load[model.OrderLine](ctx, tx, current.ID)
		if err != nil {
			return err
		}

		if line.Status != model.OrderLineApproved {
			return &model.IllegalTransitionError{
				Kind:   model.KindOrderLine,
				ID:     line.ID,
				From:   string(line.Status),
				To:     string(model.OrderLineReceived),
				Reason: "line is not open for receipt",
			}
		}
		if in.Quantity > line.RemainingQuantity() {
			return &model.IllegalTransitionError{
				Kind:   model.KindOrderLine,
				ID:     line.ID,
				From:   string(line.Status),
				To:     string(model.OrderLineReceived),
				Reason: fmt.Sprintf("receiving %d of %d remaining", in.Quantity, line.RemainingQuantity()),
			}
		}

		// Получение снимает резерв по цене заказа; проверяется только превышение над ним.
		released := line.UnitPrice.Mul(in.Quantity)
		if err := s.checkFunds(ctx, tx, line.AccountID, total.Sub(released)); err != nil {
			return err
		}

		if _, _, err := tx.Create(ctx, rl); err != nil {
			return fmt.Errorf("create receipt line: %w", err)
		}

		line.ReceivedQuantity += in.Quantity
		if line.ReceivedQuantity == line.Quantity {
			line.Status = model.OrderLineReceived
		}
		if _, err := tx.Update(ctx, line.ID, line.Revision, line); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.reindex(ctx, model.KindOrderLine, line.ID)
	s.reindex(ctx, model.KindOrder, line.OrderID)

	s.logger.Info("receipt line created",
		zap.String("receipt_line_id", rl.ID),
		zap.String("order_line_id", line.ID),
		zap.Int64("received", line.ReceivedQuantity),
		zap.Int64("ordered", line.Quantity),
		zap.String("status", string(line.Status)),
		zap.String("total", total.StringFixed(s.precision)),
	)
	return rl, nil
}

// GetReceiptLine возвращает позицию поставки.
func (s *Service) GetReceiptLine(ctx context.Context, actor permission.Actor, id string) (*model.ReceiptLine, error) {
	rl, err := repository.Load[model.ReceiptLine](ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionRead, model.KindReceiptLine, rl.ID, rl.OrganisationID, rl.LibraryID); err != nil {
		return nil, err
	}
	return rl, nil
}

// ReceiptLineTotal вычисляет итоговую сумму позиции поставки.
func (s *Service) ReceiptLineTotal(ctx context.Context, actor permission.Actor, id string) (money.Money, error) {
	rl, err := s.GetReceiptLine(ctx, actor, id)
	if err != nil {
		return money.Money{}, err
	}
	return ledger.LineTotal(rl, s.precision)
}
