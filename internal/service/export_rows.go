package service

import (
	"context"
	"errors"

	"github.com/mmeshcher/acquisitions/internal/ledger"
	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/permission"
	"github.com/mmeshcher/acquisitions/internal/repository"
)

// ExportRows возвращает плоские строки выгрузки заказа: по строке на каждую пару
// позиция заказа / позиция поставки. Неполученная позиция даёт одну строку без данных поставки.
func (s *Service) ExportRows(ctx context.Context, actor permission.Actor, orderID string) ([]model.ExportRow, error) {
	o, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	vendorName := ""
	v, err := repository.Load[model.Vendor](ctx, s.store, o.VendorID)
	switch {
	case err == nil:
		vendorName = v.Name
	case !errors.Is(err, model.ErrNotFound):
		return nil, err
	}

	lines, err := repository.All[model.OrderLine](ctx, s.store, repository.Filter{"order_id": o.ID})
	if err != nil {
		return nil, err
	}

	titles := map[string]string{}
	accounts := map[string]string{}
	receipts := map[string]*model.Receipt{}

	var rows []model.ExportRow
	for _, line := range lines {
		title, ok := titles[line.DocumentID]
		if !ok {
			d, err := repository.Load[model.Document](ctx, s.store, line.DocumentID)
			switch {
			case err == nil:
				title = d.Title
			case !errors.Is(err, model.ErrNotFound):
				return nil, err
			}
			titles[line.DocumentID] = title
		}
		accountName, ok := accounts[line.AccountID]
		if !ok {
			a, err := repository.Load[model.Account](ctx, s.store, line.AccountID)
			switch {
			case err == nil:
				accountName = a.Name
			case !errors.Is(err, model.ErrNotFound):
				return nil, err
			}
			accounts[line.AccountID] = accountName
		}

		base := model.ExportRow{
			OrderID:         o.ID,
			OrderReference:  o.Reference,
			VendorName:      vendorName,
			DocumentTitle:   title,
			AccountName:     accountName,
			OrderedQuantity: line.Quantity,
			OrderedAmount:   line.Amount(),
		}

		rls, err := repository.All[model.ReceiptLine](ctx, s.store, repository.Filter{"order_line_id": line.ID})
		if err != nil {
			return nil, err
		}
		if len(rls) == 0 {
			rows = append(rows, base)
			continue
		}

		for _, rl := range rls {
			row := base
			row.ReceivedQuantity = rl.Quantity
			row.ReceivedAmount, err = ledger.LineTotal(rl, s.precision)
			if err != nil {
				return nil, err
			}

			r, ok := receipts[rl.ReceiptID]
			if !ok {
				r, err = repository.Load[model.Receipt](ctx, s.store, rl.ReceiptID)
				if err != nil {
					return nil, err
				}
				receipts[rl.ReceiptID] = r
			}
			date := r.ReceiptDate
			row.ReceiptDate = &date

			rows = append(rows, row)
		}
	}
	return rows, nil
}
