package ledger

import (
	"fmt"

	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/money"
)

// Encumbrance возвращает сумму, зарезервированную позицией заказа.
// Полученные единицы переходят в расходы и из резерва исключаются.
func Encumbrance(line *model.OrderLine) money.Money {
	if line.Status != model.OrderLineApproved {
		return money.Zero()
	}
	return line.UnitPrice.Mul(line.RemainingQuantity())
}

// Balance вычисляет остаток счёта по снимку позиций заказов и поставок его поддерева.
func Balance(allocated money.Money, lines []*model.OrderLine, receiptLines []*model.ReceiptLine, precision int32) (model.Balance, error) {
	encumbrance := money.Zero()
	for _, l := range lines {
		encumbrance = encumbrance.Add(Encumbrance(l))
	}

	expenditure := money.Zero()
	for _, rl := range receiptLines {
		total, err := LineTotal(rl, precision)
		if err != nil {
			return model.Balance{}, fmt.Errorf("receipt line %s total: %w", rl.ID, err)
		}
		expenditure = expenditure.Add(total)
	}

	return model.Balance{
		Allocated:   allocated,
		Encumbrance: encumbrance,
		Expenditure: expenditure,
		Available:   allocated.Sub(encumbrance).Sub(expenditure),
	}, nil
}

// Subtree возвращает идентификаторы счёта и всех его потомков без ограничения глубины.
// children отдаёт прямых потомков счёта; циклы в иерархии игнорируются.
func Subtree(rootID string, children func(id string) ([]string, error)) ([]string, error) {
	visited := map[string]bool{rootID: true}
	queue := []string{rootID}
	result := []string{}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, id)

		kids, err := children(id)
		if err != nil {
			return nil, err
		}
		for _, k := range kids {
			if visited[k] {
				continue
			}
			visited[k] = true
			queue = append(queue, k)
		}
	}

	return result, nil
}
