package service

import (
	"context"
	"fmt"

	"github.com/mmeshcher/acquisitions/internal/ledger"
	"github.com/mmeshcher/acquisitions/internal/locker"
	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/money"
	"github.com/mmeshcher/acquisitions/internal/repository"
)

// balance собирает снимок поддерева счёта и вычисляет его остаток.
func (s *Service) balance(ctx context.Context, st repository.Store, acc *model.Account) (model.Balance, error) {
	ids, err := ledger.Subtree(acc.ID, func(id string) ([]string, error) {
		children, err := repository.All[model.Account](ctx, st, repository.Filter{"parent_id": id})
		if err != nil {
			return nil, err
		}
		res := make([]string, 0, len(children))
		for _, c := range children {
			res = append(res, c.ID)
		}
		return res, nil
	})
	if err != nil {
		return model.Balance{}, fmt.Errorf("account subtree: %w", err)
	}

	var (
		lines        []*model.OrderLine
		receiptLines []*model.ReceiptLine
	)
	for _, id := range ids {
		ls, err := repository.All[model.OrderLine](ctx, st, repository.Filter{"account_id": id})
		if err != nil {
			return model.Balance{}, err
		}
		lines = append(lines, ls...)

		rls, err := repository.All[model.ReceiptLine](ctx, st, repository.Filter{"account_id": id})
		if err != nil {
			return model.Balance{}, err
		}
		receiptLines = append(receiptLines, rls...)
	}

	return ledger.Balance(acc.Allocated, lines, receiptLines, s.precision)
}

// ancestry возвращает счёт и всех его предков, начиная с самого счёта.
func ancestry(ctx context.Context, st repository.Store, accountID string) ([]*model.Account, error) {
	var res []*model.Account
	seen := map[string]bool{}

	for id := accountID; id != "" && !seen[id]; {
		seen[id] = true
		acc, err := repository.Load[model.Account](ctx, st, id)
		if err != nil {
			return nil, err
		}
		res = append(res, acc)
		id = acc.ParentID
	}
	return res, nil
}

// checkFunds проверяет, что списание extra не уводит в минус счёт и его предков.
// Счета с разрешённым перерасходом не проверяются.
func (s *Service) checkFunds(ctx context.Context, st repository.Store, accountID string, extra money.Money) error {
	if !extra.IsPositive() {
		return nil
	}

	chain, err := ancestry(ctx, st, accountID)
	if err != nil {
		return err
	}

	for _, acc := range chain {
		if acc.AllowOverspend {
			continue
		}
		bal, err := s.balance(ctx, st, acc)
		if err != nil {
			return err
		}
		if bal.Available.Sub(extra).IsNegative() {
			return &model.InsufficientFundsError{
				AccountID: acc.ID,
				Available: bal.Available.StringFixed(s.precision),
				Requested: extra.StringFixed(s.precision),
			}
		}
	}
	return nil
}

// lockAccount блокирует счёт и его предков, если включена сериализация.
func (s *Service) lockAccount(ctx context.Context, accountID string) (locker.Unlock, error) {
	if _, ok := s.locker.(locker.Noop); ok {
		return func() {}, nil
	}

	chain, err := ancestry(ctx, s.store, accountID)
	if err != nil {
		return nil, err
	}

	// Предки блокируются первыми, чтобы порядок взятия был одинаковым для всех веток.
	keys := make([]string, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		keys = append(keys, "account:"+chain[i].ID)
	}
	return locker.LockAll(ctx, s.locker, keys)
}
