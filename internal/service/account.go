package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/money"
	"github.com/mmeshcher/acquisitions/internal/permission"
	"github.com/mmeshcher/acquisitions/internal/repository"
	"github.com/mmeshcher/acquisitions/internal/validation"
)

// AccountInput содержит поля нового счёта.
type AccountInput struct {
	BudgetID       string      `json:"budget_id" validate:"required"`
	ParentID       string      `json:"parent_id"`
	Name           string      `json:"name" validate:"required"`
	Number         string      `json:"number"`
	LibraryID      string      `json:"library_id" validate:"required"`
	Allocated      money.Money `json:"allocated"`
	AllowOverspend bool        `json:"allow_overspend"`
}

// AccountUpdate содержит изменяемые поля счёта.
type AccountUpdate struct {
	Name           string      `json:"name" validate:"required"`
	Number         string      `json:"number"`
	Allocated      money.Money `json:"allocated"`
	AllowOverspend bool        `json:"allow_overspend"`
}

// CreateAccount создаёт счёт в активном бюджете. Организация берётся из бюджета.
func (s *Service) CreateAccount(ctx context.Context, actor permission.Actor, in AccountInput) (*model.Account, error) {
	budget, err := repository.Load[model.Budget](ctx, s.store, in.BudgetID)
	if err != nil {
		return nil, fmt.Errorf("budget %s: %w", in.BudgetID, err)
	}
	if err := authorize(actor, permission.ActionCreate, model.KindAccount, "", budget.OrganisationID, in.LibraryID); err != nil {
		return nil, err
	}

	err = validation.Run(
		validation.Struct(in),
		validation.Money("allocated", in.Allocated, s.precision),
		validation.NonNegative("allocated", in.Allocated),
	)
	if err != nil {
		return nil, err
	}

	if !budget.IsActive {
		return nil, model.NewValidationError("budget_id", "budget %s is not active", budget.ID)
	}

	if in.ParentID != "" {
		parent, err := repository.Load[model.Account](ctx, s.store, in.ParentID)
		if err != nil {
			return nil, fmt.Errorf("parent account %s: %w", in.ParentID, err)
		}
		if parent.BudgetID != budget.ID {
			return nil, model.NewValidationError("parent_id", "parent account belongs to another budget")
		}
	}

	acc := &model.Account{
		BudgetID:       budget.ID,
		ParentID:       in.ParentID,
		Name:           in.Name,
		Number:         in.Number,
		Allocated:      in.Allocated,
		AllowOverspend: in.AllowOverspend,
		OrganisationID: budget.OrganisationID,
		LibraryID:      in.LibraryID,
	}
	if _, _, err := s.store.Create(ctx, acc); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account created", zap.String("account_id", acc.ID), zap.String("budget_id", acc.BudgetID))
	return acc, nil
}

// GetAccount возвращает счёт по идентификатору.
func (s *Service) GetAccount(ctx context.Context, actor permission.Actor, id string) (*model.Account, error) {
	acc, err := repository.Load[model.Account](ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionRead, model.KindAccount, acc.ID, acc.OrganisationID, acc.LibraryID); err != nil {
		return nil, err
	}
	return acc, nil
}

// ListAccounts возвращает счета бюджета.
func (s *Service) ListAccounts(ctx context.Context, actor permission.Actor, budgetID string) ([]*model.Account, error) {
	budget, err := repository.Load[model.Budget](ctx, s.store, budgetID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionList, model.KindAccount, "", budget.OrganisationID, ""); err != nil {
		return nil, err
	}
	return repository.All[model.Account](ctx, s.store, repository.Filter{"budget_id": budget.ID})
}

// UpdateAccount меняет название и выделенную сумму счёта.
// Уменьшение суммы не должно уводить остаток в минус, если перерасход не разрешён.
func (s *Service) UpdateAccount(ctx context.Context, actor permission.Actor, id string, revision int64, in AccountUpdate) (*model.Account, error) {
	acc, err := repository.Load[model.Account](ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionUpdate, model.KindAccount, acc.ID, acc.OrganisationID, acc.LibraryID); err != nil {
		return nil, err
	}

	err = validation.Run(
		validation.Struct(in),
		validation.Money("allocated", in.Allocated, s.precision),
		validation.NonNegative("allocated", in.Allocated),
	)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockAccount(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !in.AllowOverspend && in.Allocated.LessThan(acc.Allocated) {
		bal, err := s.balance(ctx, s.store, acc)
		if err != nil {
			return nil, err
		}
		cut := acc.Allocated.Sub(in.Allocated)
		if bal.Available.Sub(cut).IsNegative() {
			return nil, &model.InsufficientFundsError{
				AccountID: acc.ID,
				Available: bal.Available.StringFixed(s.precision),
				Requested: cut.StringFixed(s.precision),
			}
		}
	}

	acc.Name = in.Name
	acc.Number = in.Number
	acc.Allocated = in.Allocated
	acc.AllowOverspend = in.AllowOverspend

	if _, err := s.store.Update(ctx, acc.ID, revision, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// DeleteAccount удаляет счёт без дочерних счетов и без позиций заказов.
func (s *Service) DeleteAccount(ctx context.Context, actor permission.Actor, id string, revision int64) error {
	acc, err := repository.Load[model.Account](ctx, s.store, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, permission.ActionDelete, model.KindAccount, acc.ID, acc.OrganisationID, acc.LibraryID); err != nil {
		return err
	}

	children, err := repository.All[model.Account](ctx, s.store, repository.Filter{"parent_id": acc.ID})
	if err != nil {
		return err
	}
	lines, err := repository.All[model.OrderLine](ctx, s.store, repository.Filter{"account_id": acc.ID})
	if err != nil {
		return err
	}
	if len(children) > 0 || len(lines) > 0 {
		return &model.IllegalTransitionError{
			Kind:   model.KindAccount,
			ID:     acc.ID,
			From:   "existing",
			To:     "deleted",
			Reason: "account has sub-accounts or order lines",
		}
	}

	return s.store.Delete(ctx, model.KindAccount, acc.ID, revision)
}

// AccountBalance вычисляет остаток счёта вместе со всеми дочерними счетами.
func (s *Service) AccountBalance(ctx context.Context, actor permission.Actor, id string) (model.Balance, error) {
	acc, err := s.GetAccount(ctx, actor, id)
	if err != nil {
		return model.Balance{}, err
	}
	return s.balance(ctx, s.store, acc)
}
