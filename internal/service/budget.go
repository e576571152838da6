package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/permission"
	"github.com/mmeshcher/acquisitions/internal/repository"
	"github.com/mmeshcher/acquisitions/internal/validation"
)

// BudgetInput содержит поля нового бюджета.
type BudgetInput struct {
	OrganisationID string    `json:"organisation_id" validate:"required"`
	Name           string    `json:"name" validate:"required"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required"`
	IsActive       bool      `json:"is_active"`
}

// CreateBudget создаёт бюджет организации.
func (s *Service) CreateBudget(ctx context.Context, actor permission.Actor, in BudgetInput) (*model.Budget, error) {
	if err := authorize(actor, permission.ActionCreate, model.KindBudget, "", in.OrganisationID, ""); err != nil {
		return nil, err
	}

	err := validation.Run(
		validation.Struct(in),
		func() error {
			if in.StartDate.After(in.EndDate) {
				return model.NewValidationError("end_date", "must not be before start_date")
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	b := &model.Budget{
		OrganisationID: in.OrganisationID,
		Name:           in.Name,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		IsActive:       in.IsActive,
	}
	if b.IsActive {
		if err := checkActiveOverlap(ctx, s.store, b); err != nil {
			return nil, err
		}
	}

	if _, _, err := s.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}

	s.logger.Info("budget created", zap.String("budget_id", b.ID), zap.String("organisation_id", b.OrganisationID))
	return b, nil
}

// GetBudget возвращает бюджет по идентификатору.
func (s *Service) GetBudget(ctx context.Context, actor permission.Actor, id string) (*model.Budget, error) {
	b, err := repository.Load[model.Budget](ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionRead, model.KindBudget, b.ID, b.OrganisationID, ""); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBudgets возвращает бюджеты организации.
func (s *Service) ListBudgets(ctx context.Context, actor permission.Actor, organisationID string) ([]*model.Budget, error) {
	if err := authorize(actor, permission.ActionList, model.KindBudget, "", organisationID, ""); err != nil {
		return nil, err
	}
	return repository.All[model.Budget](ctx, s.store, repository.Filter{"organisation_id": organisationID})
}

// SetBudgetActive включает или выключает бюджет.
func (s *Service) SetBudgetActive(ctx context.Context, actor permission.Actor, id string, revision int64, active bool) (*model.Budget, error) {
	b, err := repository.Load[model.Budget](ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionUpdate, model.KindBudget, b.ID, b.OrganisationID, ""); err != nil {
		return nil, err
	}

	if active && !b.IsActive {
		if err := checkActiveOverlap(ctx, s.store, b); err != nil {
			return nil, err
		}
	}
	b.IsActive = active

	if _, err := s.store.Update(ctx, b.ID, revision, b); err != nil {
		return nil, err
	}

	s.logger.Info("budget activation changed", zap.String("budget_id", b.ID), zap.Bool("active", active))
	return b, nil
}

// DeleteBudget удаляет бюджет, на который не ссылается ни один счёт.
func (s *Service) DeleteBudget(ctx context.Context, actor permission.Actor, id string, revision int64) error {
	b, err := repository.Load[model.Budget](ctx, s.store, id)
	if err != nil {
		return err
	}
	if err := authorize(actor, permission.ActionDelete, model.KindBudget, b.ID, b.OrganisationID, ""); err != nil {
		return err
	}

	accounts, err := repository.All[model.Account](ctx, s.store, repository.Filter{"budget_id": b.ID})
	if err != nil {
		return err
	}
	if len(accounts) > 0 {
		return &model.IllegalTransitionError{
			Kind:   model.KindBudget,
			ID:     b.ID,
			From:   "existing",
			To:     "deleted",
			Reason: "accounts reference the budget, deactivate it instead",
		}
	}

	return s.store.Delete(ctx, model.KindBudget, b.ID, revision)
}

// checkActiveOverlap не допускает двух активных бюджетов организации с пересекающимися периодами.
func checkActiveOverlap(ctx context.Context, st repository.Store, b *model.Budget) error {
	active, err := repository.All[model.Budget](ctx, st, repository.Filter{
		"organisation_id": b.OrganisationID,
		"is_active":       true,
	})
	if err != nil {
		return err
	}
	for _, other := range active {
		if other.ID == b.ID {
			continue
		}
		if b.Overlaps(other) {
			return model.NewValidationError("is_active", "budget %s is already active for an overlapping period", other.ID)
		}
	}
	return nil
}
