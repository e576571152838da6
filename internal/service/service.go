// Package service реализует бизнес-логику бюджета комплектования библиотеки.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/acquisitions/internal/locker"
	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/money"
	"github.com/mmeshcher/acquisitions/internal/permission"
	"github.com/mmeshcher/acquisitions/internal/repository"
)

// RateProvider отдаёт курс перевода валюты в валюту бюджета.
type RateProvider interface {
	GetRate(ctx context.Context, currency string) (decimal.Decimal, error)
}

// Indexer переиндексирует запись во внешнем поиске после изменения.
type Indexer interface {
	Reindex(ctx context.Context, kind model.Kind, id string) error
}

type noopIndexer struct{}

func (noopIndexer) Reindex(context.Context, model.Kind, string) error { return nil }

// Service содержит бизнес-логику бюджета комплектования.
type Service struct {
	store     repository.Store
	logger    *zap.Logger
	locker    locker.Locker
	rates     RateProvider
	indexer   Indexer
	precision int32
	now       func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithLocker включает сериализацию записей по счёту.
func WithLocker(l locker.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithRateProvider задаёт источник курсов валют для позиций поставки без явного курса.
func WithRateProvider(p RateProvider) Option {
	return func(s *Service) { s.rates = p }
}

// WithIndexer задаёт внешний индекс поиска.
func WithIndexer(i Indexer) Option {
	return func(s *Service) { s.indexer = i }
}

// WithPrecision задаёт количество знаков после запятой для денежных сумм.
func WithPrecision(p int32) Option {
	return func(s *Service) { s.precision = p }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService создаёт сервис поверх хранилища записей.
func NewService(store repository.Store, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		logger:    logger,
		locker:    locker.Noop{},
		indexer:   noopIndexer{},
		precision: money.DefaultPrecision,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Precision возвращает точность денежных сумм.
func (s *Service) Precision() int32 {
	return s.precision
}

func authorize(actor permission.Actor, action permission.Action, kind model.Kind, id, org, lib string) error {
	return permission.Check(actor, action, permission.Resource{
		Kind:           kind,
		ID:             id,
		OrganisationID: org,
		LibraryID:      lib,
	})
}

func (s *Service) reindex(ctx context.Context, kind model.Kind, id string) {
	if err := s.indexer.Reindex(ctx, kind, id); err != nil {
		s.logger.Warn("reindex failed", zap.String("kind", string(kind)), zap.String("id", id), zap.Error(err))
	}
}
