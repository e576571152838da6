package service

import (
	"context"
	"fmt"

	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/permission"
	"github.com/mmeshcher/acquisitions/internal/repository"
	"github.com/mmeshcher/acquisitions/internal/validation"
)

// VendorInput содержит поля нового поставщика.
type VendorInput struct {
	OrganisationID string `json:"organisation_id" validate:"required"`
	Name           string `json:"name" validate:"required"`
}

// DocumentInput содержит поля нового документа.
type DocumentInput struct {
	OrganisationID string `json:"organisation_id" validate:"required"`
	Title          string `json:"title" validate:"required"`
}

// CreateVendor создаёт поставщика организации.
func (s *Service) CreateVendor(ctx context.Context, actor permission.Actor, in VendorInput) (*model.Vendor, error) {
	if err := authorize(actor, permission.ActionCreate, model.KindVendor, "", in.OrganisationID, ""); err != nil {
		return nil, err
	}
	if err := validation.Run(validation.Struct(in)); err != nil {
		return nil, err
	}

	v := &model.Vendor{Name: in.Name, OrganisationID: in.OrganisationID}
	if _, _, err := s.store.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create vendor: %w", err)
	}
	return v, nil
}

// GetVendor возвращает поставщика.
func (s *Service) GetVendor(ctx context.Context, actor permission.Actor, id string) (*model.Vendor, error) {
	v, err := repository.Load[model.Vendor](ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionRead, model.KindVendor, v.ID, v.OrganisationID, ""); err != nil {
		return nil, err
	}
	return v, nil
}

// CreateDocument создаёт документ каталога организации.
func (s *Service) CreateDocument(ctx context.Context, actor permission.Actor, in DocumentInput) (*model.Document, error) {
	if err := authorize(actor, permission.ActionCreate, model.KindDocument, "", in.OrganisationID, ""); err != nil {
		return nil, err
	}
	if err := validation.Run(validation.Struct(in)); err != nil {
		return nil, err
	}

	d := &model.Document{Title: in.Title, OrganisationID: in.OrganisationID}
	if _, _, err := s.store.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return d, nil
}

// GetDocument возвращает документ каталога.
func (s *Service) GetDocument(ctx context.Context, actor permission.Actor, id string) (*model.Document, error) {
	d, err := repository.Load[model.Document](ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, permission.ActionRead, model.KindDocument, d.ID, d.OrganisationID, ""); err != nil {
		return nil, err
	}
	return d, nil
}
