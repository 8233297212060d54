package stock

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
)

// Service defines staff and storefront operations over menu stock units.
type Service interface {
	ListMenu(ctx context.Context) ([]models.MenuStockUnit, error)
	GetUnit(ctx context.Context, id uuid.UUID) (*models.MenuStockUnit, error)
	CreateUnit(ctx context.Context, input CreateUnitInput) (*models.MenuStockUnit, error)
	UpdateUnit(ctx context.Context, id uuid.UUID, input UpdateUnitInput) (*models.MenuStockUnit, error)
}

// CreateUnitInput captures a new menu stock unit.
type CreateUnitInput struct {
	Name         string  `json:"name"`
	Size         *string `json:"size,omitempty"`
	PriceCents   int     `json:"price_cents"`
	AvailableQty int     `json:"available_qty"`
}

// UpdateUnitInput carries partial staff edits to an existing unit.
type UpdateUnitInput struct {
	Name         *string `json:"name,omitempty"`
	Size         *string `json:"size,omitempty"`
	PriceCents   *int    `json:"price_cents,omitempty"`
	AvailableQty *int    `json:"available_qty,omitempty"`
	Active       *bool   `json:"active,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires a stock service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListMenu(ctx context.Context) ([]models.MenuStockUnit, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) GetUnit(ctx context.Context, id uuid.UUID) (*models.MenuStockUnit, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) CreateUnit(ctx context.Context, input CreateUnitInput) (*models.MenuStockUnit, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit name is required")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}
	if input.AvailableQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available qty must not be negative")
	}

	unit := &models.MenuStockUnit{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(input.Name),
		Size:         input.Size,
		PriceCents:   input.PriceCents,
		AvailableQty: input.AvailableQty,
		Active:       true,
	}
	if err := s.repo.Create(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

func (s *service) UpdateUnit(ctx context.Context, id uuid.UUID, input UpdateUnitInput) (*models.MenuStockUnit, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit ID is required")
	}

	unit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit name must not be blank")
		}
		unit.Name = trimmed
	}
	if input.Size != nil {
		unit.Size = input.Size
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
		}
		unit.PriceCents = *input.PriceCents
	}
	if input.AvailableQty != nil {
		if *input.AvailableQty < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "available qty must not be negative")
		}
		unit.AvailableQty = *input.AvailableQty
	}
	if input.Active != nil {
		unit.Active = *input.Active
	}

	if err := s.repo.Update(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}
