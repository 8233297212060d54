package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
)

type unitLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.MenuStockUnit, error)
}

type cakeLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.CustomCakeOrder, error)
}

// Service exposes cart operations for a single customer plus the
// post-purchase reconciliation sweep.
type Service interface {
	AddMenuItem(ctx context.Context, customerID, unitID uuid.UUID, qty int) (*models.CartLine, error)
	AddCustomCake(ctx context.Context, customerID, cakeID uuid.UUID) (*models.CartLine, error)
	UpdateQty(ctx context.Context, customerID, lineID uuid.UUID, qty int) (*models.CartLine, error)
	RemoveLine(ctx context.Context, customerID, lineID uuid.UUID) error
	List(ctx context.Context, customerID uuid.UUID) ([]LineView, error)
	Sweep(ctx context.Context, unitID uuid.UUID, available int, excludeCustomer uuid.UUID) error
}

// LineView is a cart line annotated with current menu state.
type LineView struct {
	Line         models.CartLine `json:"line"`
	Available    bool            `json:"available"`
	AvailableQty int             `json:"available_qty"`
	PriceChanged bool            `json:"price_changed"`
}

type service struct {
	repo  Repository
	units unitLoader
	cakes cakeLoader
	log   *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, units unitLoader, cakes cakeLoader, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if units == nil {
		return nil, fmt.Errorf("unit loader required")
	}
	if cakes == nil {
		return nil, fmt.Errorf("cake loader required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, units: units, cakes: cakes, log: log}, nil
}

// AddMenuItem creates or tops up the customer's line for a menu stock unit,
// revalidating availability and refreshing the cached price.
func (s *service) AddMenuItem(ctx context.Context, customerID, unitID uuid.UUID, qty int) (*models.CartLine, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer ID is required")
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	unit, err := s.units.GetByID(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if !unit.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item is no longer offered")
	}

	existing, err := s.repo.FindByCustomerAndUnit(ctx, customerID, unitID)
	if err != nil {
		return nil, err
	}

	desired := qty
	if existing != nil {
		desired += existing.Qty
	}
	if desired > unit.AvailableQty {
		return nil, insufficientForLine(unit, desired)
	}

	if existing != nil {
		existing.Qty = desired
		existing.UnitPriceCents = unit.PriceCents
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	line := &models.CartLine{
		ID:              uuid.New(),
		CustomerID:      customerID,
		MenuStockUnitID: &unit.ID,
		Qty:             qty,
		UnitPriceCents:  unit.PriceCents,
	}
	if err := s.repo.Create(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// AddCustomCake places a priced custom cake into the cart. The quantity is
// pinned to one; the cake's capacity-1 stock slot enforces single sale.
func (s *service) AddCustomCake(ctx context.Context, customerID, cakeID uuid.UUID) (*models.CartLine, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer ID is required")
	}

	cake, err := s.cakes.GetByID(ctx, cakeID)
	if err != nil {
		return nil, err
	}
	if cake.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "custom cake belongs to another customer")
	}
	if cake.PriceCents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom cake has not been priced")
	}
	if cake.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom cake is no longer purchasable")
	}

	line := &models.CartLine{
		ID:             uuid.New(),
		CustomerID:     customerID,
		CustomCakeID:   &cake.ID,
		Qty:            1,
		UnitPriceCents: *cake.PriceCents,
	}
	if err := s.repo.Create(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateQty changes a line's quantity, revalidating against current stock and
// refreshing the cached price. Custom-cake lines stay at quantity one.
func (s *service) UpdateQty(ctx context.Context, customerID, lineID uuid.UUID, qty int) (*models.CartLine, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	line, err := s.repo.GetForCustomer(ctx, customerID, lineID)
	if err != nil {
		return nil, err
	}
	if line.CustomCakeID != nil {
		if qty != 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom cakes are limited to one per order")
		}
		return line, nil
	}

	unit, err := s.units.GetByID(ctx, *line.MenuStockUnitID)
	if err != nil {
		return nil, err
	}
	if !unit.Active {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item is no longer offered")
	}
	if qty > unit.AvailableQty {
		return nil, insufficientForLine(unit, qty)
	}

	line.Qty = qty
	line.UnitPriceCents = unit.PriceCents
	if err := s.repo.Update(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *service) RemoveLine(ctx context.Context, customerID, lineID uuid.UUID) error {
	line, err := s.repo.GetForCustomer(ctx, customerID, lineID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, line.ID)
}

// List returns the customer's lines annotated with current availability so
// the storefront can flag items that changed since they were added.
func (s *service) List(ctx context.Context, customerID uuid.UUID) ([]LineView, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer ID is required")
	}

	lines, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	views := make([]LineView, 0, len(lines))
	for _, line := range lines {
		view := LineView{Line: line, Available: true, AvailableQty: line.Qty}
		if line.MenuStockUnitID != nil {
			unit, err := s.units.GetByID(ctx, *line.MenuStockUnitID)
			if err != nil || !unit.Active {
				view.Available = false
				view.AvailableQty = 0
			} else {
				view.AvailableQty = unit.AvailableQty
				view.Available = unit.AvailableQty >= line.Qty
				view.PriceChanged = unit.PriceCents != line.UnitPriceCents
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// Sweep repairs other customers' lines for a unit after its availability
// dropped: lines over the new availability are shrunk, or deleted outright
// when nothing is left. Best effort; failures are logged and collected, never
// escalated to the purchase that triggered the sweep.
func (s *service) Sweep(ctx context.Context, unitID uuid.UUID, available int, excludeCustomer uuid.UUID) error {
	if unitID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit ID is required")
	}
	if available < 0 {
		available = 0
	}

	lines, err := s.repo.ListByUnit(ctx, unitID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines for sweep")
	}

	var swept error
	for _, line := range lines {
		if line.CustomerID == excludeCustomer {
			continue
		}
		if line.Qty <= available {
			continue
		}

		lineCtx := s.log.WithField(ctx, "cart_line_id", line.ID.String())
		if available == 0 {
			if err := s.repo.Delete(ctx, line.ID); err != nil {
				s.log.Error(lineCtx, "cart sweep delete failed", err)
				swept = multierr.Append(swept, err)
			}
			continue
		}

		line.Qty = available
		if err := s.repo.Update(ctx, &line); err != nil {
			s.log.Error(lineCtx, "cart sweep shrink failed", err)
			swept = multierr.Append(swept, err)
		}
	}
	return swept
}

func insufficientForLine(unit *models.MenuStockUnit, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"menu_stock_unit_id": unit.ID,
			"name":               unit.Name,
			"requested_qty":      requested,
			"available_qty":      unit.AvailableQty,
		})
}
