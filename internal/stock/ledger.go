package stock

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
)

// DebitRequest asks the ledger to remove qty units of one menu stock unit.
type DebitRequest struct {
	MenuStockUnitID uuid.UUID
	Qty             int
}

// DebitShortfall describes a unit that could not cover the requested qty.
type DebitShortfall struct {
	MenuStockUnitID uuid.UUID `json:"menu_stock_unit_id"`
	RequestedQty    int       `json:"requested_qty"`
	AvailableQty    int       `json:"available_qty"`
}

// DebitResult reports the post-debit availability of one unit.
type DebitResult struct {
	MenuStockUnitID uuid.UUID
	RemainingQty    int
}

// Debit removes stock for every request inside the caller's transaction.
// Each update is guarded so available_qty never goes negative; any shortfall
// aborts the whole batch with an insufficient-stock error carrying details.
// The returned results carry the remaining availability per unit so callers
// can repair other carts after commit.
func Debit(ctx context.Context, tx *gorm.DB, requests []DebitRequest) ([]DebitResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock debit")
	}

	results := make([]DebitResult, 0, len(requests))
	for _, req := range requests {
		if req.MenuStockUnitID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu stock unit ID is required")
		}
		if req.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "debit qty must be positive")
		}

		res := tx.WithContext(ctx).Exec(`
			UPDATE menu_stock_units
			SET available_qty = available_qty - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND active AND available_qty >= ?
		`, req.Qty, req.MenuStockUnitID, req.Qty)
		if res.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "debit stock")
		}
		if res.RowsAffected == 0 {
			available, err := currentAvailability(ctx, tx, req.MenuStockUnitID)
			if err != nil {
				return nil, err
			}
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(DebitShortfall{
					MenuStockUnitID: req.MenuStockUnitID,
					RequestedQty:    req.Qty,
					AvailableQty:    available,
				})
		}

		remaining, err := currentAvailability(ctx, tx, req.MenuStockUnitID)
		if err != nil {
			return nil, err
		}
		results = append(results, DebitResult{MenuStockUnitID: req.MenuStockUnitID, RemainingQty: remaining})
	}
	return results, nil
}

// Credit returns stock to a unit inside the caller's transaction. Credits
// back inactive units too: a cancelled order must not strand its quantities.
func Credit(ctx context.Context, tx *gorm.DB, unitID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock credit")
	}
	if unitID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "menu stock unit ID is required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit qty must be positive")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE menu_stock_units
		SET available_qty = available_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, unitID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "credit stock")
	}
	return nil
}

func currentAvailability(ctx context.Context, tx *gorm.DB, unitID uuid.UUID) (int, error) {
	var available int
	row := tx.WithContext(ctx).Raw(
		`SELECT available_qty FROM menu_stock_units WHERE id = ? AND active`, unitID,
	).Row()
	err := row.Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		// Missing or inactive units report zero availability.
		return 0, nil
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read stock availability")
	}
	return available, nil
}
