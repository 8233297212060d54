package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
)

func TestDebitGuardsAvailability(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	plenty := seedUnit(t, db, "Ube Loaf", 5)
	scarce := seedUnit(t, db, "Ensaymada Box", 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		results, terr := Debit(ctx, tx, []DebitRequest{
			{MenuStockUnitID: plenty.ID, Qty: 3},
			{MenuStockUnitID: scarce.ID, Qty: 1},
		})
		if terr != nil {
			return terr
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].RemainingQty != 2 || results[1].RemainingQty != 0 {
			t.Fatalf("unexpected remaining quantities %+v", results)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}

	if got := loadQty(t, db, plenty.ID); got != 2 {
		t.Fatalf("expected qty 2, got %d", got)
	}
	if got := loadQty(t, db, scarce.ID); got != 0 {
		t.Fatalf("expected qty 0, got %d", got)
	}
}

func TestDebitShortfallAbortsBatch(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	first := seedUnit(t, db, "Pandesal Dozen", 10)
	second := seedUnit(t, db, "Cheese Roll", 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := Debit(ctx, tx, []DebitRequest{
			{MenuStockUnitID: first.ID, Qty: 4},
			{MenuStockUnitID: second.ID, Qty: 3},
		})
		return terr
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}

	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	shortfall, ok := typed.Details().(DebitShortfall)
	if !ok {
		t.Fatalf("unexpected details type %T", typed.Details())
	}
	if shortfall.MenuStockUnitID != second.ID || shortfall.RequestedQty != 3 || shortfall.AvailableQty != 2 {
		t.Fatalf("unexpected shortfall %+v", shortfall)
	}

	// The transaction rolled back, so the first unit is untouched.
	if got := loadQty(t, db, first.ID); got != 10 {
		t.Fatalf("expected qty 10 after rollback, got %d", got)
	}
}

func TestDebitRejectsInactiveUnit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	unit := seedUnit(t, db, "Retired Cake", 5)
	if err := db.Model(&models.MenuStockUnit{}).Where("id = ?", unit.ID).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate unit: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := Debit(ctx, tx, []DebitRequest{{MenuStockUnitID: unit.ID, Qty: 1}})
		return terr
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDebitRejectsInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	unit := seedUnit(t, db, "Mamon", 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := Debit(context.Background(), tx, []DebitRequest{{MenuStockUnitID: unit.ID, Qty: 0}})
		return terr
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreditRestoresStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	unit := seedUnit(t, db, "Brazo de Mercedes", 1)
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := Debit(ctx, tx, []DebitRequest{{MenuStockUnitID: unit.ID, Qty: 1}}); err != nil {
			return err
		}
		return Credit(ctx, tx, unit.ID, 1)
	})
	if err != nil {
		t.Fatalf("debit then credit: %v", err)
	}

	if got := loadQty(t, db, unit.ID); got != 1 {
		t.Fatalf("expected qty 1, got %d", got)
	}
}

func TestCreditAppliesToInactiveUnit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	unit := seedUnit(t, db, "Seasonal Bibingka", 0)
	if err := db.Model(&models.MenuStockUnit{}).Where("id = ?", unit.ID).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate unit: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return Credit(ctx, tx, unit.ID, 2)
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if got := loadQty(t, db, unit.ID); got != 2 {
		t.Fatalf("expected qty 2, got %d", got)
	}
}

func TestCurrentAvailabilityDistinguishesMissingFromFailure(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	got, err := currentAvailability(ctx, db, uuid.New())
	if err != nil {
		t.Fatalf("missing unit must not error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0 availability for a missing unit, got %d", got)
	}

	id := uuid.New()
	if err := db.Exec(
		`INSERT INTO menu_stock_units (id, name, price_cents, available_qty, active) VALUES (?, ?, ?, ?, 1)`,
		id, "Unreadable Row", 15000, "not-a-number",
	).Error; err != nil {
		t.Fatalf("seed row: %v", err)
	}

	_, err = currentAvailability(ctx, db, id)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error for an unreadable availability, got %v", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS menu_stock_units (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  size TEXT,
  price_cents INTEGER NOT NULL,
  available_qty INTEGER NOT NULL DEFAULT 0,
  active INTEGER NOT NULL DEFAULT 1,
  custom_cake_id TEXT UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func seedUnit(t *testing.T, db *gorm.DB, name string, qty int) *models.MenuStockUnit {
	t.Helper()
	unit := &models.MenuStockUnit{
		ID:           uuid.New(),
		Name:         name,
		PriceCents:   15000,
		AvailableQty: qty,
		Active:       true,
	}
	if err := db.Create(unit).Error; err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	return unit
}

func loadQty(t *testing.T, db *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var unit models.MenuStockUnit
	if err := db.First(&unit, "id = ?", id).Error; err != nil {
		t.Fatalf("load unit: %v", err)
	}
	return unit.AvailableQty
}
