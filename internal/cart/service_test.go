package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/delacruzbakes/bakeshop-backend/internal/stock"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
)

type stubCakeLoader struct {
	cakes map[uuid.UUID]*models.CustomCakeOrder
}

func (s *stubCakeLoader) GetByID(_ context.Context, id uuid.UUID) (*models.CustomCakeOrder, error) {
	if cake, ok := s.cakes[id]; ok {
		return cake, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "custom cake order not found")
}

func newCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
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
);
CREATE TABLE IF NOT EXISTS cart_lines (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  menu_stock_unit_id TEXT,
  custom_cake_id TEXT,
  qty INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func newCartService(t *testing.T, db *gorm.DB, cakes *stubCakeLoader) Service {
	t.Helper()
	if cakes == nil {
		cakes = &stubCakeLoader{cakes: map[uuid.UUID]*models.CustomCakeOrder{}}
	}
	svc, err := NewService(
		NewRepository(db),
		stock.NewRepository(db),
		cakes,
		logger.New(logger.Options{ServiceName: "test"}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedCartUnit(t *testing.T, db *gorm.DB, name string, qty, priceCents int) *models.MenuStockUnit {
	t.Helper()
	unit := &models.MenuStockUnit{
		ID:           uuid.New(),
		Name:         name,
		PriceCents:   priceCents,
		AvailableQty: qty,
		Active:       true,
	}
	if err := db.Create(unit).Error; err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	return unit
}

func TestAddMenuItemCreatesAndTopsUp(t *testing.T) {
	t.Parallel()

	db := newCartTestDB(t)
	svc := newCartService(t, db, nil)
	ctx := context.Background()
	customer := uuid.New()
	unit := seedCartUnit(t, db, "Chocolate Cake", 5, 85000)

	line, err := svc.AddMenuItem(ctx, customer, unit.ID, 2)
	if err != nil {
		t.Fatalf("add menu item: %v", err)
	}
	if line.Qty != 2 || line.UnitPriceCents != 85000 {
		t.Fatalf("unexpected line %+v", line)
	}

	again, err := svc.AddMenuItem(ctx, customer, unit.ID, 1)
	if err != nil {
		t.Fatalf("top up: %v", err)
	}
	if again.ID != line.ID || again.Qty != 3 {
		t.Fatalf("expected merged line with qty 3, got %+v", again)
	}
}

func TestAddMenuItemRejectsOverAvailability(t *testing.T) {
	t.Parallel()

	db := newCartTestDB(t)
	svc := newCartService(t, db, nil)
	unit := seedCartUnit(t, db, "Ensaymada Box", 2, 18000)

	_, err := svc.AddMenuItem(context.Background(), uuid.New(), unit.ID, 3)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

func TestUpdateQtyRefreshesPrice(t *testing.T) {
	t.Parallel()

	db := newCartTestDB(t)
	svc := newCartService(t, db, nil)
	ctx := context.Background()
	customer := uuid.New()
	unit := seedCartUnit(t, db, "Ube Loaf", 10, 20000)

	line, err := svc.AddMenuItem(ctx, customer, unit.ID, 1)
	if err != nil {
		t.Fatalf("add menu item: %v", err)
	}

	if err := db.Model(&models.MenuStockUnit{}).Where("id = ?", unit.ID).Update("price_cents", 22000).Error; err != nil {
		t.Fatalf("reprice unit: %v", err)
	}

	updated, err := svc.UpdateQty(ctx, customer, line.ID, 4)
	if err != nil {
		t.Fatalf("update qty: %v", err)
	}
	if updated.Qty != 4 || updated.UnitPriceCents != 22000 {
		t.Fatalf("unexpected line %+v", updated)
	}
}

func TestAddCustomCakeRequiresPrice(t *testing.T) {
	t.Parallel()

	db := newCartTestDB(t)
	customer := uuid.New()
	unpriced := &models.CustomCakeOrder{
		ID:         uuid.New(),
		CustomerID: customer,
		Status:     enums.CakeStatusPendingReview,
	}
	price := 120000
	priced := &models.CustomCakeOrder{
		ID:         uuid.New(),
		CustomerID: customer,
		Status:     enums.CakeStatusReadyForDownpayment,
		PriceCents: &price,
	}
	svc := newCartService(t, db, &stubCakeLoader{cakes: map[uuid.UUID]*models.CustomCakeOrder{
		unpriced.ID: unpriced,
		priced.ID:   priced,
	}})
	ctx := context.Background()

	_, err := svc.AddCustomCake(ctx, customer, unpriced.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	line, err := svc.AddCustomCake(ctx, customer, priced.ID)
	if err != nil {
		t.Fatalf("add custom cake: %v", err)
	}
	if line.Qty != 1 || line.UnitPriceCents != 120000 {
		t.Fatalf("unexpected line %+v", line)
	}

	_, err = svc.AddCustomCake(ctx, uuid.New(), priced.ID)
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListFlagsUnavailableLines(t *testing.T) {
	t.Parallel()

	db := newCartTestDB(t)
	svc := newCartService(t, db, nil)
	ctx := context.Background()
	customer := uuid.New()
	unit := seedCartUnit(t, db, "Cheese Roll", 3, 9000)

	if _, err := svc.AddMenuItem(ctx, customer, unit.ID, 3); err != nil {
		t.Fatalf("add menu item: %v", err)
	}
	if err := db.Model(&models.MenuStockUnit{}).Where("id = ?", unit.ID).Update("available_qty", 1).Error; err != nil {
		t.Fatalf("shrink availability: %v", err)
	}

	views, err := svc.List(ctx, customer)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	if views[0].Available || views[0].AvailableQty != 1 {
		t.Fatalf("unexpected view %+v", views[0])
	}
}

func TestSweepShrinksAndDeletesOtherCarts(t *testing.T) {
	t.Parallel()

	db := newCartTestDB(t)
	svc := newCartService(t, db, nil)
	ctx := context.Background()

	buyer := uuid.New()
	shopperA := uuid.New()
	shopperB := uuid.New()
	unit := seedCartUnit(t, db, "Chocolate Cake", 5, 85000)

	for _, seed := range []struct {
		customer uuid.UUID
		qty      int
	}{
		{buyer, 5},
		{shopperA, 3},
		{shopperB, 1},
	} {
		if _, err := svc.AddMenuItem(ctx, seed.customer, unit.ID, seed.qty); err != nil {
			t.Fatalf("seed cart: %v", err)
		}
	}

	// Buyer purchased 4, leaving availability 1.
	if err := svc.Sweep(ctx, unit.ID, 1, buyer); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	aViews, err := svc.List(ctx, shopperA)
	if err != nil {
		t.Fatalf("list a: %v", err)
	}
	if len(aViews) != 1 || aViews[0].Line.Qty != 1 {
		t.Fatalf("expected shopper A shrunk to 1, got %+v", aViews)
	}

	bViews, err := svc.List(ctx, shopperB)
	if err != nil {
		t.Fatalf("list b: %v", err)
	}
	if len(bViews) != 1 || bViews[0].Line.Qty != 1 {
		t.Fatalf("expected shopper B untouched, got %+v", bViews)
	}

	buyerViews, err := svc.List(ctx, buyer)
	if err != nil {
		t.Fatalf("list buyer: %v", err)
	}
	if len(buyerViews) != 1 || buyerViews[0].Line.Qty != 5 {
		t.Fatalf("expected buyer excluded from sweep, got %+v", buyerViews)
	}
}

func TestSweepDeletesAtZeroAvailability(t *testing.T) {
	t.Parallel()

	db := newCartTestDB(t)
	svc := newCartService(t, db, nil)
	ctx := context.Background()

	buyer := uuid.New()
	other := uuid.New()
	unit := seedCartUnit(t, db, "Brazo de Mercedes", 1, 45000)

	if _, err := svc.AddMenuItem(ctx, other, unit.ID, 1); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	if err := svc.Sweep(ctx, unit.ID, 0, buyer); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	views, err := svc.List(ctx, other)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expected line evicted, got %+v", views)
	}
}
