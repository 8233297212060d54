package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/delacruzbakes/bakeshop-backend/internal/orders"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
)

type reaperTxRunner struct {
	db *gorm.DB
}

func (r reaperTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func newReaperTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reaper_" + uuid.NewString() + "?mode=memory&cache=shared"
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
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL DEFAULT 'cash',
  delivery_method TEXT NOT NULL DEFAULT 'pickup',
  scheduled_date DATETIME NOT NULL,
  total_cents INTEGER NOT NULL,
  paid_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  menu_stock_unit_id TEXT,
  name TEXT NOT NULL,
  size TEXT,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS payment_intents (
  id TEXT PRIMARY KEY,
  provider_source_id TEXT NOT NULL UNIQUE,
  order_id TEXT,
  custom_cake_order_id TEXT,
  purpose TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  outcome TEXT NOT NULL DEFAULT 'pending',
  checkout_url TEXT NOT NULL,
  failure_reason TEXT,
  settled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	if err := db.Exec(schema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func seedPendingOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, age time.Duration) *models.Order {
	t.Helper()
	unitID := uuid.New()
	unit := &models.MenuStockUnit{
		ID:           unitID,
		Name:         "Ensaymada Box",
		PriceCents:   45000,
		AvailableQty: 10,
		Active:       true,
	}
	if err := db.Create(unit).Error; err != nil {
		t.Fatalf("seed unit: %v", err)
	}

	order := &models.Order{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		Status:        status,
		PaymentMethod: enums.PaymentMethodOnline,
		ScheduledDate: time.Now().Add(72 * time.Hour),
		TotalCents:    90000,
		CreatedAt:     time.Now().UTC().Add(-age),
		Lines: []models.OrderLine{{
			ID:              uuid.New(),
			MenuStockUnitID: &unitID,
			Name:            unit.Name,
			UnitPriceCents:  unit.PriceCents,
			Qty:             2,
			TotalCents:      90000,
		}},
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	intent := &models.PaymentIntent{
		ID:               uuid.New(),
		ProviderSourceID: "src_" + uuid.NewString(),
		OrderID:          &order.ID,
		Purpose:          enums.PaymentPurposeOrder,
		AmountCents:      90000,
		Outcome:          enums.IntentOutcomePending,
		CheckoutURL:      "https://checkout.test/x",
	}
	if err := db.Create(intent).Error; err != nil {
		t.Fatalf("seed intent: %v", err)
	}
	return order
}

func newReaperJob(t *testing.T, db *gorm.DB, timeout time.Duration) Job {
	t.Helper()
	job, err := NewAbandonedCheckoutJob(AbandonedCheckoutJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
		DB:            reaperTxRunner{db: db},
		PendingReader: orders.NewRepository(db),
		Timeout:       timeout,
	})
	if err != nil {
		t.Fatalf("NewAbandonedCheckoutJob: %v", err)
	}
	return job
}

func orderRow(t *testing.T, db *gorm.DB, orderID uuid.UUID) (status string, cancelledAt *time.Time) {
	t.Helper()
	row := struct {
		Status      string
		CancelledAt *time.Time
	}{}
	if err := db.Raw(`SELECT status, cancelled_at FROM orders WHERE id = ?`, orderID).Scan(&row).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	return row.Status, row.CancelledAt
}

func countRows(t *testing.T, db *gorm.DB, query string, args ...any) int {
	t.Helper()
	var count int
	if err := db.Raw(query, args...).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

func TestReaperCancelsStalePendingPaymentOrders(t *testing.T) {
	t.Parallel()
	db := newReaperTestDB(t)
	stale := seedPendingOrder(t, db, enums.OrderStatusPendingPayment, time.Hour)
	job := newReaperJob(t, db, 30*time.Minute)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	status, cancelledAt := orderRow(t, db, stale.ID)
	if status != enums.OrderStatusCancelled.String() {
		t.Fatalf("status = %q, want cancelled", status)
	}
	if cancelledAt == nil {
		t.Fatalf("cancelled_at not stamped")
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM order_lines WHERE order_id = ?`, stale.ID); got != 0 {
		t.Fatalf("order lines not deleted: %d", got)
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM payment_intents WHERE order_id = ? AND outcome = 'failed'`, stale.ID); got != 1 {
		t.Fatalf("pending intent not failed")
	}
}

func TestReaperSkipsFreshAndNonPendingOrders(t *testing.T) {
	t.Parallel()
	db := newReaperTestDB(t)
	fresh := seedPendingOrder(t, db, enums.OrderStatusPendingPayment, 5*time.Minute)
	paid := seedPendingOrder(t, db, enums.OrderStatusProcessing, 2*time.Hour)
	job := newReaperJob(t, db, 30*time.Minute)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if status, _ := orderRow(t, db, fresh.ID); status != enums.OrderStatusPendingPayment.String() {
		t.Fatalf("fresh order reaped: %q", status)
	}
	if status, _ := orderRow(t, db, paid.ID); status != enums.OrderStatusProcessing.String() {
		t.Fatalf("settled order touched: %q", status)
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM order_lines`); got != 2 {
		t.Fatalf("lines deleted for untouched orders: %d", got)
	}
}

func TestReaperLeavesStockAlone(t *testing.T) {
	t.Parallel()
	db := newReaperTestDB(t)
	stale := seedPendingOrder(t, db, enums.OrderStatusPendingPayment, time.Hour)
	job := newReaperJob(t, db, 30*time.Minute)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	unitID := *stale.Lines[0].MenuStockUnitID
	if got := countRows(t, db, `SELECT available_qty FROM menu_stock_units WHERE id = ?`, unitID); got != 10 {
		t.Fatalf("stock mutated by reaper: %d", got)
	}
}
