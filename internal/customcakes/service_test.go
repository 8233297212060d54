package customcakes

import (
	"context"
	"encoding/json"
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

type cakeTxRunner struct {
	db *gorm.DB
}

func (r cakeTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func newCakesTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cakes_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS custom_cake_orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  flavor TEXT NOT NULL,
  size_tier TEXT NOT NULL,
  layers INTEGER NOT NULL DEFAULT 1,
  message TEXT,
  theme TEXT,
  image_url TEXT,
  model_spec TEXT,
  status TEXT NOT NULL DEFAULT 'Pending Review',
  staff_notes TEXT,
  price_cents INTEGER,
  downpayment_cents INTEGER NOT NULL DEFAULT 0,
  balance_cents INTEGER NOT NULL DEFAULT 0,
  is_downpayment_paid INTEGER NOT NULL DEFAULT 0,
  final_payment_status TEXT NOT NULL DEFAULT 'pending',
  scheduled_date DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
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

type cakesFixture struct {
	db  *gorm.DB
	svc Service
}

func newCakesFixture(t *testing.T) *cakesFixture {
	t.Helper()
	db := newCakesTestDB(t)
	svc, err := NewService(
		NewRepository(db),
		stock.NewRepository(db),
		cakeTxRunner{db: db},
		logger.New(logger.Options{ServiceName: "test"}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &cakesFixture{db: db, svc: svc}
}

func (f *cakesFixture) submit3D(t *testing.T, customerID uuid.UUID) *models.CustomCakeOrder {
	t.Helper()
	cake, err := f.svc.Submit(context.Background(), SubmitInput{
		CustomerID: customerID,
		Kind:       enums.CakeKind3D,
		Flavor:     "Ube Halaya",
		SizeTier:   "8-inch",
		Layers:     2,
		ModelSpec:  json.RawMessage(`{"topper":"stars","frosting":"swiss meringue"}`),
	})
	if err != nil {
		t.Fatalf("submit cake: %v", err)
	}
	return cake
}

func (f *cakesFixture) priced(t *testing.T, customerID uuid.UUID, priceCents int) *models.CustomCakeOrder {
	t.Helper()
	ctx := context.Background()
	cake := f.submit3D(t, customerID)
	if _, err := f.svc.Decision(ctx, cake.ID, true, nil); err != nil {
		t.Fatalf("decision: %v", err)
	}
	cake, err := f.svc.Price(ctx, cake.ID, priceCents)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	return cake
}

func (f *cakesFixture) slotFor(t *testing.T, cakeID uuid.UUID) *models.MenuStockUnit {
	t.Helper()
	slot, err := stock.NewRepository(f.db).GetByCustomCakeID(context.Background(), cakeID)
	if err != nil {
		t.Fatalf("load slot: %v", err)
	}
	return slot
}

func TestSubmitValidatesKindRequirements(t *testing.T) {
	t.Parallel()
	f := newCakesFixture(t)
	ctx := context.Background()
	customerID := uuid.New()

	_, err := f.svc.Submit(ctx, SubmitInput{
		CustomerID: customerID,
		Kind:       enums.CakeKind3D,
		Flavor:     "Mocha",
		SizeTier:   "6-inch",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for 3d cake without model spec, got %v", err)
	}

	_, err = f.svc.Submit(ctx, SubmitInput{
		CustomerID: customerID,
		Kind:       enums.CakeKindImage,
		Flavor:     "Mocha",
		SizeTier:   "6-inch",
	})
	appErr = pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for image cake without reference, got %v", err)
	}

	imageURL := "https://cdn.example.com/inspo/123.jpg"
	cake, err := f.svc.Submit(ctx, SubmitInput{
		CustomerID: customerID,
		Kind:       enums.CakeKindImage,
		Flavor:     "Mocha",
		SizeTier:   "6-inch",
		ImageURL:   &imageURL,
	})
	if err != nil {
		t.Fatalf("submit image cake: %v", err)
	}
	if cake.Status != enums.CakeStatusPendingReview {
		t.Fatalf("status = %q, want %q", cake.Status, enums.CakeStatusPendingReview)
	}
	if cake.Layers != 1 {
		t.Fatalf("layers defaulted to %d, want 1", cake.Layers)
	}
}

func TestDecisionBranchesFromPendingReview(t *testing.T) {
	t.Parallel()
	f := newCakesFixture(t)
	ctx := context.Background()

	notes := "needs two days of lead time"
	cake := f.submit3D(t, uuid.New())
	updated, err := f.svc.Decision(ctx, cake.ID, true, &notes)
	if err != nil {
		t.Fatalf("decision: %v", err)
	}
	if updated.Status != enums.CakeStatusFeasible {
		t.Fatalf("status = %q, want %q", updated.Status, enums.CakeStatusFeasible)
	}
	if updated.StaffNotes == nil || *updated.StaffNotes != notes {
		t.Fatalf("staff notes not stored: %v", updated.StaffNotes)
	}

	rejected := f.submit3D(t, uuid.New())
	updated, err = f.svc.Decision(ctx, rejected.ID, false, nil)
	if err != nil {
		t.Fatalf("decision: %v", err)
	}
	if updated.Status != enums.CakeStatusNotFeasible {
		t.Fatalf("status = %q, want %q", updated.Status, enums.CakeStatusNotFeasible)
	}

	_, err = f.svc.Decision(ctx, rejected.ID, true, nil)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid transition on re-decision, got %v", err)
	}
}

func TestPriceSplitsDownpaymentExactly(t *testing.T) {
	t.Parallel()
	f := newCakesFixture(t)

	cake := f.priced(t, uuid.New(), 350000)
	if cake.PriceCents == nil || *cake.PriceCents != 350000 {
		t.Fatalf("price not stored: %v", cake.PriceCents)
	}
	if cake.DownpaymentCents != 175000 || cake.BalanceCents != 175000 {
		t.Fatalf("split = %d/%d, want 175000/175000", cake.DownpaymentCents, cake.BalanceCents)
	}
	if cake.Status != enums.CakeStatusReadyForDownpayment {
		t.Fatalf("status = %q, want %q", cake.Status, enums.CakeStatusReadyForDownpayment)
	}
}

func TestPriceOddAmountSumsToPrice(t *testing.T) {
	t.Parallel()
	f := newCakesFixture(t)

	cake := f.priced(t, uuid.New(), 125001)
	if cake.DownpaymentCents+cake.BalanceCents != 125001 {
		t.Fatalf("split %d + %d does not sum to price", cake.DownpaymentCents, cake.BalanceCents)
	}
	if cake.DownpaymentCents < cake.BalanceCents {
		t.Fatalf("odd centavo should land on the downpayment, got %d/%d", cake.DownpaymentCents, cake.BalanceCents)
	}
}

func TestPriceCreatesCapacityOneSlot(t *testing.T) {
	t.Parallel()
	f := newCakesFixture(t)

	cake := f.priced(t, uuid.New(), 200000)
	slot := f.slotFor(t, cake.ID)
	if slot.AvailableQty != 1 {
		t.Fatalf("slot qty = %d, want 1", slot.AvailableQty)
	}
	if !slot.Active {
		t.Fatalf("slot should be active")
	}
	if slot.PriceCents != 200000 {
		t.Fatalf("slot price = %d, want 200000", slot.PriceCents)
	}
	if slot.Name != "Custom Cake: Ube Halaya" {
		t.Fatalf("slot name = %q", slot.Name)
	}
}

func TestPriceRequiresFeasibleStatus(t *testing.T) {
	t.Parallel()
	f := newCakesFixture(t)
	ctx := context.Background()

	cake := f.submit3D(t, uuid.New())
	_, err := f.svc.Price(ctx, cake.ID, 100000)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid transition pricing a pending cake, got %v", err)
	}

	_, err = f.svc.Price(ctx, cake.ID, 0)
	appErr = pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero price, got %v", err)
	}
}

func TestAdvanceWalksProductionPath(t *testing.T) {
	t.Parallel()
	f := newCakesFixture(t)
	ctx := context.Background()

	cake := f.priced(t, uuid.New(), 180000)
	if err := f.svc.SettleDownpaymentTx(ctx, f.db, cake.ID); err != nil {
		t.Fatalf("settle downpayment: %v", err)
	}

	want := []enums.CustomCakeStatus{
		enums.CakeStatusInProgress,
		enums.CakeStatusReadyForPickup,
		enums.CakeStatusCompleted,
	}
	for _, status := range want {
		updated, err := f.svc.Advance(ctx, cake.ID)
		if err != nil {
			t.Fatalf("advance to %q: %v", status, err)
		}
		if updated.Status != status {
			t.Fatalf("status = %q, want %q", updated.Status, status)
		}
	}

	_, err := f.svc.Advance(ctx, cake.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid transition past completion, got %v", err)
	}
}

func TestAdvanceRejectsUnpaidDownpayment(t *testing.T) {
	t.Parallel()
	f := newCakesFixture(t)

	cake := f.priced(t, uuid.New(), 180000)
	_, err := f.svc.Advance(context.Background(), cake.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid transition before downpayment, got %v", err)
	}
}

func TestSettleDownpaymentTxIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newCakesFixture(t)
	ctx := context.Background()

	cake := f.priced(t, uuid.New(), 240000)
	if err := f.svc.SettleDownpaymentTx(ctx, f.db, cake.ID); err != nil {
		t.Fatalf("settle downpayment: %v", err)
	}
	if err := f.svc.SettleDownpaymentTx(ctx, f.db, cake.ID); err != nil {
		t.Fatalf("repeat settle should no-op, got %v", err)
	}

	reloaded, err := f.svc.GetByID(ctx, cake.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.IsDownpaymentPaid {
		t.Fatalf("downpayment flag not set")
	}
	if reloaded.Status != enums.CakeStatusDownpaymentPaid {
		t.Fatalf("status = %q, want %q", reloaded.Status, enums.CakeStatusDownpaymentPaid)
	}
}

func TestSettleDownpaymentTxRejectsCancelledCake(t *testing.T) {
	t.Parallel()
	f := newCakesFixture(t)
	ctx := context.Background()

	cake := f.priced(t, uuid.New(), 240000)
	if _, err := f.svc.Cancel(ctx, cake.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	err := f.svc.SettleDownpaymentTx(ctx, f.db, cake.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict settling a cancelled cake, got %v", err)
	}
}

func TestSettleBalanceTxRequiresDownpayment(t *testing.T) {
	t.Parallel()
	f := newCakesFixture(t)
	ctx := context.Background()

	cake := f.priced(t, uuid.New(), 160000)
	err := f.svc.SettleBalanceTx(ctx, f.db, cake.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict before downpayment, got %v", err)
	}

	if err := f.svc.SettleDownpaymentTx(ctx, f.db, cake.ID); err != nil {
		t.Fatalf("settle downpayment: %v", err)
	}
	if err := f.svc.SettleBalanceTx(ctx, f.db, cake.ID); err != nil {
		t.Fatalf("settle balance: %v", err)
	}
	if err := f.svc.SettleBalanceTx(ctx, f.db, cake.ID); err != nil {
		t.Fatalf("repeat balance settle should no-op, got %v", err)
	}

	reloaded, err := f.svc.GetByID(ctx, cake.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.FinalPaymentStatus != enums.FinalPaymentPaid {
		t.Fatalf("final payment = %q, want %q", reloaded.FinalPaymentStatus, enums.FinalPaymentPaid)
	}
}

func TestMarkBalanceCollectedIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newCakesFixture(t)
	ctx := context.Background()

	cake := f.priced(t, uuid.New(), 160000)
	_, err := f.svc.MarkBalanceCollected(ctx, cake.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict before downpayment, got %v", err)
	}

	if err := f.svc.SettleDownpaymentTx(ctx, f.db, cake.ID); err != nil {
		t.Fatalf("settle downpayment: %v", err)
	}
	updated, err := f.svc.MarkBalanceCollected(ctx, cake.ID)
	if err != nil {
		t.Fatalf("mark balance collected: %v", err)
	}
	if updated.FinalPaymentStatus != enums.FinalPaymentPaid {
		t.Fatalf("final payment = %q, want %q", updated.FinalPaymentStatus, enums.FinalPaymentPaid)
	}
	if _, err := f.svc.MarkBalanceCollected(ctx, cake.ID); err != nil {
		t.Fatalf("repeat mark should no-op, got %v", err)
	}
}

func TestCancelRetiresStockSlot(t *testing.T) {
	t.Parallel()
	f := newCakesFixture(t)
	ctx := context.Background()

	cake := f.priced(t, uuid.New(), 300000)
	updated, err := f.svc.Cancel(ctx, cake.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.Status != enums.CakeStatusCancelled {
		t.Fatalf("status = %q, want %q", updated.Status, enums.CakeStatusCancelled)
	}

	slot := f.slotFor(t, cake.ID)
	if slot.Active {
		t.Fatalf("slot should be retired after cancellation")
	}

	_, err = f.svc.Cancel(ctx, cake.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid transition cancelling twice, got %v", err)
	}
}
