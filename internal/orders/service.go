package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delacruzbakes/bakeshop-backend/internal/cart"
	"github.com/delacruzbakes/bakeshop-backend/internal/stock"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type statusNotifier interface {
	OrderStatusChanged(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus)
}

type cartSweeper interface {
	Sweep(ctx context.Context, unitID uuid.UUID, available int, excludeCustomer uuid.UUID) error
}

// Service defines the order lifecycle operations.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error)
	Get(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error)
	Advance(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ConfirmCash(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	SettleDeferredTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*DeferredSettlement, error)
	RunSweeps(ctx context.Context, customerID uuid.UUID, debits []stock.DebitResult)
}

// CheckoutInput captures the payload required to commit a cart.
type CheckoutInput struct {
	CustomerID     uuid.UUID
	PaymentMethod  enums.PaymentMethod
	DeliveryMethod enums.DeliveryMethod
	ScheduledDate  time.Time
}

// DeferredSettlement reports what a deferred-commit settlement consumed so
// the caller can repair other carts after its transaction commits.
type DeferredSettlement struct {
	CustomerID uuid.UUID
	Debits     []stock.DebitResult
}

type service struct {
	repo     Repository
	cartRepo cart.Repository
	units    stock.Repository
	tx       txRunner
	sweeper  cartSweeper
	notifier statusNotifier
	log      *logger.Logger
	now      func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, cartRepo cart.Repository, units stock.Repository, tx txRunner, sweeper cartSweeper, notifier statusNotifier, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if units == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if sweeper == nil {
		return nil, fmt.Errorf("cart sweeper required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("status notifier required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		cartRepo: cartRepo,
		units:    units,
		tx:       tx,
		sweeper:  sweeper,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}, nil
}

// Checkout snapshots the customer's cart into an order. Cash orders commit
// immediately: stock is debited and the cart cleared in the same transaction.
// Online orders are created as pending_payment with no debit; the payment
// reconciler settles them later.
func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer ID is required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if !input.DeliveryMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery method")
	}
	if input.ScheduledDate.IsZero() || input.ScheduledDate.Before(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled date must be in the future")
	}

	cartLines, err := s.cartRepo.ListByCustomer(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if len(cartLines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	orderLines, debits, err := s.snapshotLines(ctx, cartLines)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, line := range orderLines {
		total += line.TotalCents
	}

	status := enums.OrderStatusPending
	if input.PaymentMethod.CommitsOnConfirm() {
		status = enums.OrderStatusPendingPayment
	}

	order := &models.Order{
		ID:             uuid.New(),
		CustomerID:     input.CustomerID,
		Status:         status,
		PaymentMethod:  input.PaymentMethod,
		DeliveryMethod: input.DeliveryMethod,
		ScheduledDate:  input.ScheduledDate,
		TotalCents:     total,
		Lines:          orderLines,
	}

	var debitResults []stock.DebitResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if status != enums.OrderStatusPending {
			return nil
		}
		results, err := stock.Debit(ctx, tx, debits)
		if err != nil {
			return err
		}
		debitResults = results
		return s.cartRepo.WithTx(tx).ClearCustomer(ctx, input.CustomerID)
	})
	if err != nil {
		return nil, err
	}

	if status == enums.OrderStatusPending {
		s.RunSweeps(ctx, input.CustomerID, debitResults)
	}
	return order, nil
}

func (s *service) snapshotLines(ctx context.Context, cartLines []models.CartLine) ([]models.OrderLine, []stock.DebitRequest, error) {
	orderLines := make([]models.OrderLine, 0, len(cartLines))
	debits := make([]stock.DebitRequest, 0, len(cartLines))

	for _, cl := range cartLines {
		switch {
		case cl.MenuStockUnitID != nil:
			unit, err := s.units.GetByID(ctx, *cl.MenuStockUnitID)
			if err != nil {
				return nil, nil, err
			}
			if !unit.Active {
				return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "a cart line is no longer offered").
					WithDetails(map[string]any{"menu_stock_unit_id": unit.ID, "name": unit.Name})
			}
			orderLines = append(orderLines, models.OrderLine{
				ID:              uuid.New(),
				MenuStockUnitID: &unit.ID,
				Name:            unit.Name,
				Size:            unit.Size,
				UnitPriceCents:  unit.PriceCents,
				Qty:             cl.Qty,
				TotalCents:      unit.PriceCents * cl.Qty,
			})
			debits = append(debits, stock.DebitRequest{MenuStockUnitID: unit.ID, Qty: cl.Qty})

		case cl.CustomCakeID != nil:
			slot, err := s.units.GetByCustomCakeID(ctx, *cl.CustomCakeID)
			if err != nil {
				return nil, nil, err
			}
			orderLines = append(orderLines, models.OrderLine{
				ID:              uuid.New(),
				MenuStockUnitID: &slot.ID,
				Name:            slot.Name,
				Size:            slot.Size,
				UnitPriceCents:  slot.PriceCents,
				Qty:             1,
				TotalCents:      slot.PriceCents,
			})
			debits = append(debits, stock.DebitRequest{MenuStockUnitID: slot.ID, Qty: 1})

		default:
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart line references nothing")
		}
	}
	return orderLines, debits, nil
}

func (s *service) Get(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.GetForCustomer(ctx, customerID, orderID)
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer ID is required")
	}
	return s.repo.ListByCustomer(ctx, customerID)
}

// Advance applies the single legal staff transition from the order's current
// state.
func (s *service) Advance(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next, ok := NextStatus(order.Status)
	if !ok {
		return nil, transitionError(order.Status, "advance")
	}
	if order.Status == enums.OrderStatusPending && order.PaidAt == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cash payment has not been confirmed")
	}

	moved, err := s.repo.UpdateStatusGuarded(ctx, orderID, order.Status, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order changed state concurrently")
	}

	s.notifier.OrderStatusChanged(ctx, orderID, order.Status, next)
	order.Status = next
	return order, nil
}

// Cancel moves any non-terminal order to cancelled. Orders whose stock was
// already consumed are credited back line by line.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, transitionError(order.Status, enums.OrderStatusCancelled.String())
	}

	from := order.Status
	stockHeld := from != enums.OrderStatusPendingPayment

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		moved, err := s.repo.WithTx(tx).UpdateStatusGuarded(ctx, orderID, from, enums.OrderStatusCancelled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed state concurrently")
		}
		if res := tx.WithContext(ctx).Exec(
			`UPDATE orders SET cancelled_at = CURRENT_TIMESTAMP WHERE id = ?`, orderID,
		); res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "stamp cancellation")
		}
		if !stockHeld {
			return nil
		}
		for _, line := range order.Lines {
			if line.MenuStockUnitID == nil {
				continue
			}
			if err := stock.Credit(ctx, tx, *line.MenuStockUnitID, line.Qty); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.OrderStatusChanged(ctx, orderID, from, enums.OrderStatusCancelled)
	order.Status = enums.OrderStatusCancelled
	return order, nil
}

// ConfirmCash records that payment was collected and moves a pending order
// into processing. Advance refuses the pending state until this ran.
func (s *service) ConfirmCash(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodCash {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not payable in cash")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order was cancelled")
	}
	if order.PaidAt != nil {
		return order, nil
	}

	from := order.Status
	paidAt := s.now()
	order.PaidAt = &paidAt
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm cash payment")
		}
		if from != enums.OrderStatusPending {
			return nil
		}
		moved, err := repo.UpdateStatusGuarded(ctx, orderID, enums.OrderStatusPending, enums.OrderStatusProcessing)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm cash payment")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed state concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from == enums.OrderStatusPending {
		s.notifier.OrderStatusChanged(ctx, orderID, from, enums.OrderStatusProcessing)
		order.Status = enums.OrderStatusProcessing
	}
	return order, nil
}

// SettleDeferredTx transitions a deferred-commit order to processing inside
// the caller's transaction, debiting stock and clearing the cart. A repeat
// call on a settled order is a no-op; a reaped order is a hard conflict so
// the money can be flagged for staff follow-up.
func (s *service) SettleDeferredTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*DeferredSettlement, error) {
	repo := s.repo.WithTx(tx)
	order, err := repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case enums.OrderStatusPendingPayment:
		// fall through to settle
	case enums.OrderStatusCancelled:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment arrived for a cancelled order")
	default:
		return &DeferredSettlement{CustomerID: order.CustomerID}, nil
	}

	moved, err := repo.UpdateStatusGuarded(ctx, orderID, enums.OrderStatusPendingPayment, enums.OrderStatusProcessing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order")
	}
	if !moved {
		return &DeferredSettlement{CustomerID: order.CustomerID}, nil
	}

	debits := make([]stock.DebitRequest, 0, len(order.Lines))
	for _, line := range order.Lines {
		if line.MenuStockUnitID == nil {
			continue
		}
		debits = append(debits, stock.DebitRequest{MenuStockUnitID: *line.MenuStockUnitID, Qty: line.Qty})
	}
	results, err := stock.Debit(ctx, tx, debits)
	if err != nil {
		return nil, err
	}

	if res := tx.WithContext(ctx).Exec(
		`UPDATE orders SET paid_at = CURRENT_TIMESTAMP WHERE id = ?`, orderID,
	); res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "stamp payment")
	}

	if err := s.cartRepo.WithTx(tx).ClearCustomer(ctx, order.CustomerID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}

	s.notifier.OrderStatusChanged(ctx, orderID, enums.OrderStatusPendingPayment, enums.OrderStatusProcessing)
	return &DeferredSettlement{CustomerID: order.CustomerID, Debits: results}, nil
}

// RunSweeps repairs other customers' carts after a debit. Best effort only.
func (s *service) RunSweeps(ctx context.Context, customerID uuid.UUID, debits []stock.DebitResult) {
	for _, debit := range debits {
		if err := s.sweeper.Sweep(ctx, debit.MenuStockUnitID, debit.RemainingQty, customerID); err != nil {
			unitCtx := s.log.WithField(ctx, "menu_stock_unit_id", debit.MenuStockUnitID.String())
			s.log.Error(unitCtx, "cart sweep after debit failed", err)
		}
	}
}
