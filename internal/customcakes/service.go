package customcakes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/delacruzbakes/bakeshop-backend/internal/stock"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the custom cake funnel operations.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.CustomCakeOrder, error)
	Get(ctx context.Context, customerID, cakeID uuid.UUID) (*models.CustomCakeOrder, error)
	GetByID(ctx context.Context, cakeID uuid.UUID) (*models.CustomCakeOrder, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CustomCakeOrder, error)
	ListByStatus(ctx context.Context, status enums.CustomCakeStatus) ([]models.CustomCakeOrder, error)
	Decision(ctx context.Context, cakeID uuid.UUID, feasible bool, notes *string) (*models.CustomCakeOrder, error)
	Price(ctx context.Context, cakeID uuid.UUID, priceCents int) (*models.CustomCakeOrder, error)
	Advance(ctx context.Context, cakeID uuid.UUID) (*models.CustomCakeOrder, error)
	MarkBalanceCollected(ctx context.Context, cakeID uuid.UUID) (*models.CustomCakeOrder, error)
	Cancel(ctx context.Context, cakeID uuid.UUID) (*models.CustomCakeOrder, error)
	SettleDownpaymentTx(ctx context.Context, tx *gorm.DB, cakeID uuid.UUID) error
	SettleBalanceTx(ctx context.Context, tx *gorm.DB, cakeID uuid.UUID) error
}

// SubmitInput captures a new 3D-configured or image-based cake request.
type SubmitInput struct {
	CustomerID uuid.UUID
	Kind       enums.CustomCakeKind
	Flavor     string
	SizeTier   string
	Layers     int
	Message    *string
	Theme      *string
	ImageURL   *string
	ModelSpec  json.RawMessage
}

type service struct {
	repo  Repository
	slots stock.Repository
	tx    txRunner
	log   *logger.Logger
}

// NewService builds a custom cake service with the required dependencies.
func NewService(repo Repository, slots stock.Repository, tx txRunner, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("custom cake repository required")
	}
	if slots == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, slots: slots, tx: tx, log: log}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.CustomCakeOrder, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer ID is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cake kind")
	}
	if strings.TrimSpace(input.Flavor) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "flavor is required")
	}
	if strings.TrimSpace(input.SizeTier) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size tier is required")
	}
	if input.Layers <= 0 {
		input.Layers = 1
	}
	switch input.Kind {
	case enums.CakeKind3D:
		if len(input.ModelSpec) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "3d cakes require a model spec")
		}
	case enums.CakeKindImage:
		if input.ImageURL == nil || strings.TrimSpace(*input.ImageURL) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "image cakes require a reference image")
		}
	}

	cake := &models.CustomCakeOrder{
		ID:         uuid.New(),
		CustomerID: input.CustomerID,
		Kind:       input.Kind,
		Flavor:     strings.TrimSpace(input.Flavor),
		SizeTier:   strings.TrimSpace(input.SizeTier),
		Layers:     input.Layers,
		Message:    input.Message,
		Theme:      input.Theme,
		ImageURL:   input.ImageURL,
		ModelSpec:  input.ModelSpec,
		Status:     enums.CakeStatusPendingReview,
	}
	if err := s.repo.Create(ctx, cake); err != nil {
		return nil, err
	}
	return cake, nil
}

func (s *service) Get(ctx context.Context, customerID, cakeID uuid.UUID) (*models.CustomCakeOrder, error) {
	return s.repo.GetForCustomer(ctx, customerID, cakeID)
}

func (s *service) GetByID(ctx context.Context, cakeID uuid.UUID) (*models.CustomCakeOrder, error) {
	return s.repo.GetByID(ctx, cakeID)
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CustomCakeOrder, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer ID is required")
	}
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *service) ListByStatus(ctx context.Context, status enums.CustomCakeStatus) ([]models.CustomCakeOrder, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cake status")
	}
	return s.repo.ListByStatus(ctx, status)
}

// Decision triages a submitted cake: feasible or not.
func (s *service) Decision(ctx context.Context, cakeID uuid.UUID, feasible bool, notes *string) (*models.CustomCakeOrder, error) {
	cake, err := s.repo.GetByID(ctx, cakeID)
	if err != nil {
		return nil, err
	}

	target := enums.CakeStatusFeasible
	if !feasible {
		target = enums.CakeStatusNotFeasible
	}
	if cake.Status != enums.CakeStatusPendingReview {
		return nil, cakeTransitionError(cake.Status, target.String())
	}

	moved, err := s.repo.UpdateStatusGuarded(ctx, cakeID, enums.CakeStatusPendingReview, target)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "triage cake")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cake changed state concurrently")
	}

	cake.Status = target
	if notes != nil {
		cake.StaffNotes = notes
		if err := s.repo.Save(ctx, cake); err != nil {
			return nil, err
		}
	}
	return cake, nil
}

// Price sets the quote on a feasible cake and opens the downpayment step.
// The 50% split is computed with decimal arithmetic; the balance is the
// exact complement so the two always sum to the price. A capacity-1 stock
// slot is created so the finished cake can never be sold twice.
func (s *service) Price(ctx context.Context, cakeID uuid.UUID, priceCents int) (*models.CustomCakeOrder, error) {
	if priceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}

	cake, err := s.repo.GetByID(ctx, cakeID)
	if err != nil {
		return nil, err
	}
	if cake.Status != enums.CakeStatusFeasible {
		return nil, cakeTransitionError(cake.Status, enums.CakeStatusReadyForDownpayment.String())
	}

	downpayment := decimal.NewFromInt(int64(priceCents)).
		Mul(decimal.NewFromFloat(0.5)).
		Round(0).
		IntPart()
	balance := int64(priceCents) - downpayment

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.UpdateStatusGuarded(ctx, cakeID, enums.CakeStatusFeasible, enums.CakeStatusReadyForDownpayment)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "price cake")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "cake changed state concurrently")
		}

		if res := tx.WithContext(ctx).Exec(`
			UPDATE custom_cake_orders
			SET price_cents = ?, downpayment_cents = ?, balance_cents = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, priceCents, downpayment, balance, cakeID); res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "store cake pricing")
		}

		slotName := "Custom Cake: " + cake.Flavor
		slot := &models.MenuStockUnit{
			ID:           uuid.New(),
			Name:         slotName,
			Size:         &cake.SizeTier,
			PriceCents:   priceCents,
			AvailableQty: 1,
			Active:       true,
			CustomCakeID: &cake.ID,
		}
		if err := s.slots.WithTx(tx).Create(ctx, slot); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cake stock slot")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, cakeID)
}

// Advance applies the single legal staff transition on the production path.
func (s *service) Advance(ctx context.Context, cakeID uuid.UUID) (*models.CustomCakeOrder, error) {
	cake, err := s.repo.GetByID(ctx, cakeID)
	if err != nil {
		return nil, err
	}

	next, ok := NextStatus(cake.Status)
	if !ok {
		return nil, cakeTransitionError(cake.Status, "advance")
	}

	moved, err := s.repo.UpdateStatusGuarded(ctx, cakeID, cake.Status, next)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance cake")
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cake changed state concurrently")
	}

	cake.Status = next
	return cake, nil
}

// MarkBalanceCollected records the cash balance collected at fulfillment.
// It only flips the final payment status; the cake's production status is
// driven separately by Advance.
func (s *service) MarkBalanceCollected(ctx context.Context, cakeID uuid.UUID) (*models.CustomCakeOrder, error) {
	cake, err := s.repo.GetByID(ctx, cakeID)
	if err != nil {
		return nil, err
	}
	if !cake.IsDownpaymentPaid {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "downpayment has not been settled")
	}
	if cake.FinalPaymentStatus == enums.FinalPaymentPaid {
		return cake, nil
	}

	if err := s.repo.SetFinalPaymentPaid(ctx, cakeID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark balance collected")
	}
	cake.FinalPaymentStatus = enums.FinalPaymentPaid
	return cake, nil
}

// Cancel is reachable from any pre-completion state. The capacity-1 stock
// slot, if one was created at pricing, is deactivated with it.
func (s *service) Cancel(ctx context.Context, cakeID uuid.UUID) (*models.CustomCakeOrder, error) {
	cake, err := s.repo.GetByID(ctx, cakeID)
	if err != nil {
		return nil, err
	}
	if cake.Status.IsTerminal() {
		return nil, cakeTransitionError(cake.Status, enums.CakeStatusCancelled.String())
	}

	from := cake.Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		moved, err := repo.UpdateStatusGuarded(ctx, cakeID, from, enums.CakeStatusCancelled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel cake")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeConflict, "cake changed state concurrently")
		}
		if res := tx.WithContext(ctx).Exec(
			`UPDATE custom_cake_orders SET cancelled_at = CURRENT_TIMESTAMP WHERE id = ?`, cakeID,
		); res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "stamp cancellation")
		}
		if res := tx.WithContext(ctx).Exec(
			`UPDATE menu_stock_units SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE custom_cake_id = ?`,
			false, cakeID,
		); res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "retire cake stock slot")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cake.Status = enums.CakeStatusCancelled
	return cake, nil
}

// SettleDownpaymentTx moves a cake to Downpayment Paid inside the caller's
// transaction. A repeat settlement is a no-op; the paid flag never reverts.
func (s *service) SettleDownpaymentTx(ctx context.Context, tx *gorm.DB, cakeID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	cake, err := repo.GetByID(ctx, cakeID)
	if err != nil {
		return err
	}

	if cake.IsDownpaymentPaid {
		return nil
	}
	if cake.Status == enums.CakeStatusCancelled {
		return pkgerrors.New(pkgerrors.CodeConflict, "payment arrived for a cancelled cake")
	}
	if cake.Status != enums.CakeStatusReadyForDownpayment {
		return cakeTransitionError(cake.Status, enums.CakeStatusDownpaymentPaid.String())
	}

	moved, err := repo.UpdateStatusGuarded(ctx, cakeID, enums.CakeStatusReadyForDownpayment, enums.CakeStatusDownpaymentPaid)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle downpayment")
	}
	if !moved {
		return nil
	}

	if err := repo.SetDownpaymentPaid(ctx, cakeID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag downpayment paid")
	}
	return nil
}

// SettleBalanceTx flips the final payment status inside the caller's
// transaction. Requires a settled downpayment; repeat settlements no-op.
func (s *service) SettleBalanceTx(ctx context.Context, tx *gorm.DB, cakeID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	cake, err := repo.GetByID(ctx, cakeID)
	if err != nil {
		return err
	}
	if cake.Status == enums.CakeStatusCancelled {
		return pkgerrors.New(pkgerrors.CodeConflict, "payment arrived for a cancelled cake")
	}
	if !cake.IsDownpaymentPaid {
		return pkgerrors.New(pkgerrors.CodeConflict, "downpayment has not been settled")
	}
	if cake.FinalPaymentStatus == enums.FinalPaymentPaid {
		return nil
	}

	if err := repo.SetFinalPaymentPaid(ctx, cakeID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle balance")
	}
	return nil
}
