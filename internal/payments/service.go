package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/delacruzbakes/bakeshop-backend/internal/orders"
	"github.com/delacruzbakes/bakeshop-backend/internal/stock"
	"github.com/delacruzbakes/bakeshop-backend/pkg/config"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
	"github.com/delacruzbakes/bakeshop-backend/pkg/paymongo"
	pkgredis "github.com/delacruzbakes/bakeshop-backend/pkg/redis"
)

// minAmountCents is the processor's minimum charge in centavos.
const minAmountCents = 2000

const tokenExpiredHint = "payment session expired, check your orders page for the latest status"

type processorClient interface {
	CreateSource(ctx context.Context, req paymongo.CreateSourceRequest) (*paymongo.Source, error)
	GetSource(ctx context.Context, sourceID string) (*paymongo.Source, error)
}

type tokenStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	ReconcileTokenKey(token string) string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type orderSettler interface {
	SettleDeferredTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*orders.DeferredSettlement, error)
	RunSweeps(ctx context.Context, customerID uuid.UUID, debits []stock.DebitResult)
}

type cakeStore interface {
	GetByID(ctx context.Context, cakeID uuid.UUID) (*models.CustomCakeOrder, error)
	SettleDownpaymentTx(ctx context.Context, tx *gorm.DB, cakeID uuid.UUID) error
	SettleBalanceTx(ctx context.Context, tx *gorm.DB, cakeID uuid.UUID) error
}

type paymentNotifier interface {
	PaymentConfirmed(ctx context.Context, intentID uuid.UUID, purpose enums.PaymentPurpose, amountCents int)
}

// Service creates payment intents against the processor and reconciles
// their outcomes into exactly one aggregate mutation each.
type Service interface {
	CreateOrderIntent(ctx context.Context, customerID, orderID uuid.UUID) (*IntentHandle, error)
	CreateCakeIntent(ctx context.Context, customerID, cakeID uuid.UUID, downpayment bool) (*IntentHandle, error)
	Reconcile(ctx context.Context, sourceID string, verified bool) (*models.PaymentIntent, error)
	VerifyByToken(ctx context.Context, token string) (*models.PaymentIntent, error)
}

// IntentHandle is what the customer needs to complete a redirect payment:
// where to go, and the token to poll with afterwards.
type IntentHandle struct {
	Intent         *models.PaymentIntent `json:"intent"`
	CheckoutURL    string                `json:"checkout_url"`
	ReconcileToken string                `json:"reconcile_token"`
}

// ServiceParams collects the reconciler's dependencies.
type ServiceParams struct {
	Repo      Repository
	Orders    orderStore
	Settler   orderSettler
	Cakes     cakeStore
	Processor processorClient
	Tokens    tokenStore
	Tx        txRunner
	Notifier  paymentNotifier
	PayMongo  config.PayMongoConfig
	TokenTTL  time.Duration
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	orders    orderStore
	settler   orderSettler
	cakes     cakeStore
	processor processorClient
	tokens    tokenStore
	tx        txRunner
	notifier  paymentNotifier
	cfg       config.PayMongoConfig
	tokenTTL  time.Duration
	log       *logger.Logger
}

// NewService validates dependencies and builds the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment intent repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if params.Settler == nil {
		return nil, fmt.Errorf("order settler required")
	}
	if params.Cakes == nil {
		return nil, fmt.Errorf("custom cake store required")
	}
	if params.Processor == nil {
		return nil, fmt.Errorf("payment processor client required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token store required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.TokenTTL <= 0 {
		params.TokenTTL = 35 * time.Minute
	}
	return &service{
		repo:      params.Repo,
		orders:    params.Orders,
		settler:   params.Settler,
		cakes:     params.Cakes,
		processor: params.Processor,
		tokens:    params.Tokens,
		tx:        params.Tx,
		notifier:  params.Notifier,
		cfg:       params.PayMongo,
		tokenTTL:  params.TokenTTL,
		log:       params.Logger,
	}, nil
}

func (s *service) CreateOrderIntent(ctx context.Context, customerID, orderID uuid.UUID) (*IntentHandle, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	if !order.PaymentMethod.CommitsOnConfirm() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cash orders are settled at fulfillment")
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"status": order.Status.String()})
	}

	description := "Order " + order.ID.String()
	return s.createIntent(ctx, intentSpec{
		orderID:     &order.ID,
		purpose:     enums.PaymentPurposeOrder,
		amountCents: order.TotalCents,
		description: description,
	})
}

func (s *service) CreateCakeIntent(ctx context.Context, customerID, cakeID uuid.UUID, downpayment bool) (*IntentHandle, error) {
	cake, err := s.cakes.GetByID(ctx, cakeID)
	if err != nil {
		return nil, err
	}
	if cake.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "custom cake order belongs to another customer")
	}
	if cake.PriceCents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "custom cake order has not been priced")
	}

	spec := intentSpec{cakeID: &cake.ID}
	if downpayment {
		if cake.IsDownpaymentPaid {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "downpayment is already settled")
		}
		if cake.Status != enums.CakeStatusReadyForDownpayment {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "custom cake order is not awaiting a downpayment").
				WithDetails(map[string]any{"status": cake.Status.String()})
		}
		spec.purpose = enums.PaymentPurposeDownpayment
		spec.amountCents = cake.DownpaymentCents
		spec.description = "Custom cake downpayment " + cake.ID.String()
	} else {
		if !cake.IsDownpaymentPaid {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "downpayment has not been settled")
		}
		if cake.FinalPaymentStatus == enums.FinalPaymentPaid {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "balance is already settled")
		}
		spec.purpose = enums.PaymentPurposeBalance
		spec.amountCents = cake.BalanceCents
		spec.description = "Custom cake balance " + cake.ID.String()
	}
	return s.createIntent(ctx, spec)
}

type intentSpec struct {
	orderID     *uuid.UUID
	cakeID      *uuid.UUID
	purpose     enums.PaymentPurpose
	amountCents int
	description string
}

func (s *service) createIntent(ctx context.Context, spec intentSpec) (*IntentHandle, error) {
	if spec.amountCents < minAmountCents {
		return nil, pkgerrors.New(pkgerrors.CodeAmountBelowMinimum, "amount is below the processor minimum").
			WithDetails(map[string]any{
				"amount_cents":  spec.amountCents,
				"minimum_cents": minAmountCents,
			})
	}

	source, err := s.processor.CreateSource(ctx, paymongo.CreateSourceRequest{
		AmountCents: int64(spec.amountCents),
		SuccessURL:  s.cfg.SuccessRedirectURL,
		FailedURL:   s.cfg.FailedRedirectURL,
		Description: spec.description,
	})
	if err != nil {
		return nil, err
	}

	intent := &models.PaymentIntent{
		ID:                uuid.New(),
		ProviderSourceID:  source.ID,
		OrderID:           spec.orderID,
		CustomCakeOrderID: spec.cakeID,
		Purpose:           spec.purpose,
		AmountCents:       spec.amountCents,
		Outcome:           enums.IntentOutcomePending,
		CheckoutURL:       source.CheckoutURL,
	}
	if err := s.repo.Create(ctx, intent); err != nil {
		return nil, err
	}

	token := uuid.NewString()
	if err := s.tokens.Set(ctx, s.tokens.ReconcileTokenKey(token), source.ID, s.tokenTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reconciliation token")
	}

	intentCtx := s.log.WithIntentID(ctx, intent.ID.String())
	s.log.Info(intentCtx, "payment intent created")

	return &IntentHandle{
		Intent:         intent,
		CheckoutURL:    source.CheckoutURL,
		ReconcileToken: token,
	}, nil
}

// Reconcile folds one processor outcome into one aggregate mutation. Safe to
// call concurrently for the same source: the guarded intent update elects a
// single winner and every other caller observes the settled state.
//
// verified is true when the caller already trusts the outcome (webhook with a
// paid event); the client-poll path re-checks the source with bounded retries.
func (s *service) Reconcile(ctx context.Context, sourceID string, verified bool) (*models.PaymentIntent, error) {
	intent, err := s.repo.GetBySourceID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if intent.Outcome.IsSettled() {
		return intent, nil
	}

	status := paymongo.SourceStatusPaid
	if !verified {
		status, err = s.pollSourceStatus(ctx, sourceID)
		if err != nil {
			return nil, err
		}
	}

	switch status {
	case paymongo.SourceStatusPaid, paymongo.SourceStatusChargeable:
		return s.settlePaid(ctx, intent)
	case paymongo.SourceStatusCancelled, paymongo.SourceStatusExpired:
		if err := s.repo.MarkFailed(ctx, intent.ID, "source "+status); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark intent failed")
		}
		return s.repo.GetByID(ctx, intent.ID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodePaymentVerification, tokenExpiredHint).
			WithDetails(map[string]any{"source_status": status})
	}
}

// VerifyByToken resolves a reconciliation token and polls the outcome. The
// token stays usable while the source is still pending and is consumed once
// the intent settles either way.
func (s *service) VerifyByToken(ctx context.Context, token string) (*models.PaymentIntent, error) {
	key := s.tokens.ReconcileTokenKey(token)
	sourceID, err := s.tokens.Get(ctx, key)
	if errors.Is(err, pkgredis.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, tokenExpiredHint)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve reconciliation token")
	}

	intent, err := s.Reconcile(ctx, sourceID, false)
	if err != nil {
		return nil, err
	}
	if intent.Outcome.IsSettled() {
		if err := s.tokens.Del(ctx, key); err != nil {
			s.log.Warn(ctx, "failed to consume reconciliation token")
		}
	}
	return intent, nil
}

// pollSourceStatus asks the processor for the source state, retrying while it
// is still pending. Exhausting the budget is not an error by itself: the
// caller surfaces the pending state and the reaper owns the hard timeout.
func (s *service) pollSourceStatus(ctx context.Context, sourceID string) (string, error) {
	attempts := s.cfg.VerifyAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := s.cfg.VerifyBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	var status string
	err := retry.Do(ctx, retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(backoff)), func(ctx context.Context) error {
		source, err := s.processor.GetSource(ctx, sourceID)
		if err != nil {
			return retry.RetryableError(err)
		}
		status = source.Status
		if status == paymongo.SourceStatusPending {
			return retry.RetryableError(fmt.Errorf("source still pending"))
		}
		return nil
	})
	if err != nil && status == "" {
		return "", pkgerrors.Wrap(pkgerrors.CodePaymentVerification, err, "verify payment source")
	}
	if status == "" {
		status = paymongo.SourceStatusPending
	}
	return status, nil
}

func (s *service) settlePaid(ctx context.Context, intent *models.PaymentIntent) (*models.PaymentIntent, error) {
	var settlement *orders.DeferredSettlement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		won, err := s.repo.WithTx(tx).MarkPaidGuarded(ctx, intent.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle intent")
		}
		if !won {
			return nil
		}

		switch intent.Purpose {
		case enums.PaymentPurposeOrder:
			if intent.OrderID == nil {
				return pkgerrors.New(pkgerrors.CodeInternal, "order intent missing order reference")
			}
			settlement, err = s.settler.SettleDeferredTx(ctx, tx, *intent.OrderID)
			return err
		case enums.PaymentPurposeDownpayment:
			if intent.CustomCakeOrderID == nil {
				return pkgerrors.New(pkgerrors.CodeInternal, "downpayment intent missing cake reference")
			}
			return s.cakes.SettleDownpaymentTx(ctx, tx, *intent.CustomCakeOrderID)
		case enums.PaymentPurposeBalance:
			if intent.CustomCakeOrderID == nil {
				return pkgerrors.New(pkgerrors.CodeInternal, "balance intent missing cake reference")
			}
			return s.cakes.SettleBalanceTx(ctx, tx, *intent.CustomCakeOrderID)
		default:
			return pkgerrors.New(pkgerrors.CodeInternal, "unknown payment purpose")
		}
	})
	if err != nil {
		appErr := pkgerrors.As(err)
		if appErr != nil && appErr.Code() == pkgerrors.CodeConflict {
			intentCtx := s.log.WithIntentID(ctx, intent.ID.String())
			s.log.Error(intentCtx, "confirmed payment could not be applied, needs staff follow-up", err)
		}
		return nil, err
	}

	if settlement != nil {
		s.settler.RunSweeps(ctx, settlement.CustomerID, settlement.Debits)
	}

	settled, err := s.repo.GetByID(ctx, intent.ID)
	if err != nil {
		return nil, err
	}
	if settled.Outcome == enums.IntentOutcomePaid && s.notifier != nil {
		s.notifier.PaymentConfirmed(ctx, settled.ID, settled.Purpose, settled.AmountCents)
	}
	return settled, nil
}
