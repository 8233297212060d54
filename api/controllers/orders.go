package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/delacruzbakes/bakeshop-backend/api/responses"
	"github.com/delacruzbakes/bakeshop-backend/api/validators"
	internalorders "github.com/delacruzbakes/bakeshop-backend/internal/orders"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
)

// Checkout commits the customer's cart into an order.
func Checkout(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Checkout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// OrdersList returns the customer's orders, newest first.
func OrdersList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListForCustomer(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(orders))
		for i := range orders {
			out = append(out, newOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// OrderDetail returns one of the customer's own orders.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.Get(r.Context(), customerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// StaffOrderAdvance moves an order one step along its fulfilment path.
func StaffOrderAdvance(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return staffOrderAction(svc, logg, func(r *http.Request, orderID uuid.UUID) (*models.Order, error) {
		return svc.Advance(r.Context(), orderID)
	})
}

// StaffOrderCancel cancels an order and credits stock back where owed.
func StaffOrderCancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return staffOrderAction(svc, logg, func(r *http.Request, orderID uuid.UUID) (*models.Order, error) {
		return svc.Cancel(r.Context(), orderID)
	})
}

// StaffOrderConfirmCash records cash received at the counter.
func StaffOrderConfirmCash(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return staffOrderAction(svc, logg, func(r *http.Request, orderID uuid.UUID) (*models.Order, error) {
		return svc.ConfirmCash(r.Context(), orderID)
	})
}

func staffOrderAction(svc internalorders.Service, logg *logger.Logger, act func(*http.Request, uuid.UUID) (*models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := act(r, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type checkoutRequest struct {
	PaymentMethod  string    `json:"payment_method" validate:"required"`
	DeliveryMethod string    `json:"delivery_method" validate:"required"`
	ScheduledDate  time.Time `json:"scheduled_date" validate:"required"`
}

func (c checkoutRequest) toInput(customerID uuid.UUID) (internalorders.CheckoutInput, error) {
	paymentMethod, err := enums.ParsePaymentMethod(c.PaymentMethod)
	if err != nil {
		return internalorders.CheckoutInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	deliveryMethod, err := enums.ParseDeliveryMethod(c.DeliveryMethod)
	if err != nil {
		return internalorders.CheckoutInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery method")
	}
	return internalorders.CheckoutInput{
		CustomerID:     customerID,
		PaymentMethod:  paymentMethod,
		DeliveryMethod: deliveryMethod,
		ScheduledDate:  c.ScheduledDate,
	}, nil
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	CustomerID     uuid.UUID           `json:"customer_id"`
	Status         string              `json:"status"`
	PaymentMethod  string              `json:"payment_method"`
	DeliveryMethod string              `json:"delivery_method"`
	ScheduledDate  time.Time           `json:"scheduled_date"`
	TotalCents     int                 `json:"total_cents"`
	PaidAt         *time.Time          `json:"paid_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
	Lines          []orderLineResponse `json:"lines"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

type orderLineResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Size           *string   `json:"size,omitempty"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int       `json:"total_cents"`
}

func newOrderResponse(order *models.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineResponse{
			ID:             line.ID,
			Name:           line.Name,
			Size:           line.Size,
			UnitPriceCents: line.UnitPriceCents,
			Qty:            line.Qty,
			TotalCents:     line.TotalCents,
		})
	}

	return orderResponse{
		ID:             order.ID,
		CustomerID:     order.CustomerID,
		Status:         order.Status.String(),
		PaymentMethod:  order.PaymentMethod.String(),
		DeliveryMethod: order.DeliveryMethod.String(),
		ScheduledDate:  order.ScheduledDate,
		TotalCents:     order.TotalCents,
		PaidAt:         order.PaidAt,
		CancelledAt:    order.CancelledAt,
		Lines:          lines,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}
