package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/delacruzbakes/bakeshop-backend/api/responses"
	"github.com/delacruzbakes/bakeshop-backend/api/validators"
	"github.com/delacruzbakes/bakeshop-backend/internal/payments"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
)

// OrderPaymentIntent opens a redirect payment for an online order.
func OrderPaymentIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
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

		handle, err := svc.CreateOrderIntent(r.Context(), customerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newIntentHandleResponse(handle))
	}
}

// CakePaymentIntent opens a redirect payment for a cake downpayment or balance.
func CakePaymentIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cakeID, err := parseCakeID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cakeIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		handle, err := svc.CreateCakeIntent(r.Context(), customerID, cakeID, payload.Downpayment)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newIntentHandleResponse(handle))
	}
}

// PaymentVerify resolves a reconcile token after the customer returns from
// the processor redirect.
func PaymentVerify(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := svc.VerifyByToken(r.Context(), payload.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newIntentResponse(intent))
	}
}

type cakeIntentRequest struct {
	Downpayment bool `json:"downpayment"`
}

type verifyPaymentRequest struct {
	Token string `json:"token" validate:"required"`
}

type intentResponse struct {
	ID                uuid.UUID  `json:"id"`
	OrderID           *uuid.UUID `json:"order_id,omitempty"`
	CustomCakeOrderID *uuid.UUID `json:"custom_cake_order_id,omitempty"`
	Purpose           string     `json:"purpose"`
	AmountCents       int        `json:"amount_cents"`
	Outcome           string     `json:"outcome"`
	FailureReason     *string    `json:"failure_reason,omitempty"`
	SettledAt         *time.Time `json:"settled_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type intentHandleResponse struct {
	Intent         intentResponse `json:"intent"`
	CheckoutURL    string         `json:"checkout_url"`
	ReconcileToken string         `json:"reconcile_token"`
}

func newIntentResponse(intent *models.PaymentIntent) intentResponse {
	return intentResponse{
		ID:                intent.ID,
		OrderID:           intent.OrderID,
		CustomCakeOrderID: intent.CustomCakeOrderID,
		Purpose:           intent.Purpose.String(),
		AmountCents:       intent.AmountCents,
		Outcome:           intent.Outcome.String(),
		FailureReason:     intent.FailureReason,
		SettledAt:         intent.SettledAt,
		CreatedAt:         intent.CreatedAt,
	}
}

func newIntentHandleResponse(handle *payments.IntentHandle) intentHandleResponse {
	return intentHandleResponse{
		Intent:         newIntentResponse(handle.Intent),
		CheckoutURL:    handle.CheckoutURL,
		ReconcileToken: handle.ReconcileToken,
	}
}
