package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/delacruzbakes/bakeshop-backend/api/responses"
	"github.com/delacruzbakes/bakeshop-backend/api/validators"
	cakesvc "github.com/delacruzbakes/bakeshop-backend/internal/customcakes"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
)

// CakeSubmit files a new custom cake request for staff review.
func CakeSubmit(svc cakesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "custom cakes service unavailable"))
			return
		}

		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload submitCakeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cake, err := svc.Submit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCakeResponse(cake))
	}
}

// CakesList returns the customer's custom cake orders.
func CakesList(svc cakesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "custom cakes service unavailable"))
			return
		}

		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cakes, err := svc.ListForCustomer(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCakeListResponse(cakes))
	}
}

// CakeDetail returns one of the customer's own cakes.
func CakeDetail(svc cakesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "custom cakes service unavailable"))
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

		cake, err := svc.Get(r.Context(), customerID, cakeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCakeResponse(cake))
	}
}

// StaffCakesList filters cakes by lifecycle status for the staff console.
func StaffCakesList(svc cakesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "custom cakes service unavailable"))
			return
		}

		raw := strings.TrimSpace(r.URL.Query().Get("status"))
		if raw == "" {
			raw = enums.CakeStatusPendingReview.String()
		}
		status, err := enums.ParseCustomCakeStatus(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		cakes, err := svc.ListByStatus(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCakeListResponse(cakes))
	}
}

// StaffCakeDecision records the feasibility verdict on a pending request.
func StaffCakeDecision(svc cakesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "custom cakes service unavailable"))
			return
		}

		cakeID, err := parseCakeID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cakeDecisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Feasible == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "feasible is required"))
			return
		}

		cake, err := svc.Decision(r.Context(), cakeID, *payload.Feasible, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCakeResponse(cake))
	}
}

// StaffCakePrice quotes a feasible cake and opens the downpayment window.
func StaffCakePrice(svc cakesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "custom cakes service unavailable"))
			return
		}

		cakeID, err := parseCakeID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cakePriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cake, err := svc.Price(r.Context(), cakeID, payload.PriceCents)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCakeResponse(cake))
	}
}

// StaffCakeAdvance moves a paid cake along the production path.
func StaffCakeAdvance(svc cakesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return staffCakeAction(svc, logg, func(r *http.Request, cakeID uuid.UUID) (*models.CustomCakeOrder, error) {
		return svc.Advance(r.Context(), cakeID)
	})
}

// StaffCakeCancel cancels a cake and retires its stock slot.
func StaffCakeCancel(svc cakesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return staffCakeAction(svc, logg, func(r *http.Request, cakeID uuid.UUID) (*models.CustomCakeOrder, error) {
		return svc.Cancel(r.Context(), cakeID)
	})
}

// StaffCakeCollectBalance records the remaining balance paid in person.
func StaffCakeCollectBalance(svc cakesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return staffCakeAction(svc, logg, func(r *http.Request, cakeID uuid.UUID) (*models.CustomCakeOrder, error) {
		return svc.MarkBalanceCollected(r.Context(), cakeID)
	})
}

func staffCakeAction(svc cakesvc.Service, logg *logger.Logger, act func(*http.Request, uuid.UUID) (*models.CustomCakeOrder, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "custom cakes service unavailable"))
			return
		}

		cakeID, err := parseCakeID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cake, err := act(r, cakeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCakeResponse(cake))
	}
}

func parseCakeID(r *http.Request) (uuid.UUID, error) {
	cakeID, err := uuid.Parse(chi.URLParam(r, "cakeId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cake id")
	}
	return cakeID, nil
}

type submitCakeRequest struct {
	Kind      string          `json:"kind" validate:"required"`
	Flavor    string          `json:"flavor" validate:"required"`
	SizeTier  string          `json:"size_tier" validate:"required"`
	Layers    int             `json:"layers" validate:"required,min=1"`
	Message   *string         `json:"message,omitempty"`
	Theme     *string         `json:"theme,omitempty"`
	ImageURL  *string         `json:"image_url,omitempty"`
	ModelSpec json.RawMessage `json:"model_spec,omitempty"`
}

func (s submitCakeRequest) toInput(customerID uuid.UUID) (cakesvc.SubmitInput, error) {
	kind, err := enums.ParseCustomCakeKind(s.Kind)
	if err != nil {
		return cakesvc.SubmitInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cake kind")
	}
	return cakesvc.SubmitInput{
		CustomerID: customerID,
		Kind:       kind,
		Flavor:     s.Flavor,
		SizeTier:   s.SizeTier,
		Layers:     s.Layers,
		Message:    s.Message,
		Theme:      s.Theme,
		ImageURL:   s.ImageURL,
		ModelSpec:  s.ModelSpec,
	}, nil
}

type cakeDecisionRequest struct {
	Feasible *bool   `json:"feasible"`
	Notes    *string `json:"notes,omitempty"`
}

type cakePriceRequest struct {
	PriceCents int `json:"price_cents" validate:"required,min=1"`
}

type cakeResponse struct {
	ID                 uuid.UUID       `json:"id"`
	CustomerID         uuid.UUID       `json:"customer_id"`
	Kind               string          `json:"kind"`
	Flavor             string          `json:"flavor"`
	SizeTier           string          `json:"size_tier"`
	Layers             int             `json:"layers"`
	Message            *string         `json:"message,omitempty"`
	Theme              *string         `json:"theme,omitempty"`
	ImageURL           *string         `json:"image_url,omitempty"`
	ModelSpec          json.RawMessage `json:"model_spec,omitempty"`
	Status             string          `json:"status"`
	StaffNotes         *string         `json:"staff_notes,omitempty"`
	PriceCents         *int            `json:"price_cents,omitempty"`
	DownpaymentCents   int             `json:"downpayment_cents"`
	BalanceCents       int             `json:"balance_cents"`
	IsDownpaymentPaid  bool            `json:"is_downpayment_paid"`
	FinalPaymentStatus string          `json:"final_payment_status"`
	ScheduledDate      *time.Time      `json:"scheduled_date,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func newCakeResponse(cake *models.CustomCakeOrder) cakeResponse {
	return cakeResponse{
		ID:                 cake.ID,
		CustomerID:         cake.CustomerID,
		Kind:               cake.Kind.String(),
		Flavor:             cake.Flavor,
		SizeTier:           cake.SizeTier,
		Layers:             cake.Layers,
		Message:            cake.Message,
		Theme:              cake.Theme,
		ImageURL:           cake.ImageURL,
		ModelSpec:          cake.ModelSpec,
		Status:             cake.Status.String(),
		StaffNotes:         cake.StaffNotes,
		PriceCents:         cake.PriceCents,
		DownpaymentCents:   cake.DownpaymentCents,
		BalanceCents:       cake.BalanceCents,
		IsDownpaymentPaid:  cake.IsDownpaymentPaid,
		FinalPaymentStatus: cake.FinalPaymentStatus.String(),
		ScheduledDate:      cake.ScheduledDate,
		CancelledAt:        cake.CancelledAt,
		CreatedAt:          cake.CreatedAt,
		UpdatedAt:          cake.UpdatedAt,
	}
}

func newCakeListResponse(cakes []models.CustomCakeOrder) []cakeResponse {
	out := make([]cakeResponse, 0, len(cakes))
	for i := range cakes {
		out = append(out, newCakeResponse(&cakes[i]))
	}
	return out
}
