package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/delacruzbakes/bakeshop-backend/api/middleware"
	"github.com/delacruzbakes/bakeshop-backend/api/responses"
	"github.com/delacruzbakes/bakeshop-backend/api/validators"
	cartsvc "github.com/delacruzbakes/bakeshop-backend/internal/cart"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
)

// CartList returns the customer's cart annotated with current availability.
func CartList(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views, err := svc.List(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]cartLineViewResponse, 0, len(views))
		for _, view := range views {
			out = append(out, newCartLineViewResponse(view))
		}
		responses.WriteSuccess(w, out)
	}
}

// CartAddMenuItem puts qty of a menu stock unit into the cart.
func CartAddMenuItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addMenuItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.AddMenuItem(r.Context(), customerID, payload.UnitID, payload.Qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCartLineResponse(line))
	}
}

// CartAddCustomCake puts a priced custom cake into the cart.
func CartAddCustomCake(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCustomCakeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.AddCustomCake(r.Context(), customerID, payload.CakeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCartLineResponse(line))
	}
}

// CartUpdateQty changes the quantity on an existing cart line.
func CartUpdateQty(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lineID, err := uuid.Parse(chi.URLParam(r, "lineId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line id"))
			return
		}

		var payload updateQtyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.UpdateQty(r.Context(), customerID, lineID, payload.Qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartLineResponse(line))
	}
}

// CartRemoveLine drops a line from the cart.
func CartRemoveLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lineID, err := uuid.Parse(chi.URLParam(r, "lineId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line id"))
			return
		}

		if err := svc.RemoveLine(r.Context(), customerID, lineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

func requireCustomer(r *http.Request) (uuid.UUID, error) {
	customerID := middleware.CustomerUUIDFromContext(r.Context())
	if customerID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer context missing")
	}
	return customerID, nil
}

type addMenuItemRequest struct {
	UnitID uuid.UUID `json:"unit_id" validate:"required"`
	Qty    int       `json:"qty" validate:"required,min=1"`
}

type addCustomCakeRequest struct {
	CakeID uuid.UUID `json:"cake_id" validate:"required"`
}

type updateQtyRequest struct {
	Qty int `json:"qty" validate:"required,min=1"`
}

type cartLineResponse struct {
	ID              uuid.UUID  `json:"id"`
	MenuStockUnitID *uuid.UUID `json:"menu_stock_unit_id,omitempty"`
	CustomCakeID    *uuid.UUID `json:"custom_cake_id,omitempty"`
	Qty             int        `json:"qty"`
	UnitPriceCents  int        `json:"unit_price_cents"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type cartLineViewResponse struct {
	cartLineResponse
	Available    bool `json:"available"`
	AvailableQty int  `json:"available_qty"`
	PriceChanged bool `json:"price_changed"`
}

func newCartLineResponse(line *models.CartLine) cartLineResponse {
	return cartLineResponse{
		ID:              line.ID,
		MenuStockUnitID: line.MenuStockUnitID,
		CustomCakeID:    line.CustomCakeID,
		Qty:             line.Qty,
		UnitPriceCents:  line.UnitPriceCents,
		CreatedAt:       line.CreatedAt,
		UpdatedAt:       line.UpdatedAt,
	}
}

func newCartLineViewResponse(view cartsvc.LineView) cartLineViewResponse {
	return cartLineViewResponse{
		cartLineResponse: newCartLineResponse(&view.Line),
		Available:        view.Available,
		AvailableQty:     view.AvailableQty,
		PriceChanged:     view.PriceChanged,
	}
}
