package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/delacruzbakes/bakeshop-backend/api/responses"
	"github.com/delacruzbakes/bakeshop-backend/api/validators"
	"github.com/delacruzbakes/bakeshop-backend/internal/stock"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
)

// Menu lists the active menu for the storefront.
func Menu(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		units, err := svc.ListMenu(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]menuUnitResponse, 0, len(units))
		for _, unit := range units {
			out = append(out, newMenuUnitResponse(&unit))
		}
		responses.WriteSuccess(w, out)
	}
}

// StaffMenuCreate adds a new menu stock unit.
func StaffMenuCreate(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		var payload stock.CreateUnitInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unit, err := svc.CreateUnit(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newMenuUnitResponse(unit))
	}
}

// StaffMenuUpdate applies partial edits such as restocks and price changes.
func StaffMenuUpdate(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		unitID, err := uuid.Parse(chi.URLParam(r, "unitId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit id"))
			return
		}

		var payload stock.UpdateUnitInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unit, err := svc.UpdateUnit(r.Context(), unitID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newMenuUnitResponse(unit))
	}
}

type menuUnitResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Size         *string    `json:"size,omitempty"`
	PriceCents   int        `json:"price_cents"`
	AvailableQty int        `json:"available_qty"`
	Active       bool       `json:"active"`
	CustomCakeID *uuid.UUID `json:"custom_cake_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func newMenuUnitResponse(unit *models.MenuStockUnit) menuUnitResponse {
	return menuUnitResponse{
		ID:           unit.ID,
		Name:         unit.Name,
		Size:         unit.Size,
		PriceCents:   unit.PriceCents,
		AvailableQty: unit.AvailableQty,
		Active:       unit.Active,
		CustomCakeID: unit.CustomCakeID,
		CreatedAt:    unit.CreatedAt,
		UpdatedAt:    unit.UpdatedAt,
	}
}
