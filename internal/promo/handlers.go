package promo

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BenitoJames/backend-tindahan/internal/common"
	"github.com/BenitoJames/backend-tindahan/internal/obs"
)

// Handler exposes staff endpoints for promotional sale administration.
type Handler struct {
	Catalog *Catalog
	Now     func() time.Time
}

// Create registers a new sale.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload Draft
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := common.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	sale, err := h.Catalog.Add(payload)
	if err != nil {
		writePromoError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": sale})
}

// List returns every sale; ?active=true filters to currently running ones.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("active") == "true" {
		common.JSON(w, http.StatusOK, map[string]any{"data": h.Catalog.ActiveAt(h.now())})
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Catalog.List()})
}

// Get returns one sale by identifier.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sale, err := h.Catalog.Get(chi.URLParam(r, "saleID"))
	if err != nil {
		writePromoError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sale})
}

// End deactivates a sale.
func (h *Handler) End(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.End(chi.URLParam(r, "saleID")); err != nil {
		writePromoError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "ended"})
}

// Delete removes a sale from the catalog.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Remove(chi.URLParam(r, "saleID")); err != nil {
		writePromoError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "removed"})
}

// Sweep removes sales whose window already ended.
func (h *Handler) Sweep(w http.ResponseWriter, _ *http.Request) {
	removed := h.Catalog.SweepExpired(h.now())
	obs.SalesSweptTotal.Add(float64(removed))
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]int{"removed": removed}})
}

// Routes mounts the sale administration endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sales", h.Create)
	r.Get("/sales", h.List)
	r.Get("/sales/{saleID}", h.Get)
	r.Post("/sales/{saleID}/end", h.End)
	r.Delete("/sales/{saleID}", h.Delete)
	r.Post("/sales/sweep", h.Sweep)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func writePromoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownSale):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "sale not found", nil)
	case errors.Is(err, ErrInvalidDiscount):
		common.JSONError(w, http.StatusBadRequest, "INVALID_DISCOUNT", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
