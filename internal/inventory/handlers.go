package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BenitoJames/backend-tindahan/internal/catalog"
	"github.com/BenitoJames/backend-tindahan/internal/common"
	"github.com/BenitoJames/backend-tindahan/internal/obs"
)

// Handler exposes stock administration and report endpoints.
type Handler struct {
	Ledger *Ledger
	Now    func() time.Time
}

type registerRequest struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Brand    string `json:"brand"`
	Variant  string `json:"variant"`
	Price    int64  `json:"priceCentavos" validate:"required,gt=0"`
	Quantity int    `json:"quantity" validate:"gte=0"`
	Expiry   string `json:"expiry"` // YYYY-MM-DD, perishable only
}

type adjustRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// Register adds a product with initial stock.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var payload registerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := common.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	var (
		p   catalog.Product
		err error
	)
	if payload.Expiry != "" {
		expiry, parseErr := time.Parse("2006-01-02", payload.Expiry)
		if parseErr != nil {
			common.JSONError(w, http.StatusBadRequest, "INVALID_FORMAT", "expiry must be YYYY-MM-DD", nil)
			return
		}
		p, err = catalog.NewPerishable(payload.ID, payload.Name, payload.Brand, payload.Variant, payload.Price, expiry)
	} else {
		p, err = catalog.New(payload.ID, payload.Name, payload.Brand, payload.Variant, payload.Price)
	}
	if err != nil {
		writeInventoryError(w, err)
		return
	}
	if err := h.Ledger.Register(p, payload.Quantity); err != nil {
		writeInventoryError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": Entry{Product: p, Quantity: payload.Quantity}})
}

// Get returns a single entry.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.Ledger.Get(chi.URLParam(r, "productID"))
	if err != nil {
		writeInventoryError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": e})
}

// Adjust applies a manual stock correction.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	var payload adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	productID := chi.URLParam(r, "productID")
	if err := h.Ledger.Adjust(productID, payload.Delta); err != nil {
		writeInventoryError(w, err)
		return
	}
	e, err := h.Ledger.Get(productID)
	if err != nil {
		writeInventoryError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": e})
}

// LowStock lists entries at or below the threshold.
func (h *Handler) LowStock(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Ledger.LowStock()})
}

// ExpiringSoon lists perishables expiring within the window.
func (h *Handler) ExpiringSoon(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Ledger.ExpiringSoon(h.now())})
}

// RemoveExpired pulls expired perishables off the shelf.
func (h *Handler) RemoveExpired(w http.ResponseWriter, _ *http.Request) {
	removed := h.Ledger.RemoveExpired(h.now())
	for _, e := range removed {
		obs.ExpiredStockRemovedTotal.Add(float64(e.Quantity))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": removed})
}

// Routes mounts the inventory endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/products", h.Register)
	r.Get("/products/{productID}", h.Get)
	r.Post("/products/{productID}/adjust", h.Adjust)
	r.Get("/reports/low-stock", h.LowStock)
	r.Get("/reports/expiring", h.ExpiringSoon)
	r.Post("/expired/remove", h.RemoveExpired)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func writeInventoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownProduct):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, ErrDuplicateProduct):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "product already registered", nil)
	case errors.Is(err, ErrInvalidAmount):
		common.JSONError(w, http.StatusBadRequest, "INVALID_AMOUNT", "adjustment would drive stock negative", nil)
	case errors.Is(err, ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", "not enough stock on hand", nil)
	case errors.Is(err, catalog.ErrInvalidFormat), errors.Is(err, catalog.ErrInvalidPrice):
		common.JSONError(w, http.StatusBadRequest, "INVALID_FORMAT", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
