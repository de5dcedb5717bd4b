package loyalty

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/BenitoJames/backend-tindahan/internal/common"
)

// Handler exposes customer and membership endpoints.
type Handler struct {
	Registry *Registry
}

type registerCustomerRequest struct {
	Name string `json:"name" validate:"required"`
}

// Register creates a customer account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var payload registerCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := common.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	c := h.Registry.Register(strings.TrimSpace(payload.Name))
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// List returns every customer in registration order.
func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Registry.List()})
}

// Get returns one customer.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Registry.Get(chi.URLParam(r, "customerID"))
	if err != nil {
		writeLoyaltyError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// Balance returns the customer's point balance.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Registry.Balance(chi.URLParam(r, "customerID"))
	if err != nil {
		writeLoyaltyError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]int{"points": balance}})
}

// Routes mounts the customer endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/customers", h.Register)
	r.Get("/customers", h.List)
	r.Get("/customers/{customerID}", h.Get)
	r.Get("/customers/{customerID}/points", h.Balance)
}

func writeLoyaltyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownCustomer):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "customer not found", nil)
	case errors.Is(err, ErrNotMember):
		common.JSONError(w, http.StatusUnprocessableEntity, "MEMBERSHIP", "customer holds no card", nil)
	case errors.Is(err, ErrExpiredCard):
		common.JSONError(w, http.StatusUnprocessableEntity, "EXPIRED_CARD", "membership card expired", nil)
	case errors.Is(err, ErrInvalidFormat):
		common.JSONError(w, http.StatusBadRequest, "INVALID_FORMAT", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
