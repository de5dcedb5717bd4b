package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/BenitoJames/backend-tindahan/internal/common"
	"github.com/BenitoJames/backend-tindahan/internal/inventory"
	"github.com/BenitoJames/backend-tindahan/internal/loyalty"
	"github.com/BenitoJames/backend-tindahan/internal/payment"
)

// Handler exposes the register's checkout session endpoints.
type Handler struct {
	Svc *Service
}

type startRequest struct {
	CustomerID string `json:"customerId"`
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type concessionRequest struct {
	ConcessionID string `json:"concessionId" validate:"required"`
}

type redeemRequest struct {
	Points int `json:"points" validate:"required,gt=0"`
}

type settleRequest struct {
	Method     string        `json:"method" validate:"required,oneof=cash card"`
	AmountPaid Money         `json:"amountPaid"`
	Card       *payment.Card `json:"card"`
}

// Start opens a checkout session.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var payload startRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
			return
		}
	}
	id, err := h.Svc.Start(strings.TrimSpace(payload.CustomerID))
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"sessionId": id}})
}

// Get returns the session's transaction snapshot.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	txn, err := h.Svc.Transaction(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": txn})
}

// AddItem reserves stock onto the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var payload addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := common.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	line, err := h.Svc.AddItem(chi.URLParam(r, "sessionID"), payload.ProductID, payload.Quantity)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": line})
}

// RemoveItem drops a cart line and releases its stock.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	err := h.Svc.RemoveItem(chi.URLParam(r, "sessionID"), chi.URLParam(r, "productID"))
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "removed"})
}

// ValidateConcession records senior/PWD eligibility for this session.
func (h *Handler) ValidateConcession(w http.ResponseWriter, r *http.Request) {
	var payload concessionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := common.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	if err := h.Svc.ValidateConcession(chi.URLParam(r, "sessionID"), payload.ConcessionID); err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "validated"})
}

// PurchaseMembership queues a card purchase onto the session.
func (h *Handler) PurchaseMembership(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.PurchaseMembership(chi.URLParam(r, "sessionID")); err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "membership queued"})
}

// ComputeTotals runs the discount pipeline.
func (h *Handler) ComputeTotals(w http.ResponseWriter, r *http.Request) {
	txn, err := h.Svc.ComputeTotals(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": txn})
}

// RedeemPoints applies a membership point redemption.
func (h *Handler) RedeemPoints(w http.ResponseWriter, r *http.Request) {
	var payload redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := common.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	redeemed, err := h.Svc.RedeemPoints(chi.URLParam(r, "sessionID"), payload.Points)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]int{"pointsRedeemed": redeemed}})
}

// Settle accepts payment and closes the session.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	var payload settleRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := common.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	txn, err := h.Svc.Settle(r.Context(), chi.URLParam(r, "sessionID"), Method(payload.Method), payload.AmountPaid, payload.Card)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"transaction":  txn,
		"receipt":      txn.Receipt(),
		"pointsEarned": txn.PointsEarned(),
	}})
}

// Abandon discards the session and restores reserved stock.
func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Abandon(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeCheckoutError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": "abandoned"})
}

// Routes mounts the session endpoints. settleWrap lets the caller guard the
// settle endpoint with idempotency middleware.
func (h *Handler) Routes(r chi.Router, settleWrap func(http.Handler) http.Handler) {
	r.Post("/sessions", h.Start)
	r.Get("/sessions/{sessionID}", h.Get)
	r.Post("/sessions/{sessionID}/items", h.AddItem)
	r.Delete("/sessions/{sessionID}/items/{productID}", h.RemoveItem)
	r.Post("/sessions/{sessionID}/concession", h.ValidateConcession)
	r.Post("/sessions/{sessionID}/membership", h.PurchaseMembership)
	r.Post("/sessions/{sessionID}/totals", h.ComputeTotals)
	r.Post("/sessions/{sessionID}/points", h.RedeemPoints)
	settle := http.Handler(http.HandlerFunc(h.Settle))
	if settleWrap != nil {
		settle = settleWrap(settle)
	}
	r.Method(http.MethodPost, "/sessions/{sessionID}/settle", settle)
	r.Post("/sessions/{sessionID}/abandon", h.Abandon)
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownSession):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
	case errors.Is(err, inventory.ErrUnknownProduct):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, inventory.ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", "not enough stock on hand", nil)
	case errors.Is(err, inventory.ErrInvalidAmount):
		common.JSONError(w, http.StatusBadRequest, "INVALID_AMOUNT", "invalid quantity", nil)
	case errors.Is(err, ErrInsufficientPayment):
		common.JSONError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_PAYMENT", "amount paid does not cover the total", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no lines", nil)
	case errors.Is(err, ErrInvalidState):
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "operation not allowed in the current state", nil)
	case errors.Is(err, loyalty.ErrInsufficientPoints):
		common.JSONError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_POINTS", "not enough points on the card", nil)
	case errors.Is(err, loyalty.ErrExpiredCard), errors.Is(err, payment.ErrExpiredCard):
		common.JSONError(w, http.StatusUnprocessableEntity, "EXPIRED_CARD", "card is expired", nil)
	case errors.Is(err, loyalty.ErrInvalidFormat), errors.Is(err, payment.ErrInvalidFormat):
		common.JSONError(w, http.StatusBadRequest, "INVALID_FORMAT", "identifier or card format is invalid", nil)
	case errors.Is(err, loyalty.ErrNotMember), errors.Is(err, loyalty.ErrAlreadyMember), errors.Is(err, loyalty.ErrUnknownCustomer):
		common.JSONError(w, http.StatusUnprocessableEntity, "MEMBERSHIP", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
