package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"ask_gateway/internal/billing"
	"ask_gateway/internal/identity"
	"ask_gateway/internal/middleware"
	"ask_gateway/internal/utils"
)

// BillingHandler serves the billing routes. All routes except config require
// an asserted identity; anonymous callers have no customer to bill.
type BillingHandler struct {
	deps   *Dependencies
	logger *utils.Logger
}

// NewBillingHandler creates the billing handler.
func NewBillingHandler(deps *Dependencies) *BillingHandler {
	return &BillingHandler{
		deps:   deps,
		logger: utils.NewLogger("billing_api"),
	}
}

// Config returns the publishable key and price for frontend bootstrap. A
// partially configured provider (secret key without publishable key or price)
// is still unconfigured from the frontend's point of view.
func (h *BillingHandler) Config(w http.ResponseWriter, r *http.Request) {
	if h.deps.Billing == nil || !h.deps.Billing.Configured() {
		utils.RespondWithError(w, http.StatusInternalServerError, "Billing not configured")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, h.deps.Billing.Config())
}

// SetupIntent prepares a card setup for the caller.
func (h *BillingHandler) SetupIntent(w http.ResponseWriter, r *http.Request) {
	user, email, ok := h.requireUser(w, r, "Login required")
	if !ok {
		return
	}

	result, err := h.deps.Billing.SetupIntent(r.Context(), user.ID, email)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}

// Subscribe creates a subscription on the configured price.
func (h *BillingHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	user, email, ok := h.requireUser(w, r, "Login required")
	if !ok {
		return
	}

	result, err := h.deps.Billing.Subscribe(r.Context(), user.ID, email)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}

type cancelResponse struct {
	OK bool `json:"ok"`
}

// Cancel schedules the caller's subscription to end at period close. The
// response is the same whether or not a subscription existed.
func (h *BillingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	user, email, ok := h.requireUser(w, r, "Login required")
	if !ok {
		return
	}

	if err := h.deps.Billing.Cancel(r.Context(), user.ID, email); err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cancelResponse{OK: true})
}

// Status reports the caller's full billing state.
func (h *BillingHandler) Status(w http.ResponseWriter, r *http.Request) {
	user, email, ok := h.requireUser(w, r, "Missing X-User-Id")
	if !ok {
		return
	}

	result, err := h.deps.Billing.Status(r.Context(), user.ID, email)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}

// requireUser rejects anonymous callers and unconfigured billing before any
// provider call is made.
func (h *BillingHandler) requireUser(w http.ResponseWriter, r *http.Request, anonMsg string) (identity.User, string, bool) {
	user, _ := middleware.UserFromContext(r.Context())
	if user.Anonymous() {
		utils.RespondWithError(w, http.StatusUnauthorized, anonMsg)
		return identity.User{}, "", false
	}
	if h.deps.Billing == nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Billing not configured")
		return identity.User{}, "", false
	}

	email := strings.TrimSpace(r.Header.Get("X-User-Email"))
	return user, email, true
}

func (h *BillingHandler) respondError(w http.ResponseWriter, err error) {
	var pe *billing.ProviderError

	switch {
	case errors.Is(err, billing.ErrNotConfigured):
		utils.RespondWithError(w, http.StatusInternalServerError, "STRIPE_PRICE_ID not configured")
	case errors.As(err, &pe):
		utils.RespondWithError(w, http.StatusBadRequest, pe.Msg)
	default:
		h.logger.Error("billing operation failed", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
	}
}
