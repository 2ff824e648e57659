package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"ask_gateway/internal/entitlement"
	"ask_gateway/internal/identity"
	"ask_gateway/internal/middleware"
	"ask_gateway/internal/utils"
)

// AskHandler answers user questions, metering free-tier callers.
type AskHandler struct {
	deps   *Dependencies
	logger *utils.Logger
}

// NewAskHandler creates the ask handler.
func NewAskHandler(deps *Dependencies) *AskHandler {
	return &AskHandler{
		deps:   deps,
		logger: utils.NewLogger("ask"),
	}
}

type askRequest struct {
	Question string `json:"question"`
}

type quotaExceededResponse struct {
	Error string `json:"error"`
	Used  int    `json:"used"`
	Limit int    `json:"limit"`
}

func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		utils.RespondWithText(w, http.StatusOK, "Please type a question.")
		return
	}

	// Checked before the quota consume; a misconfigured server must not
	// burn the caller's weekly free slots.
	if h.deps.Completion == nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "OPENAI_API_KEY missing")
		return
	}

	user, _ := middleware.UserFromContext(r.Context())
	ent := h.entitlementFor(r.Context(), user)

	limit := h.deps.Cfg.Quota.FreePerWeek
	decision, err := h.deps.Gate.CheckAndConsume(r.Context(), user.ID, ent, limit)
	if err != nil {
		h.logger.Error("quota check failed", "user_id", user.ID, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if !decision.Allowed {
		utils.RespondWithJSON(w, http.StatusTooManyRequests, quotaExceededResponse{
			Error: "Free limit reached",
			Used:  decision.Used,
			Limit: decision.Limit,
		})
		return
	}

	if h.deps.Cfg.OpenAI.Streaming {
		h.stream(w, r, question)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deps.Cfg.OpenAI.Timeout)
	defer cancel()

	answer, err := h.deps.Completion.Complete(ctx, question)
	if err != nil {
		h.logger.Error("completion failed", "user_id", user.ID, "error", err)
		utils.RespondWithText(w, http.StatusInternalServerError, "Sorry, I couldn't generate a response.")
		return
	}
	if answer == "" {
		utils.RespondWithText(w, http.StatusOK, "I couldn't generate a response.")
		return
	}

	utils.RespondWithText(w, http.StatusOK, answer)
}

// stream writes the answer chunk by chunk as it arrives from the provider.
// Once the first chunk is flushed the status is committed, so provider errors
// mid-stream just end the body.
func (h *AskHandler) stream(w http.ResponseWriter, r *http.Request, question string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondWithError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deps.Cfg.OpenAI.Timeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	wrote := false
	err := h.deps.Completion.Stream(ctx, question, func(chunk string) error {
		if _, err := w.Write([]byte(chunk)); err != nil {
			return err
		}
		flusher.Flush()
		wrote = true
		return nil
	})
	if err != nil {
		h.logger.Error("streaming completion failed", "error", err)
		if !wrote {
			_, _ = w.Write([]byte("Sorry, I couldn't generate a response."))
		}
		return
	}
	if !wrote {
		_, _ = w.Write([]byte("I couldn't generate a response."))
	}
}

// entitlementFor reads the mirrored billing state for the caller. Anonymous
// callers, cache misses and cache failures are all treated as unentitled; the
// claimed plan header is never trusted on its own.
func (h *AskHandler) entitlementFor(ctx context.Context, user identity.User) entitlement.View {
	if user.Anonymous() {
		return entitlement.View{Plan: entitlement.PlanNone}
	}

	m, ok, err := h.deps.Profiles.Get(ctx, user.ID)
	if err != nil {
		h.logger.Warn("profile read failed, metering request", "user_id", user.ID, "error", err)
		return entitlement.View{Plan: entitlement.PlanNone}
	}
	if !ok {
		return entitlement.View{Plan: entitlement.PlanNone}
	}

	plan := m.Plan
	if plan == "" {
		plan = entitlement.PlanNone
	}
	return entitlement.View{Plan: plan, Active: m.Active}
}
