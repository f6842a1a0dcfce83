package handler

import (
	"errors"
	"io"
	"net/http"

	paymentserrors "rentio/internal/payments/errors"
	"rentio/internal/payments/provider"
	"rentio/internal/payments/service"
	"rentio/internal/payments/validator"
	apperrors "rentio/pkg/errors"
	httputil "rentio/pkg/http"
	"rentio/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type SuccessResponse struct {
	Success bool `json:"success"`
}

type WebhookHandler struct {
	registry  *provider.Registry
	validator *validator.WebhookValidator
	service   service.WebhookService
	log       *logger.Logger
}

func NewWebhookHandler(
	registry *provider.Registry,
	validator *validator.WebhookValidator,
	service service.WebhookService,
	log *logger.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		registry:  registry,
		validator: validator,
		service:   service,
		log:       log,
	}
}

// Handle authenticates, validates and applies one gateway delivery. The body
// is read raw because the signature covers the exact bytes.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	name := ps.ByName("provider")
	log := h.log.With("provider", name)

	processor, err := h.registry.Get(name)
	if err != nil {
		log.Warn("Webhook for unsupported provider")
		h.writeError(w, apperrors.New(apperrors.CodeNotFound, "Unsupported payment provider", http.StatusNotFound))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.writeError(w, apperrors.PayloadTooLarge(maxBytesErr.Limit))
			return
		}
		h.writeError(w, apperrors.InvalidInput("Invalid request body").WithCause(err))
		return
	}

	skipped, err := processor.Verify(r.Header, body)
	if err != nil {
		if errors.Is(err, paymentserrors.ErrMissingSecret) {
			log.Error("Webhook secret not configured, rejecting delivery")
		} else {
			log.Warn("Webhook signature rejected", "error", err)
		}
		h.writeError(w, apperrors.Unauthorized("Invalid signature"))
		return
	}
	if skipped {
		log.Warn("Processing unsigned webhook, WEBHOOK_ALLOW_UNSIGNED is set")
	}

	event, err := processor.Parse(body)
	if err != nil {
		log.Warn("Malformed webhook payload", "error", err)
		h.writeError(w, apperrors.InvalidInput("Invalid JSON payload"))
		return
	}

	if err := h.validator.Validate(event); err != nil {
		log.Warn("Webhook payload validation failed", "error", err)
		details := map[string]any{"error": err.Error()}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details = map[string]any{"fields": fieldErrs}
		}
		h.writeError(w, apperrors.InvalidInput("Invalid webhook payload").WithDetails(details))
		return
	}

	result, err := h.service.ProcessWebhook(r.Context(), processor.Provider(), event)
	if err != nil {
		h.writeError(w, err)
		return
	}

	log.Debug("Webhook handled", "event_id", event.ID, "outcome", result.Outcome)
	if err := httputil.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Handle", "operation", "WriteJSON", "error", err)
	}
}

func (h *WebhookHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "Handle", "operation", "WriteError", "error", writeErr)
	}
}

func (h *WebhookHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/payments/:provider/webhook", h.Handle)
}
