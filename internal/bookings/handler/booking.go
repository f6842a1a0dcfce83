package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"rentio/internal/bookings/service"
	"rentio/internal/bookings/validator"
	"rentio/pkg/auth"
	apperrors "rentio/pkg/errors"
	httputil "rentio/pkg/http"
	"rentio/pkg/logger"
	"rentio/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), currentUser(r), ps.ByName("id"))
	h.writeBooking(w, "GetByID", booking, err)
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Confirm(r.Context(), currentUser(r), ps.ByName("id"))
	h.writeBooking(w, "Confirm", booking, err)
}

func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req validator.ReasonRequest
	if !h.decode(w, r, "Reject", &req) {
		return
	}
	booking, err := h.service.Reject(r.Context(), currentUser(r), ps.ByName("id"), &req)
	h.writeBooking(w, "Reject", booking, err)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req validator.ReasonRequest
	if !h.decode(w, r, "Cancel", &req) {
		return
	}
	booking, err := h.service.Cancel(r.Context(), currentUser(r), ps.ByName("id"), &req)
	h.writeBooking(w, "Cancel", booking, err)
}

func (h *BookingHandler) Start(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Start(r.Context(), currentUser(r), ps.ByName("id"))
	h.writeBooking(w, "Start", booking, err)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Complete(r.Context(), currentUser(r), ps.ByName("id"))
	h.writeBooking(w, "Complete", booking, err)
}

func (h *BookingHandler) RequestRefund(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req validator.RefundRequestBody
	if !h.decode(w, r, "RequestRefund", &req) {
		return
	}

	refund, err := h.service.RequestRefund(r.Context(), currentUser(r), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "RequestRefund", err)
		return
	}

	if err := httputil.WriteCreated(w, refund); err != nil {
		h.log.Error("failed to write created response", "handler", "RequestRefund", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) ApproveRefund(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	refund, err := h.service.ApproveRefund(r.Context(), currentUser(r), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ApproveRefund", err)
		return
	}

	if err := httputil.WriteSuccess(w, refund); err != nil {
		h.log.Error("failed to write success response", "handler", "ApproveRefund", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/confirm", h.Confirm)
	router.POST("/api/v1/bookings/id/:id/reject", h.Reject)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/id/:id/start", h.Start)
	router.POST("/api/v1/bookings/id/:id/complete", h.Complete)
	router.POST("/api/v1/bookings/id/:id/refund-request", h.RequestRefund)
	router.POST("/api/v1/refunds/id/:id/approve", h.ApproveRefund)
}

// decode reads a JSON body into dst, writing a 400 and returning false when it
// cannot.
func (h *BookingHandler) decode(w http.ResponseWriter, r *http.Request, handler string, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) {
		h.writeError(w, handler, apperrors.InvalidInput("Request body is required"))
		return false
	}
	h.writeError(w, handler, apperrors.InvalidInput("Invalid request body"))
	return false
}

func (h *BookingHandler) writeBooking(w http.ResponseWriter, handler string, booking *model.Booking, err error) {
	if err != nil {
		h.writeError(w, handler, err)
		return
	}
	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func currentUser(r *http.Request) *auth.User {
	user, _ := auth.UserFromContext(r.Context())
	return user
}
