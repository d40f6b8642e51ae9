package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"orari/internal/bookings/service"
	apperrors "orari/pkg/errors"
	"orari/pkg/httputil"
	"orari/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(svc service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: svc,
		log:     log,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/orgs/:org/services/:service/bookings", h.Create)
	router.GET("/api/v1/orgs/:org/bookings/:id", h.GetByID)
	router.DELETE("/api/v1/orgs/:org/bookings/:id", h.Cancel)
}

type createBookingBody struct {
	Start       string `json:"start"`
	ClientName  string `json:"client_name"`
	ClientPhone string `json:"client_phone"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body createBookingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	// RFC 3339 requires an explicit offset; timestamps without one are
	// rejected here rather than guessed at.
	start, err := time.Parse(time.RFC3339, body.Start)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("start must be an RFC 3339 timestamp with a UTC offset")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	booking, warning, err := h.service.Create(r.Context(), ps.ByName("org"), ps.ByName("service"), &service.CreateBookingRequest{
		Start:       start,
		ClientName:  body.ClientName,
		ClientPhone: body.ClientPhone,
	})
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if warning != "" {
		if writeErr := httputil.WriteSuccessWithWarning(w, http.StatusCreated, booking, warning); writeErr != nil {
			h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteSuccessWithWarning", "error", writeErr)
		}
		return
	}
	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("org"), ps.ByName("id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Cancel(r.Context(), ps.ByName("org"), ps.ByName("id")); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Cancel", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}
