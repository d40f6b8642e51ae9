package handler

import (
	"net/http"
	"strconv"
	"time"

	"orari/internal/availability/service"
	apperrors "orari/pkg/errors"
	"orari/pkg/httputil"
	"orari/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(svc service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: svc,
		log:     log,
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/orgs/:org/services/:service/availability", h.Slots)
	router.GET("/api/v1/orgs/:org/services/:service/availability/days", h.Days)
}

func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	q, err := parseQuery(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Slots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	slots, err := h.service.Slots(r.Context(), ps.ByName("org"), ps.ByName("service"), q)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Slots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "Slots", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Days(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	q, err := parseQuery(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Days", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	days, err := h.service.Days(r.Context(), ps.ByName("org"), ps.ByName("service"), q)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Days", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, days); err != nil {
		h.log.Error("failed to write success response", "handler", "Days", "operation", "WriteSuccess", "error", err)
	}
}

func parseQuery(r *http.Request) (service.Query, error) {
	query := r.URL.Query()

	from, err := parseTimestamp(query.Get("from"), "from")
	if err != nil {
		return service.Query{}, err
	}
	to, err := parseTimestamp(query.Get("to"), "to")
	if err != nil {
		return service.Query{}, err
	}

	q := service.Query{
		From:        from,
		To:          to,
		EdgeBuffers: query.Get("edge_buffers") == "true",
		Internal:    query.Get("internal") == "true",
	}

	if stepStr := query.Get("step"); stepStr != "" {
		step, err := strconv.Atoi(stepStr)
		if err != nil || step <= 0 {
			return service.Query{}, apperrors.InvalidInput("step must be a positive number of minutes")
		}
		q.StepMin = step
	}

	return q, nil
}

func parseTimestamp(value, name string) (time.Time, error) {
	if value == "" {
		return time.Time{}, apperrors.InvalidInput(name + " is required")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput(name + " must be an RFC 3339 timestamp with a UTC offset")
	}
	return t, nil
}
