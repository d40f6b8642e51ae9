package handler

import (
	"encoding/json"
	"net/http"

	"orari/internal/windows/service"
	apperrors "orari/pkg/errors"
	"orari/pkg/httputil"
	"orari/pkg/logger"
	"orari/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type WindowHandler struct {
	service service.WindowService
	log     *logger.Logger
}

func NewWindowHandler(svc service.WindowService, log *logger.Logger) *WindowHandler {
	return &WindowHandler{
		service: svc,
		log:     log,
	}
}

func (h *WindowHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/orgs/:org/windows", h.Save)
	router.GET("/api/v1/orgs/:org/windows", h.Get)
}

// windowRow is the wire form of one weekly window. Weekday uses the
// client numbering (0=Sunday); storage numbering starts at Monday.
type windowRow struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Active  *bool  `json:"active,omitempty"`
}

type saveWindowsBody struct {
	Scope   string      `json:"scope"`
	OwnerID string      `json:"owner_id"`
	Windows []windowRow `json:"windows"`
}

func (h *WindowHandler) Save(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body saveWindowsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Save", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	req := &service.SaveWindowsRequest{
		Scope:   model.Scope(body.Scope),
		OwnerID: body.OwnerID,
		Windows: make([]model.WeeklyWindow, 0, len(body.Windows)),
	}
	for _, row := range body.Windows {
		if row.Weekday < 0 || row.Weekday > 6 {
			if writeErr := httputil.WriteError(w, apperrors.InvalidInput("weekday must be between 0 (Sunday) and 6 (Saturday)")); writeErr != nil {
				h.log.Error("failed to write error response", "handler", "Save", "operation", "WriteError", "error", writeErr)
			}
			return
		}
		active := true
		if row.Active != nil {
			active = *row.Active
		}
		req.Windows = append(req.Windows, model.WeeklyWindow{
			Weekday: model.FromUIWeekday(model.UIWeekday(row.Weekday)),
			Start:   row.Start,
			End:     row.End,
			Active:  active,
		})
	}

	if err := h.service.SaveWindows(r.Context(), ps.ByName("org"), req); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Save", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *WindowHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()
	scope := model.Scope(query.Get("scope"))
	ownerID := query.Get("owner_id")

	windows, err := h.service.GetWindows(r.Context(), ps.ByName("org"), scope, ownerID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Get", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	rows := make([]windowRow, 0, len(windows))
	for _, win := range windows {
		active := win.Active
		rows = append(rows, windowRow{
			Weekday: int(model.ToUIWeekday(win.Weekday)),
			Start:   win.Start,
			End:     win.End,
			Active:  &active,
		})
	}
	if err := httputil.WriteSuccess(w, rows); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "operation", "WriteSuccess", "error", err)
	}
}
