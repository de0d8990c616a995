package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jwebster45206/interaction-relay/pkg/interaction"
)

// Selector stores the interaction each device has highlighted.
type Selector interface {
	Registry() *interaction.Registry
	Select(deviceID int64, interactionID string)
	Selected(deviceID int64) (string, bool)
	ClearSelection(deviceID int64)
}

type SelectionRequest struct {
	InteractionID string `json:"interaction_id"`
}

type SelectionResponse struct {
	DeviceID      int64  `json:"device_id"`
	InteractionID string `json:"interaction_id"`
}

type SelectionHandler struct {
	selector Selector
	logger   *slog.Logger
}

func NewSelectionHandler(selector Selector, logger *slog.Logger) *SelectionHandler {
	return &SelectionHandler{
		selector: selector,
		logger:   logger,
	}
}

// ServeHTTP handles the per-device selection.
// Routes:
// GET /v1/devices/{id}/selection    - Read the selected interaction
// PUT /v1/devices/{id}/selection    - Select an interaction
// DELETE /v1/devices/{id}/selection - Clear the selection
func (h *SelectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/devices/")
	idStr, rest, _ := strings.Cut(path, "/")
	if rest != "selection" {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}
	deviceID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.logger.Warn("Invalid device ID", "id", idStr, "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid device ID format")
		return
	}

	switch r.Method {
	case http.MethodGet:
		id, ok := h.selector.Selected(deviceID)
		if !ok {
			writeError(w, h.logger, http.StatusNotFound, "No interaction selected")
			return
		}
		writeJSON(w, h.logger, http.StatusOK, SelectionResponse{DeviceID: deviceID, InteractionID: id})

	case http.MethodPut:
		var req SelectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("Invalid request body", "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'interaction_id' field.")
			return
		}
		reg := h.selector.Registry()
		if reg == nil {
			writeError(w, h.logger, http.StatusServiceUnavailable, "Session not started")
			return
		}
		if _, err := reg.Get(req.InteractionID); err != nil {
			writeError(w, h.logger, http.StatusNotFound, err.Error())
			return
		}
		h.selector.Select(deviceID, req.InteractionID)
		h.logger.Debug("Interaction selected", "device_id", deviceID, "interaction_id", req.InteractionID)
		writeJSON(w, h.logger, http.StatusOK, SelectionResponse{DeviceID: deviceID, InteractionID: req.InteractionID})

	case http.MethodDelete:
		h.selector.ClearSelection(deviceID)
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
