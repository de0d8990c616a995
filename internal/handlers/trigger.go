package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/interaction-relay/internal/session"
	"github.com/jwebster45206/interaction-relay/internal/transport"
	"github.com/jwebster45206/interaction-relay/pkg/interaction"
	"github.com/jwebster45206/interaction-relay/pkg/relay"
)

// Dispatcher triggers interactions on behalf of a device.
type Dispatcher interface {
	Trigger(ctx context.Context, dev session.Device, interactionID string) error
	TriggerSelected(ctx context.Context, dev session.Device) error
}

type DeviceRequest struct {
	ID           int64      `json:"id"`
	Enabled      bool       `json:"enabled"`
	Broadcasting bool       `json:"broadcasting"`
	OwnerID      int64      `json:"owner_id"`
	Position     relay.Vec3 `json:"position"`
	Radius       float32    `json:"radius"`
}

func (d DeviceRequest) Device() session.Device {
	return session.Device{
		ID:           d.ID,
		Enabled:      d.Enabled,
		Broadcasting: d.Broadcasting,
		OwnerID:      d.OwnerID,
		Position:     d.Position,
		Radius:       d.Radius,
	}
}

// TriggerRequest triggers InteractionID, or the device's selected
// interaction when InteractionID is empty.
type TriggerRequest struct {
	Device        DeviceRequest `json:"device"`
	InteractionID string        `json:"interaction_id,omitempty"`
}

type TriggerResponse struct {
	Status string `json:"status"`
}

type TriggerHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewTriggerHandler(dispatcher Dispatcher, logger *slog.Logger) *TriggerHandler {
	return &TriggerHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ServeHTTP handles POST /v1/trigger.
func (h *TriggerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.logger.Warn("Method not allowed for trigger endpoint",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'device' field.")
		return
	}

	var err error
	if req.InteractionID == "" {
		err = h.dispatcher.TriggerSelected(r.Context(), req.Device.Device())
	} else {
		err = h.dispatcher.Trigger(r.Context(), req.Device.Device(), req.InteractionID)
	}
	if err != nil {
		status, msg := triggerErrorStatus(err)
		writeError(w, h.logger, status, msg)
		return
	}

	writeJSON(w, h.logger, http.StatusAccepted, TriggerResponse{Status: "dispatched"})
}

func triggerErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, interaction.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, session.ErrNotStarted):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, session.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, session.ErrServiceNotReady), errors.Is(err, transport.ErrNoAuthority):
		return http.StatusServiceUnavailable, err.Error()
	default:
		return http.StatusBadGateway, "Failed to dispatch interaction"
	}
}
