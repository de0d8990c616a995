package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/interaction-relay/pkg/interaction"
)

// RegistrySource exposes the current session registry.
type RegistrySource interface {
	Registry() *interaction.Registry
}

type InteractionsResponse struct {
	Interactions []interaction.Summary `json:"interactions"`
}

type InteractionsHandler struct {
	source RegistrySource
	logger *slog.Logger
}

func NewInteractionsHandler(source RegistrySource, logger *slog.Logger) *InteractionsHandler {
	return &InteractionsHandler{
		source: source,
		logger: logger,
	}
}

// ServeHTTP lists selectable interactions in registry order.
// GET /v1/interactions?profile=<command profile id>
func (h *InteractionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	reg := h.source.Registry()
	if reg == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Session not started")
		return
	}

	items := []interaction.Summary{}
	if profile := strings.TrimSpace(r.URL.Query().Get("profile")); profile != "" {
		for in := range reg.FindByCommandProfile(profile) {
			items = append(items, in.Summary())
		}
	} else {
		items = append(items, reg.ListAll()...)
	}

	writeJSON(w, h.logger, http.StatusOK, InteractionsResponse{Interactions: items})
}
