package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prinde/internal/common"
	"github.com/ternarybob/prinde/internal/interfaces"
	"github.com/ternarybob/prinde/internal/services/confirm"
	"github.com/ternarybob/prinde/internal/views"
)

type ConfigHandler struct {
	logger  arbor.ILogger
	config  *common.Config
	gateway interfaces.Gateway
	actions *confirm.Actions
}

func NewConfigHandler(logger arbor.ILogger, config *common.Config, gateway interfaces.Gateway, actions *confirm.Actions) *ConfigHandler {
	return &ConfigHandler{
		logger:  logger,
		config:  config,
		gateway: gateway,
		actions: actions,
	}
}

// SettingsResponse describes this dashboard's own configuration
type SettingsResponse struct {
	Version string         `json:"version"`
	Build   string         `json:"build"`
	Port    int            `json:"port"`
	Host    string         `json:"host"`
	Config  *common.Config `json:"config"`
}

// GetSettings handles GET /api/settings
func (h *ConfigHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, SettingsResponse{
		Version: common.GetVersion(),
		Build:   common.GetBuild(),
		Port:    h.config.Server.Port,
		Host:    h.config.Server.Host,
		Config:  common.DeepCloneConfig(h.config),
	})
}

// GetConfig handles GET /api/config: the engine configuration, one level flattened
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	raw, err := h.gateway.Config(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch engine configuration")
		WriteServiceError(w, err)
		return
	}

	pane, err := views.FlattenConfig(raw)
	if err != nil {
		h.logger.Error().Err(err).Msg("Engine returned an unreadable configuration")
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, pane)
}

// ReloadConfig handles POST /api/config/reload
func (h *ConfigHandler) ReloadConfig(w http.ResponseWriter, r *http.Request) {
	writeConfirmation(w, h.actions.ReloadConfig())
}
