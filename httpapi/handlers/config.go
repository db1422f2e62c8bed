package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/greenhaus/chargesched/config"
)

// ConfigHandler serves and persists the on-disk configuration profile. A
// mutex guards the file path against concurrent read-modify-write races
// from overlapping requests. A running control loop does not reload this
// file: it keeps the profile it was constructed with, so a saved change
// reaches it only when the process starts again.
type ConfigHandler struct {
	mu   sync.Mutex
	path string
}

func NewConfigHandler(path string) *ConfigHandler {
	return &ConfigHandler{path: path}
}

// GetConfig handles GET /api/config.
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	profile, err := config.Read(h.path)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "CONFIG_READ_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, profile)
}

// PostConfig handles POST /api/config, replacing the persisted profile
// wholesale.
func (h *ConfigHandler) PostConfig(c *gin.Context) {
	var profile config.ConfigProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := config.Save(h.path, profile); err != nil {
		writeError(c, http.StatusInternalServerError, "CONFIG_SAVE_FAILED", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
