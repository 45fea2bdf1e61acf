package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-intake-bot/internal/services"
)

// Status godoc
// @ID          serviceStatus
// @Summary     Service status
// @Description Reports store reachability, AI health and enabled features. Never calls the AI backend.
// @Tags        Status
// @Produce     json
//
// @Success     200  {object}  services.StatusReport  "active or degraded"
// @Failure     503  {object}  services.StatusReport  "store unreachable"
// @Router      /status [get]
func (h *Handlers) Status(c *gin.Context) {
	rep := h.intake.ServiceStatus(c.Request.Context())
	status := http.StatusOK
	if rep.OverallStatus == services.StatusError {
		status = http.StatusServiceUnavailable
	}
	ok(c, status, rep)
}
