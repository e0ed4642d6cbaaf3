package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/telemetry"
)

// RegisterDebugRoutes mounts operator-only endpoints. They stay off the
// router entirely unless explicitly enabled, so production deployments
// never expose them.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, enabled bool) {
	if !enabled || emitter == nil {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		emitter.Emit(c.Request.Context(), "INFO", "messaging audit self-test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
