package leads

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"imobcrm_backend/platform/config"
)

// IntakeKeyHeader carries the shared secret external lead sources send on
// the webhook intake endpoint.
const IntakeKeyHeader = "X-Intake-API-Key"

// IntakeKeyAuth validates the intake shared secret before the request
// reaches the handler. An unconfigured key keeps the endpoint closed.
func IntakeKeyAuth(cfg config.IntakeConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		configured := cfg.GetIntakeAPIKey()
		if configured == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "intake disabled"})
			return
		}

		provided := c.GetHeader(IntakeKeyHeader)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		c.Next()
	}
}
