package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/studyvault/studyvault-api/internal/security"
	appErrors "github.com/studyvault/studyvault-api/pkg/errors"
	"github.com/studyvault/studyvault-api/pkg/response"
)

// Guard rejects blacklisted clients before any other processing and flags,
// without blocking, clients whose declared identification string looks
// automated. The client IP is the tracked identifier.
func Guard(tracker *security.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.ClientIP()

		if tracker.IsBlacklisted(id) {
			tracker.LogEvent(c.Request.Context(), security.Event{
				Kind:       security.EventBlacklistHit,
				Identifier: id,
				Detail:     c.Request.URL.Path,
			})
			response.Error(c, appErrors.ErrSecurityBlocked)
			c.Abort()
			return
		}

		if suspicious, reason := security.SuspiciousClient(c.Request.UserAgent()); suspicious {
			tracker.LogEvent(c.Request.Context(), security.Event{
				Kind:       security.EventSuspiciousClient,
				Identifier: id,
				Detail:     reason,
			})
		}

		c.Next()
	}
}
