package middleware

import (
	"crypto/subtle"

	"github.com/bhandras/avatarctl/internal/api/envelope"
	"github.com/bhandras/avatarctl/internal/logger"
	"github.com/bhandras/avatarctl/pkg/types"
	"github.com/gin-gonic/gin"
)

// APIKeyPolicy reports whether an API key is required and its value.
type APIKeyPolicy interface {
	APIKey() (required bool, key string)
}

// AuthMiddleware rejects requests without the configured shared secret.
//
// The policy is consulted per request so that a settings reload takes effect
// immediately.
func AuthMiddleware(policy APIKeyPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		required, key := policy.APIKey()
		if !required {
			c.Next()
			return
		}

		got := c.GetHeader(types.APIKeyHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			logger.Warnf("[auth] rejected %s %s (request_id=%s)",
				c.Request.Method, c.Request.URL.Path, envelope.RequestID(c))
			envelope.Fail(c, envelope.Unauthorized())
			return
		}

		c.Next()
	}
}
