package middleware

import (
	"fmt"

	"github.com/bhandras/avatarctl/internal/api/envelope"
	"github.com/bhandras/avatarctl/internal/logger"
	"github.com/bhandras/avatarctl/pkg/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDMiddleware assigns every request a fresh correlation id.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		envelope.SetRequestID(c, id)
		c.Header(types.RequestIDHeader, id)
		c.Next()
	}
}

// RecoveryMiddleware turns a panicking handler into an internal error
// envelope instead of a dropped connection.
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Errorf("[api] panic in %s %s (request_id=%s): %v",
			c.Request.Method, c.Request.URL.Path, envelope.RequestID(c), recovered)
		envelope.Fail(c, envelope.Internal(fmt.Sprint(recovered)))
	})
}
