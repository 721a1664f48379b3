package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/craftbits/executive-portal/internal/logger"
	"github.com/gin-gonic/gin"
)

// Recovery turns a panic inside a report handler into a 500 with the
// standard error envelope. The stack is logged, never returned.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				requestID := GetRequestID(c)

				requestLogger := GetLogger(c)
				if requestLogger == nil {
					requestLogger = log
				}
				requestLogger.Error("Panic recovered", fmt.Errorf("panic: %v", rec), map[string]interface{}{
					"request_id": requestID,
					"method":     c.Request.Method,
					"path":       c.Request.URL.Path,
					"stack":      string(debug.Stack()),
				})

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{
						"code":       "INTERNAL_SERVER_ERROR",
						"message":    "Report generation failed unexpectedly",
						"request_id": requestID,
					},
				})
			}
		}()

		c.Next()
	}
}
