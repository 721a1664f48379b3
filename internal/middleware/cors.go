package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// DataSourceHeader carries the provenance of the data behind a response:
// "synthetic" when any dataset fell back, "real" otherwise.
const DataSourceHeader = "X-Data-Source"

// CORS creates a middleware that handles Cross-Origin Resource Sharing (CORS).
// The API is read-only apart from cache invalidation, so only GET and POST are allowed.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader, DataSourceHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(config)
}
