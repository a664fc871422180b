package middleware

import (
	"net/http"

	"placement-optimizer/internal/api/models"
	"placement-optimizer/internal/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler middleware turns panics into a 500 with the standard error body.
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.FromContext(c.Request.Context()).Errorw("panic recovered",
			"path", c.Request.URL.Path,
			"panic", recovered,
		)
		msg := "An unexpected error occurred"
		if s, ok := recovered.(string); ok {
			msg = s
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: msg,
			},
		})
	})
}
