package middleware

import (
	"time"

	"placement-optimizer/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request ID; an incoming value is reused.
const RequestIDHeader = "X-Request-ID"

// Logger attaches a request-scoped zap logger to the request context and logs
// one line per request.
func Logger(base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		lg := base.With("request_id", id)
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), lg))

		start := time.Now()
		c.Next()

		fields := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if len(c.Errors) > 0 {
			lg.Warnw("request completed with errors", append(fields, "errors", c.Errors.String())...)
			return
		}
		lg.Infow("request completed", fields...)
	}
}
