package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/puzzleplan-backend/internal/platform/ctxutil"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

// RequestLogger emits one line per request once the handler chain returns.
// Routes listed in quiet (the long-lived SSE stream, probes) log at debug
// unless they fail.
func RequestLogger(log *logger.Logger, quiet ...string) gin.HandlerFunc {
	quietRoutes := make(map[string]struct{}, len(quiet))
	for _, r := range quiet {
		quietRoutes[r] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if log == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		ctx := c.Request.Context()

		fields := append([]interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		}, ctxutil.TraceFields(ctx)...)
		if rd := ctxutil.GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
			fields = append(fields, "user_id", rd.UserID.String())
			if rd.SessionID != uuid.Nil {
				fields = append(fields, "session_id", rd.SessionID.String())
			}
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, "errors", errs.String())
		}

		_, isQuiet := quietRoutes[route]
		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		case isQuiet:
			log.Debug("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
