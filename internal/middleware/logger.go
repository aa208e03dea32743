package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

const RequestIDKey = "request_id"

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RequestLogger tags each request with an id (reusing X-Request-ID when
// present) and logs it once the handler chain returns.
func RequestLogger(logger *zap.Logger) drift.HandlerFunc {
	return func(c *drift.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Response.Header().Set("X-Request-ID", requestID)

		sw := &statusWriter{ResponseWriter: c.Response, status: http.StatusOK}
		c.Response = sw
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("latency", time.Since(start)),
		}
		if userID := GetUserID(c); userID != 0 {
			fields = append(fields, zap.Int64("user_id", userID))
		}

		switch {
		case sw.status >= 500:
			logger.Error("request", fields...)
		case sw.status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
