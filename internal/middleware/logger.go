package middleware

import (
	"time"

	"github.com/finance-tracker/pkg/keygen"
	"github.com/finance-tracker/pkg/logger"
	"github.com/gin-gonic/gin"
)

const (
	// HeaderRequestID carries the request correlation id
	HeaderRequestID = "X-Request-ID"
	// ContextKeyRequestID is the key for the request id in gin context
	ContextKeyRequestID = "request_id"
)

// RequestIDMiddleware reuses an incoming X-Request-ID or generates one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = keygen.RequestID()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLoggerMiddleware logs all incoming requests
// Format: METHOD URL | status | latency | request id
func RequestLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		fullURL := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			fullURL = fullURL + "?" + redactToken(c)
		}

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		requestID := c.GetString(ContextKeyRequestID)

		if statusCode >= 500 {
			logger.Error("%s %s | status=%d | latency=%v | rid=%s",
				c.Request.Method, fullURL, statusCode, latency, requestID)
		} else if statusCode >= 400 {
			logger.Warn("%s %s | status=%d | latency=%v | rid=%s",
				c.Request.Method, fullURL, statusCode, latency, requestID)
		} else {
			logger.Info("%s %s | status=%d | latency=%v | rid=%s",
				c.Request.Method, fullURL, statusCode, latency, requestID)
		}
	}
}

// redactToken hides a websocket token query parameter from the log line
func redactToken(c *gin.Context) string {
	q := c.Request.URL.Query()
	if q.Get("token") == "" {
		return c.Request.URL.RawQuery
	}
	q.Set("token", "***")
	return q.Encode()
}
