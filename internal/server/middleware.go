package server

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vincentbai/browsetrace-server/internal/logger"
)

const requestIDHeader = "X-Request-ID"

var extensionSchemes = []string{
	"chrome-extension://",
	"moz-extension://",
	"safari-web-extension://",
}

// CORS admits any browser-extension origin plus the listed origins.
func CORS(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			for _, scheme := range extensionSchemes {
				if strings.HasPrefix(origin, scheme) {
					return true
				}
			}
			return allowed[origin]
		},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", requestIDHeader},
		MaxAge:       12 * time.Hour,
	})
}

// RequestID propagates or assigns an X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"bytes_in", c.Request.ContentLength,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(requestIDHeader),
		}
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
