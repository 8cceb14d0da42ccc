package api

import (
	"crypto/subtle"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pump-trade-feed/internal/observability"
)

// AccessLog logs one line per request. Paths in notLogged are skipped.
func AccessLog(logger *logrus.Entry, notLogged ...string) gin.HandlerFunc {
	var skip map[string]struct{}
	if len(notLogged) > 0 {
		skip = make(map[string]struct{}, len(notLogged))
		for _, p := range notLogged {
			skip[p] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		start := time.Now()
		c.Next()
		stop := time.Since(start)

		statusCode := c.Writer.Status()
		dataLength := c.Writer.Size()
		if dataLength < 0 {
			dataLength = 0
		}

		entry := logger.WithFields(logrus.Fields{
			"statusCode": statusCode,
			"latency":    fmt.Sprintf("%d us", int(math.Ceil(float64(stop.Nanoseconds())/1000.0))),
			"clientIP":   c.ClientIP(),
			"method":     c.Request.Method,
			"path":       path,
			"dataLength": dataLength,
			"userAgent":  c.Request.UserAgent(),
		})

		switch {
		case len(c.Errors) > 0:
			entry.Error(c.Errors.ByType(gin.ErrorTypePrivate).String())
		case statusCode >= http.StatusInternalServerError:
			entry.Error()
		case statusCode >= http.StatusBadRequest:
			entry.Warn()
		default:
			entry.Info()
		}
	}
}

// RequestMetrics counts requests per matched route and status code.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.RecordAPIRequest(route, strconv.Itoa(c.Writer.Status()))
	}
}

// BasicAuth guards the data routes when credentials are configured.
func BasicAuth(username, password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if username == "" || password == "" {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(password)) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="pump-trade-feed"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}
