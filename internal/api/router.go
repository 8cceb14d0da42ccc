// Package api exposes recent trades and service health over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pump-trade-feed/internal/feed"
	"pump-trade-feed/internal/query"
	"pump-trade-feed/internal/storage"
)

// StatusSource reports the feed connection status.
type StatusSource interface {
	Status() feed.Status
}

// Options holds router dependencies.
type Options struct {
	Query           *query.Service
	Store           storage.EventStore
	Feed            StatusSource
	IncludeOptional bool
	LabelPolicy     string
	MaxFrameAge     time.Duration // default 2m

	Logger       *logrus.Entry // application log, also used for panics
	AccessLogger *logrus.Entry // nil uses Logger
	AuthUsername string
	AuthPassword string

	Metrics http.Handler // nil disables /metrics
	Now     func() time.Time
}

// NewRouter builds the gin engine.
func NewRouter(opts Options) *gin.Engine {
	h := newHandler(opts)

	access := opts.AccessLogger
	if access == nil {
		access = h.logger
	}

	r := gin.New()
	r.Use(
		gin.RecoveryWithWriter(h.logger.WriterLevel(logrus.ErrorLevel)),
		AccessLog(access, "/health", "/metrics"),
		RequestMetrics(),
	)

	r.GET("/health", h.Health)
	r.GET("/status", h.Status)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	data := r.Group("/api", BasicAuth(opts.AuthUsername, opts.AuthPassword))
	data.GET("/trades", h.Trades)

	return r
}
