// Package api exposes the storefront over HTTP.
//
// Routes live under /api and speak JSON. Stock changes are pushed to
// browsers over a WebSocket at /api/stock/stream, and Prometheus metrics
// are served at /metrics.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/pokemart/internal/filter"
	"github.com/roach88/pokemart/internal/storefront"
)

// DefaultStreamBuffer is the per-connection stock notification buffer.
const DefaultStreamBuffer = 32

// Options wires a Server.
type Options struct {
	Controller *storefront.Controller
	// PriceRange is applied when a catalog query omits min or max.
	PriceRange filter.PriceRange
	// Gatherer backs /metrics. nil uses prometheus.DefaultGatherer.
	Gatherer     prometheus.Gatherer
	StreamBuffer int
}

// Server holds the HTTP handlers.
type Server struct {
	ctrl         *storefront.Controller
	prices       filter.PriceRange
	gatherer     prometheus.Gatherer
	streamBuffer int
	upgrader     websocket.Upgrader
}

// New builds a server. A zero PriceRange falls back to the default filter
// window.
func New(opts Options) *Server {
	s := &Server{
		ctrl:         opts.Controller,
		prices:       opts.PriceRange,
		gatherer:     opts.Gatherer,
		streamBuffer: opts.StreamBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	if s.prices == (filter.PriceRange{}) {
		s.prices = filter.DefaultCriteria().Price
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.streamBuffer <= 0 {
		s.streamBuffer = DefaultStreamBuffer
	}
	return s
}

// Handler returns a gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	s.SetupRoutes(router)
	return router
}

// SetupRoutes registers the routes on router.
func (s *Server) SetupRoutes(router *gin.Engine) {
	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		api.GET("/catalog", s.listCatalog)
		api.GET("/types", s.listTypes)
		api.POST("/checkout", s.checkout)
		api.GET("/stock/stream", s.streamStock)

		cart := api.Group("/cart")
		{
			cart.GET("", s.showCart)
			cart.DELETE("", s.clearCart)
			cart.POST("/items", s.addItem)
			cart.PATCH("/items/:id", s.updateItem)
			cart.DELETE("/items/:id", s.removeItem)
		}
	}
}

// requestLogger logs each request through slog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
