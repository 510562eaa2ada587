// Package api exposes the price service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"stockgen/internal/pricing"
	"stockgen/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceService is implemented by *pricing.Service.
type PriceService interface {
	ListAll(ctx context.Context) ([]pricing.PriceRecord, error)
	GetBySymbol(ctx context.Context, symbol string) (*pricing.PriceRecord, error)
	Reconcile(ctx context.Context, symbol string, price decimal.Decimal, observedAt time.Time) (*pricing.PriceRecord, error)
	PublishExisting(ctx context.Context, rec pricing.PriceRecord) error
	DeleteBySymbol(ctx context.Context, symbol string) error
	ClearAll(ctx context.Context) error
}

// Ticker runs a generation tick on demand. Implemented by *scheduler.Scheduler.
type Ticker interface {
	Tick(ctx context.Context) scheduler.TickReport
}

type Deps struct {
	Service PriceService
	Ticker  Ticker
	Clock   scheduler.Clock

	// optional
	Stream  http.Handler
	Metrics http.Handler
	Health  func(ctx context.Context) bool

	Logger *zap.Logger
}

// NewRouter builds the gin engine. Call gin.SetMode before it to pick the mode.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = scheduler.RealClock{}
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(d.Logger))

	h := &handler{
		service: d.Service,
		ticker:  d.Ticker,
		clock:   d.Clock,
		logger:  d.Logger,
	}

	stocks := r.Group("/api/stocks")
	{
		stocks.GET("", h.listAll)
		stocks.DELETE("", h.clearAll)
		stocks.POST("/publish", h.publish)
		stocks.GET("/symbol/:symbol", h.getBySymbol)
		stocks.PUT("/symbol/:symbol", h.reconcile)
		stocks.DELETE("/symbol/:symbol", h.deleteBySymbol)
		if d.Ticker != nil {
			stocks.POST("/tick", h.tick)
		}
	}

	if d.Stream != nil {
		r.GET("/ws", gin.WrapH(d.Stream))
	}
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	r.GET("/healthz", func(c *gin.Context) {
		if d.Health != nil && !d.Health(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
