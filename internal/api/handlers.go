package api

import (
	"net/http"
	"time"

	"stockgen/internal/pricing"
	"stockgen/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type handler struct {
	service PriceService
	ticker  Ticker
	clock   scheduler.Clock
	logger  *zap.Logger
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ReconcileRequest is the PUT body. Timestamp defaults to now.
type ReconcileRequest struct {
	Price     decimal.Decimal `json:"price"`
	Timestamp *time.Time      `json:"timestamp"`
}

type OutcomeResponse struct {
	Symbol  string               `json:"symbol"`
	Outcome string               `json:"outcome"`
	Record  *pricing.PriceRecord `json:"record,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type TickResponse struct {
	Started    time.Time         `json:"started"`
	DurationMS int64             `json:"duration_ms"`
	Published  int               `json:"published"`
	Failed     int               `json:"failed"`
	Outcomes   []OutcomeResponse `json:"outcomes"`
}

func (h *handler) listAll(c *gin.Context) {
	records, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(records) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *handler) getBySymbol(c *gin.Context) {
	rec, err := h.service.GetBySymbol(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handler) reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	observedAt := h.clock.Now()
	if req.Timestamp != nil {
		observedAt = req.Timestamp.UTC()
	}

	rec, err := h.service.Reconcile(c.Request.Context(), c.Param("symbol"), req.Price, observedAt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handler) publish(c *gin.Context) {
	var rec pricing.PriceRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = h.clock.Now()
	}

	if err := h.service.PublishExisting(c.Request.Context(), rec); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *handler) deleteBySymbol(c *gin.Context) {
	if err := h.service.DeleteBySymbol(c.Request.Context(), c.Param("symbol")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) clearAll(c *gin.Context) {
	if err := h.service.ClearAll(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) tick(c *gin.Context) {
	report := h.ticker.Tick(c.Request.Context())

	resp := TickResponse{
		Started:    report.Started,
		DurationMS: report.Duration.Milliseconds(),
		Published:  report.Published(),
		Failed:     report.Failed(),
		Outcomes:   make([]OutcomeResponse, 0, len(report.Outcomes)),
	}
	for _, out := range report.Outcomes {
		o := OutcomeResponse{
			Symbol:  out.Symbol,
			Outcome: out.Kind.String(),
			Record:  out.Record,
		}
		if out.Err != nil {
			o.Error = out.Err.Error()
		}
		resp.Outcomes = append(resp.Outcomes, o)
	}
	c.JSON(http.StatusOK, resp)
}

// fail maps service errors to a status code.
func (h *handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	status := http.StatusInternalServerError
	switch {
	case pricing.IsValidation(err):
		status = http.StatusBadRequest
	case pricing.IsNotFound(err):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
