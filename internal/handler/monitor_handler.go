package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fredmontagnon/arianeegeo/internal/service"
)

// MonitorHandler exposes the visibility monitor over HTTP: the dashboard
// read payload, the run trigger and the recommendation regeneration
// trigger.
type MonitorHandler struct {
	monitor   *service.Monitor
	dashboard *service.Dashboard
	logger    *zap.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(monitor *service.Monitor, dashboard *service.Dashboard, logger *zap.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor:   monitor,
		dashboard: dashboard,
		logger:    logger,
	}
}

// validDate accepts empty (meaning today) or a YYYY-MM-DD day.
func validDate(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// Results serves the full dashboard payload for a date.
// Route: GET /api/v1/monitor/results?date=2026-08-31
func (h *MonitorHandler) Results(c *gin.Context) {
	date := c.Query("date")
	if !validDate(date) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid date: must be YYYY-MM-DD",
		})
		return
	}

	data, err := h.dashboard.Load(c.Request.Context(), date)
	if err != nil {
		h.logger.Error("loading dashboard", zap.String("date", date), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, data)
}

// runRequest is the run trigger body. Batch 0 (or absent) processes the
// whole query set in one invocation.
type runRequest struct {
	Date  string `json:"date"`
	Batch int    `json:"batch"`
}

// Run triggers a monitoring invocation synchronously and returns its
// report. Long-running by design: one full scan can take minutes.
// Route: POST /api/v1/monitor/run
func (h *MonitorHandler) Run(c *gin.Context) {
	var req runRequest
	// Empty bodies are fine — everything defaults.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if !validDate(req.Date) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid date: must be YYYY-MM-DD",
		})
		return
	}
	if req.Batch < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch must be >= 0"})
		return
	}

	report, err := h.monitor.Run(c.Request.Context(), service.RunOptions{
		Date:  req.Date,
		Batch: req.Batch,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoActiveQueries) {
			c.JSON(http.StatusConflict, gin.H{"error": "no active queries configured"})
			return
		}
		h.logger.Error("run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// recommendationsRequest is the regeneration trigger body.
type recommendationsRequest struct {
	Date string `json:"date"`
}

// Recommendations rebuilds the daily action plan from stored results.
// Route: POST /api/v1/monitor/recommendations
func (h *MonitorHandler) Recommendations(c *gin.Context) {
	var req recommendationsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if !validDate(req.Date) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid date: must be YYYY-MM-DD",
		})
		return
	}

	set, err := h.monitor.RegenerateRecommendations(c.Request.Context(), req.Date)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoActiveQueries):
			c.JSON(http.StatusConflict, gin.H{"error": "no active queries configured"})
		case errors.Is(err, service.ErrNoResults):
			c.JSON(http.StatusNotFound, gin.H{"error": "no results stored for this date"})
		default:
			h.logger.Error("regenerating recommendations", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, set)
}
