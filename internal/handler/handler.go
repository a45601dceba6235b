package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BarkinBalci/feature-flag-events/internal/cmab"
	"github.com/BarkinBalci/feature-flag-events/internal/dto"
	"github.com/BarkinBalci/feature-flag-events/internal/projectconfig"
	"github.com/BarkinBalci/feature-flag-events/internal/service"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	experimentationService service.Servicer
	pinger                 Pinger
	router                 *gin.Engine
	log                    *zap.Logger
}

// NewHandler creates the agent API. pinger may be nil when the configured
// dispatcher has nothing to check.
func NewHandler(experimentationService service.Servicer, pinger Pinger, log *zap.Logger) *Handler {
	h := &Handler{
		experimentationService: experimentationService,
		pinger:                 pinger,
		router:                 gin.New(),
		log:                    log,
	}

	h.router.Use(gin.Recovery(), h.requestLogger())
	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)

	v1 := h.router.Group("/v1")
	v1.POST("/decide", h.decide)
	v1.POST("/track", h.track)
	v1.POST("/flush", h.flush)
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// healthCheck handles GET /health
func (h *Handler) healthCheck(c *gin.Context) {
	if h.pinger != nil {
		if err := h.pinger.Ping(c.Request.Context()); err != nil {
			h.log.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// decide handles POST /v1/decide
func (h *Handler) decide(c *gin.Context) {
	var req dto.DecideRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid decide request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.experimentationService.DecideCmab(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to decide",
			zap.Error(err),
			zap.String("rule_key", req.RuleKey),
			zap.String("user_id", req.UserID))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// track handles POST /v1/track
func (h *Handler) track(c *gin.Context) {
	var req dto.TrackRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid track request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.experimentationService.Track(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to track event",
			zap.Error(err),
			zap.String("event_key", req.EventKey),
			zap.String("user_id", req.UserID))
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

// flush handles POST /v1/flush
func (h *Handler) flush(c *gin.Context) {
	h.experimentationService.Flush()
	c.JSON(http.StatusAccepted, dto.FlushResponse{Status: "accepted"})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, projectconfig.ErrExperimentNotFound), errors.Is(err, projectconfig.ErrEventNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, service.ErrNotCmabRule):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "validation_error", Message: err.Error()})
	case errors.Is(err, cmab.ErrFetchFailed), errors.Is(err, cmab.ErrInvalidResponse):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: "upstream_error", Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal_error", Message: err.Error()})
	}
}
