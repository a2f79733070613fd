package handler

import (
	"errors"
	"net/http"

	"github.com/yourorg/trading-engine/internal/model"
	"github.com/yourorg/trading-engine/internal/service"
	"github.com/yourorg/trading-engine/internal/strategy"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BacktestHandler handles backtest HTTP requests
type BacktestHandler struct {
	backtestService *service.BacktestService
	logger          *zap.Logger
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(backtestService *service.BacktestService, logger *zap.Logger) *BacktestHandler {
	return &BacktestHandler{
		backtestService: backtestService,
		logger:          logger,
	}
}

// Run handles executing a backtest
func (h *BacktestHandler) Run(c *gin.Context) {
	var request model.BacktestRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("userID")

	result, err := h.backtestService.Run(c.Request.Context(), &request)
	if err != nil {
		h.logger.Warn("Backtest failed",
			zap.Error(err),
			zap.Int64("userID", userID),
			zap.String("strategy", request.Strategy),
			zap.String("symbol", request.Symbol))

		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrInvalidRequest) ||
			errors.Is(err, service.ErrInsufficientData) ||
			errors.Is(err, strategy.ErrUnknownStrategy) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
