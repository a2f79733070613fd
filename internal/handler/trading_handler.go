package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/yourorg/trading-engine/internal/model"
	"github.com/yourorg/trading-engine/internal/service"
	"github.com/yourorg/trading-engine/internal/strategy"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TradingHandler handles trading session HTTP requests
type TradingHandler struct {
	tradingService *service.TradingService
	logger         *zap.Logger
}

// NewTradingHandler creates a new trading handler
func NewTradingHandler(tradingService *service.TradingService, logger *zap.Logger) *TradingHandler {
	return &TradingHandler{
		tradingService: tradingService,
		logger:         logger,
	}
}

// StartRequest is the payload for starting a trading session.
type StartRequest struct {
	Strategy string                `json:"strategy" binding:"required"`
	Symbols  []string              `json:"symbols" binding:"required,min=1"`
	Settings model.SessionSettings `json:"settings" binding:"required"`
}

// Start handles starting a trading session
func (h *TradingHandler) Start(c *gin.Context) {
	var request StartRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("userID")

	sessionID, err := h.tradingService.Start(
		c.Request.Context(),
		userID,
		request.Strategy,
		request.Symbols,
		request.Settings,
	)
	if err != nil {
		h.logger.Warn("Failed to start trading session",
			zap.Error(err),
			zap.Int64("userID", userID),
			zap.String("strategy", request.Strategy))

		status := http.StatusBadRequest
		if errors.Is(err, service.ErrSessionActive) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"message":    "Trading session started",
	})
}

// Stop handles stopping a trading session. Stopping an absent session
// succeeds without effect.
func (h *TradingHandler) Stop(c *gin.Context) {
	userID := c.GetInt64("userID")

	if err := h.tradingService.Stop(c.Request.Context(), userID); err != nil {
		h.logger.Error("Failed to stop trading session",
			zap.Error(err),
			zap.Int64("userID", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to stop trading session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Trading session stopped"})
}

// Status handles retrieving the user's session status
func (h *TradingHandler) Status(c *gin.Context) {
	userID := c.GetInt64("userID")
	c.JSON(http.StatusOK, h.tradingService.Status(userID))
}

// Positions handles listing the user's open positions
func (h *TradingHandler) Positions(c *gin.Context) {
	userID := c.GetInt64("userID")

	positions, err := h.tradingService.ListOpenPositions(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list positions",
			zap.Error(err),
			zap.Int64("userID", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve positions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

// ClosePositionRequest is the payload for force-closing one position.
type ClosePositionRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// ClosePosition handles force-closing an open position at market
func (h *TradingHandler) ClosePosition(c *gin.Context) {
	var request ClosePositionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("userID")

	profitRate, err := h.tradingService.ForceClose(c.Request.Context(), userID, request.Symbol)
	if err != nil {
		if errors.Is(err, model.ErrNoOpenPosition) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to close position",
			zap.Error(err),
			zap.Int64("userID", userID),
			zap.String("symbol", request.Symbol))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to close position"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":      request.Symbol,
		"profit_rate": profitRate,
	})
}

// History handles listing the user's trade history with pagination
func (h *TradingHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	userID := c.GetInt64("userID")

	pageResult, err := h.tradingService.TradeHistory(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.logger.Error("Failed to list trade history",
			zap.Error(err),
			zap.Int64("userID", userID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve trade history"})
		return
	}

	c.JSON(http.StatusOK, pageResult)
}

// Strategies handles listing the registered strategy names
func (h *TradingHandler) Strategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": strategy.Names()})
}
