package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/roguebt/game/sim"
	"github.com/kasuganosora/roguebt/journal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TurnHandler serves turn summaries.
type TurnHandler struct {
	runner *sim.Runner
	db     *gorm.DB
	logger *zap.Logger
}

// NewTurnHandler creates a TurnHandler. db may be nil.
func NewTurnHandler(runner *sim.Runner, db *gorm.DB, logger *zap.Logger) *TurnHandler {
	return &TurnHandler{runner: runner, db: db, logger: logger}
}

// Latest returns the summary of the most recent turn.
// GET /api/turns/latest
func (h *TurnHandler) Latest(c *gin.Context) {
	s, ok := h.runner.Latest(c.Request.Context())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no turn processed yet"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// Recent returns cached summaries, newest first.
// GET /api/turns/recent?n=10
func (h *TurnHandler) Recent(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("n", "10"))
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid n"})
		return
	}
	turns, err := h.runner.Recent(c.Request.Context(), min(n, 100))
	if err != nil {
		h.logger.Error("recent turns", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"turns": turns})
}

// History returns journaled turn summaries of the current run.
// GET /api/turns/history?limit=50
func (h *TurnHandler) History(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	turns, err := journal.Turns(c.Request.Context(), h.db, h.runner.RunID(), min(limit, 500))
	if err != nil {
		h.logger.Error("query turns", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": h.runner.RunID(), "turns": turns})
}
