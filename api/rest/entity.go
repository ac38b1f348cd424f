package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/roguebt/game/ai"
	"github.com/kasuganosora/roguebt/game/world"
	"github.com/kasuganosora/roguebt/journal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EntityHandler serves read-only views of the simulated entities.
type EntityHandler struct {
	w      *world.World
	db     *gorm.DB
	runID  func() string
	logger *zap.Logger
}

// NewEntityHandler creates an EntityHandler. db may be nil when the journal
// is disabled; decision history is unavailable then.
func NewEntityHandler(w *world.World, db *gorm.DB, runID func() string, logger *zap.Logger) *EntityHandler {
	return &EntityHandler{w: w, db: db, runID: runID, logger: logger}
}

// List returns every live entity without blackboards.
// GET /api/entities?archetype=minotaur
func (h *EntityHandler) List(c *gin.Context) {
	all := h.w.Entities()
	if arch := c.Query("archetype"); arch != "" {
		filtered := all[:0]
		for _, e := range all {
			if e.Archetype == arch {
				filtered = append(filtered, e)
			}
		}
		all = filtered
	}
	c.JSON(http.StatusOK, gin.H{"turn": h.w.Turn(), "entities": all, "count": len(all)})
}

// Detail returns one entity with its blackboard keyed by variable name.
// GET /api/entities/:id
func (h *EntityHandler) Detail(c *gin.Context) {
	id, ok := entityID(c)
	if !ok {
		return
	}
	e, found := h.w.Entity(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
		return
	}
	c.JSON(http.StatusOK, e)
}

// Variable returns one blackboard variable of an entity.
// GET /api/entities/:id/blackboard/:name
func (h *EntityHandler) Variable(c *gin.Context) {
	id, ok := entityID(c)
	if !ok {
		return
	}
	e, found := h.w.Entity(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
		return
	}
	name := c.Param("name")
	v, set := e.Blackboard[name]
	if !set {
		c.JSON(http.StatusNotFound, gin.H{"error": "variable not set"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "value": v})
}

// Decisions returns the journaled decisions of an entity, newest first.
// GET /api/entities/:id/decisions?limit=20
func (h *EntityHandler) Decisions(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}
	id, ok := entityID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	decisions, err := journal.Decisions(c.Request.Context(), h.db, h.runID(), id, min(limit, 500))
	if err != nil {
		h.logger.Error("query decisions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entity": id, "decisions": decisions})
}

func entityID(c *gin.Context) (ai.EntityID, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return ai.None, false
	}
	return ai.EntityID(n), true
}

func spawnStatus(err error) int {
	switch {
	case errors.Is(err, world.ErrBlocked):
		return http.StatusConflict
	case errors.Is(err, world.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
