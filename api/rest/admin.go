package rest

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/roguebt/audit"
	"github.com/kasuganosora/roguebt/game/ai"
	"github.com/kasuganosora/roguebt/game/sim"
	"github.com/kasuganosora/roguebt/game/world"
	mw "github.com/kasuganosora/roguebt/middleware"
	"github.com/kasuganosora/roguebt/scheduler"
	"go.uber.org/zap"
)

const maxAdvance = 1000

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	runner *sim.Runner
	sched  *scheduler.Scheduler
	audit  *audit.Service
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler. auditSvc may be nil.
func NewAdminHandler(runner *sim.Runner, sched *scheduler.Scheduler, auditSvc *audit.Service, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{runner: runner, sched: sched, audit: auditSvc, logger: logger}
}

// Advance processes turns immediately.
// POST /api/admin/turns {"count": 1}
func (h *AdminHandler) Advance(c *gin.Context) {
	start := time.Now()
	var req struct {
		Count int `json:"count"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.Count > maxAdvance {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count too large"})
		return
	}

	reports, err := h.runner.Advance(c.Request.Context(), req.Count)
	var turn uint64
	if n := len(reports); n > 0 {
		turn = reports[n-1].Turn
	}
	resp := gin.H{"advanced": len(reports), "turn": turn}
	h.record(c, "advance_turns", req, resp, err, start)

	switch {
	case errors.Is(err, sim.ErrFinished):
		c.JSON(http.StatusConflict, gin.H{"error": "turn limit reached", "turn": h.runner.World().Turn()})
	case err != nil:
		h.logger.Error("advance turns", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "turn failed"})
	default:
		c.JSON(http.StatusOK, resp)
	}
}

// Spawn places a new entity.
// POST /api/admin/entities {"archetype": "minotaur", "x": 1, "y": 2}
func (h *AdminHandler) Spawn(c *gin.Context) {
	start := time.Now()
	var req struct {
		Archetype string `json:"archetype" binding:"required"`
		X         int    `json:"x"`
		Y         int    `json:"y"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	id, err := h.runner.World().Spawn(req.Archetype, ai.Position{X: req.X, Y: req.Y})
	resp := gin.H{"id": id}
	h.record(c, "spawn_entity", req, resp, err, start)
	if err != nil {
		c.JSON(spawnStatus(err), gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("admin spawned entity", zap.Uint64("entity", uint64(id)), zap.String("archetype", req.Archetype))
	c.JSON(http.StatusCreated, resp)
}

// Destroy removes an entity.
// DELETE /api/admin/entities/:id
func (h *AdminHandler) Destroy(c *gin.Context) {
	start := time.Now()
	id, ok := entityID(c)
	if !ok {
		return
	}
	err := h.runner.World().Destroy(id)
	h.record(c, "destroy_entity", gin.H{"id": id}, nil, err, start)
	if errors.Is(err, world.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Pause stops automatic turns.
// POST /api/admin/pause
func (h *AdminHandler) Pause(c *gin.Context) {
	h.sched.Remove(sim.TurnTask)
	h.record(c, "pause", nil, nil, nil, time.Now())
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}

// Resume restarts automatic turns.
// POST /api/admin/resume
func (h *AdminHandler) Resume(c *gin.Context) {
	h.runner.Start(h.sched)
	h.record(c, "resume", nil, nil, nil, time.Now())
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}

// ListSchedulerTasks returns the registered scheduler tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}

func (h *AdminHandler) record(c *gin.Context, action string, req, resp any, err error, start time.Time) {
	if h.audit == nil {
		return
	}
	entry := audit.AuditEntry{
		TraceID:    mw.GetTraceID(c),
		RunID:      h.runner.RunID(),
		Action:     action,
		Request:    req,
		Response:   resp,
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	h.audit.Log(entry)
}

// AdminAuth checks the X-Admin-Key header against adminKey. With no key
// configured the admin endpoints are disabled.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
