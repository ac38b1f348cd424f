package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/roguebt/api/sse"
	"github.com/kasuganosora/roguebt/api/ws"
	"github.com/kasuganosora/roguebt/audit"
	"github.com/kasuganosora/roguebt/cache"
	"github.com/kasuganosora/roguebt/config"
	"github.com/kasuganosora/roguebt/game/sim"
	mw "github.com/kasuganosora/roguebt/middleware"
	"github.com/kasuganosora/roguebt/observe"
	"github.com/kasuganosora/roguebt/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Deps is everything the HTTP surface talks to. DB, Audit, PubSub, Metrics
// and MetricsHandler are optional.
type Deps struct {
	Runner         *sim.Runner
	Scheduler      *scheduler.Scheduler
	DB             *gorm.DB
	Audit          *audit.Service
	PubSub         cache.PubSub
	Metrics        *observe.Metrics
	MetricsHandler http.Handler
	Config         *config.Config
	Logger         *zap.Logger
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(d.Logger), mw.Recovery(d.Logger))
	if d.Metrics != nil {
		r.Use(mw.Metrics(d.Metrics))
	}
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "turn": d.Runner.World().Turn()})
	})
	if d.MetricsHandler != nil && cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(d.MetricsHandler))
	}

	entH := NewEntityHandler(d.Runner.World(), d.DB, d.Runner.RunID, d.Logger)
	turnH := NewTurnHandler(d.Runner, d.DB, d.Logger)
	adminH := NewAdminHandler(d.Runner, d.Scheduler, d.Audit, d.Logger)

	api := r.Group("/api")
	{
		entG := api.Group("/entities")
		entG.GET("", entH.List)
		entG.GET("/:id", entH.Detail)
		entG.GET("/:id/blackboard/:name", entH.Variable)
		entG.GET("/:id/decisions", entH.Decisions)

		turnG := api.Group("/turns")
		turnG.GET("/latest", turnH.Latest)
		turnG.GET("/recent", turnH.Recent)
		turnG.GET("/history", turnH.History)
		if d.PubSub != nil {
			turnG.GET("/stream", sse.NewHandler(d.PubSub, d.Runner.TurnChannel(), d.Logger).ServeSSE)
			turnG.GET("/ws", ws.NewHandler(d.PubSub, d.Runner.TurnChannel(), cfg.Security.AllowedOrigins, d.Logger).ServeWS)
		}

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(cfg.Security.AdminIPs, d.Logger), AdminAuth(cfg.Server.AdminKey))
		adminG.POST("/turns", adminH.Advance)
		adminG.POST("/entities", adminH.Spawn)
		adminG.DELETE("/entities/:id", adminH.Destroy)
		adminG.POST("/pause", adminH.Pause)
		adminG.POST("/resume", adminH.Resume)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	}
	return r
}
