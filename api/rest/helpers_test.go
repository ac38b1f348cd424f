package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/roguebt/api/rest"
	"github.com/kasuganosora/roguebt/audit"
	"github.com/kasuganosora/roguebt/cache"
	"github.com/kasuganosora/roguebt/config"
	"github.com/kasuganosora/roguebt/game/catalog"
	"github.com/kasuganosora/roguebt/game/sim"
	"github.com/kasuganosora/roguebt/game/world"
	"github.com/kasuganosora/roguebt/journal"
	"github.com/kasuganosora/roguebt/observe"
	"github.com/kasuganosora/roguebt/scheduler"
	"github.com/kasuganosora/roguebt/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAdminKey = "secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type env struct {
	router *gin.Engine
	runner *sim.Runner
	sched  *scheduler.Scheduler
	db     *gorm.DB
}

type envOptions struct {
	scenario string
	adminKey string
	journal  bool
	maxTurns uint64
	metrics  bool
	mutate   func(*config.Config)
}

func newEnv(t *testing.T, o envOptions) *env {
	t.Helper()
	cfg := config.Default()
	cfg.Server.AdminKey = o.adminKey
	if o.mutate != nil {
		o.mutate(cfg)
	}

	cat, err := catalog.Default()
	require.NoError(t, err)
	w := world.New(cat, world.Options{Seed: 11}, zap.NewNop())
	if o.scenario == "" {
		o.scenario = "default"
	}
	require.NoError(t, w.LoadScenario(o.scenario))

	e := &env{sched: scheduler.New(zap.NewNop())}
	t.Cleanup(e.sched.Stop)

	kv, err := cache.NewCache(config.CacheConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	deps := sim.Deps{Cache: kv}
	var auditSvc *audit.Service
	if o.journal {
		e.db = testutil.SetupTestDB(t)
		j, err := journal.Start(t.Context(), e.db, o.scenario, w.Seed(), journal.WriterOptions{}, zap.NewNop())
		require.NoError(t, err)
		deps.Journal = j
		auditSvc = audit.New(e.db, zap.NewNop())
		t.Cleanup(func() { auditSvc.Stop(context.Background()) })
	}
	var metricsHandler http.Handler
	if o.metrics {
		p, err := observe.NewProvider("roguebt-test")
		require.NoError(t, err)
		t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
		deps.Metrics, err = observe.NewMetrics(p.MeterProvider())
		require.NoError(t, err)
		metricsHandler = p.Handler()
	}
	e.runner = sim.New(w, sim.Options{MaxTurns: o.maxTurns, TurnInterval: time.Hour}, deps, zap.NewNop())
	t.Cleanup(func() { e.runner.Close(context.Background()) })

	e.router = rest.NewRouter(rest.Deps{
		Runner:         e.runner,
		Scheduler:      e.sched,
		DB:             e.db,
		Audit:          auditSvc,
		PubSub:         testutil.SetupTestPubSub(t),
		Metrics:        deps.Metrics,
		MetricsHandler: metricsHandler,
		Config:         cfg,
		Logger:         zap.NewNop(),
	})
	return e
}

func (e *env) do(method, path, key, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if key != "" {
		req.Header.Set("X-Admin-Key", key)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
