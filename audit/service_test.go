package audit

import (
	"context"
	"testing"

	"github.com/kasuganosora/roguebt/model"
	"github.com/kasuganosora/roguebt/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_StartsWorker(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	require.NotNil(t, svc)
	svc.Stop(context.Background())
}

func TestLog_EnqueuedAndFlushed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	svc.Log(AuditEntry{
		TraceID:    "trace-123",
		RunID:      "run-1",
		Action:     "advance_turn",
		Request:    map[string]int{"turns": 3},
		Response:   map[string]uint64{"turn": 3},
		IP:         "127.0.0.1",
		DurationMs: 42,
	})

	// Stop flushes remaining entries
	svc.Stop(context.Background())

	var logs []model.AuditLog
	db.Find(&logs)
	require.Len(t, logs, 1)
	assert.Equal(t, "trace-123", logs[0].TraceID)
	assert.Equal(t, "run-1", logs[0].RunID)
	assert.Equal(t, "advance_turn", logs[0].Action)
	assert.JSONEq(t, `{"turns":3}`, string(logs[0].Request))
	assert.JSONEq(t, `{"turn":3}`, string(logs[0].Response))
	assert.Equal(t, "127.0.0.1", logs[0].IP)
	assert.Equal(t, 42, logs[0].DurationMs)
}

func TestLog_MultipleLogs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	for i := 0; i < 10; i++ {
		svc.Log(AuditEntry{Action: "spawn_entity", IP: "10.0.0.1"})
	}
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.Equal(t, int64(10), count)
}

func TestLog_NilPayloads(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	svc.Log(AuditEntry{Action: "advance_turn", Error: "world stopped"})
	svc.Stop(context.Background())

	var logs []model.AuditLog
	db.Find(&logs)
	require.Len(t, logs, 1)
	assert.JSONEq(t, "null", string(logs[0].Request))
	assert.Equal(t, "world stopped", logs[0].Error)
}

func TestLog_AfterStopDoesNotPanic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	svc.Stop(context.Background())
	svc.Stop(context.Background())
	svc.Log(AuditEntry{Action: "late"})
}

func TestLog_Flood(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	for i := 0; i < 1030; i++ {
		svc.Log(AuditEntry{Action: "flood"})
	}
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.LessOrEqual(t, count, int64(1030))
	assert.Positive(t, count)
}
