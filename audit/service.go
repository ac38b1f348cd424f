// Package audit records administrative API calls.
package audit

import (
	"context"
	"encoding/json"

	"github.com/kasuganosora/roguebt/journal"
	"github.com/kasuganosora/roguebt/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditEntry holds one audit event to be logged.
type AuditEntry struct {
	TraceID    string
	RunID      string
	Action     string
	Request    any
	Response   any
	Error      string
	IP         string
	DurationMs int
}

// Service logs audit entries asynchronously in batches.
type Service struct {
	w      *journal.Writer[model.AuditLog]
	logger *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		w:      journal.NewWriter[model.AuditLog](db, "audit", journal.WriterOptions{}, logger),
		logger: logger,
	}
}

// Log enqueues an audit entry for async DB write.
func (svc *Service) Log(entry AuditEntry) {
	record := &model.AuditLog{
		TraceID:    entry.TraceID,
		RunID:      entry.RunID,
		Action:     entry.Action,
		Request:    toJSON(entry.Request),
		Response:   toJSON(entry.Response),
		Error:      entry.Error,
		IP:         entry.IP,
		DurationMs: entry.DurationMs,
	}
	if !svc.w.Write(record) {
		svc.logger.Warn("audit entry dropped", zap.String("action", entry.Action))
	}
}

// Stop flushes remaining entries and shuts down the worker.
func (svc *Service) Stop(ctx context.Context) {
	svc.w.Stop(ctx)
}

func toJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"marshal_error": err.Error()})
	}
	return datatypes.JSON(b)
}
