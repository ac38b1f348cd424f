// Package journal records every processed turn, and every decision taken in
// it, to the database.
package journal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/kasuganosora/roguebt/game/ai"
	"github.com/kasuganosora/roguebt/game/world"
	"github.com/kasuganosora/roguebt/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Journal writes the turns of one run.
type Journal struct {
	db        *gorm.DB
	run       model.Run
	turns     *Writer[model.TurnLog]
	decisions *Writer[model.DecisionLog]
	logger    *zap.Logger
}

// Start inserts a new Run row and starts the background writers.
func Start(ctx context.Context, db *gorm.DB, scenario string, seed uint64, opts WriterOptions, logger *zap.Logger) (*Journal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	run := model.Run{ID: uuid.NewString(), Scenario: scenario, Seed: seed}
	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, fmt.Errorf("journal: create run: %w", err)
	}
	logger.Info("journal started", zap.String("run_id", run.ID), zap.String("scenario", scenario))
	return &Journal{
		db:        db,
		run:       run,
		turns:     NewWriter[model.TurnLog](db, "turns", opts, logger),
		decisions: NewWriter[model.DecisionLog](db, "decisions", opts, logger),
		logger:    logger,
	}, nil
}

// RunID returns the id of the run being recorded.
func (j *Journal) RunID() string { return j.run.ID }

// Record enqueues a turn summary and one row per decision.
func (j *Journal) Record(r *world.TurnReport) {
	counts := r.StatusCounts()
	j.turns.Write(&model.TurnLog{
		RunID:      j.run.ID,
		Turn:       r.Turn,
		Success:    counts[ai.StatusSuccess],
		Failure:    counts[ai.StatusFailure],
		Running:    counts[ai.StatusRunning],
		Attacks:    r.Attacks,
		Removed:    len(r.Removed),
		PickedUp:   len(r.PickedUp),
		Alive:      r.Alive,
		DurationUs: r.Duration.Microseconds(),
	})
	for _, d := range r.Decisions {
		bb, err := json.Marshal(d.Blackboard)
		if err != nil {
			j.logger.Warn("blackboard not serializable",
				zap.Uint64("entity", uint64(d.Entity)), zap.Error(err))
			bb = []byte("{}")
		}
		j.decisions.Write(&model.DecisionLog{
			RunID:      j.run.ID,
			Turn:       r.Turn,
			EntityID:   uint64(d.Entity),
			Archetype:  d.Archetype,
			Status:     d.Status.String(),
			Action:     d.Action.String(),
			Blackboard: datatypes.JSON(bb),
		})
	}
}

// Close flushes pending rows.
func (j *Journal) Close(ctx context.Context) {
	j.turns.Stop(ctx)
	j.decisions.Stop(ctx)
}

// Decisions returns the most recent decisions of one entity in a run, newest
// first. limit <= 0 means 50.
func Decisions(ctx context.Context, db *gorm.DB, runID string, entity ai.EntityID, limit int) ([]model.DecisionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []model.DecisionLog
	err := db.WithContext(ctx).
		Where("run_id = ? AND entity_id = ?", runID, uint64(entity)).
		Order("turn DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("journal: query decisions: %w", err)
	}
	return out, nil
}

// Turns returns the most recent turn summaries of a run, newest first.
// limit <= 0 means 50.
func Turns(ctx context.Context, db *gorm.DB, runID string, limit int) ([]model.TurnLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []model.TurnLog
	err := db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("turn DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("journal: query turns: %w", err)
	}
	return out, nil
}
