package model

import (
	"time"

	"gorm.io/datatypes"
)

// Run is one simulation session.
type Run struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Scenario  string    `gorm:"size:64" json:"scenario"`
	Seed      uint64    `json:"seed"`
	StartedAt time.Time `gorm:"autoCreateTime:milli" json:"started_at"`
}

// TurnLog summarises one processed turn.
type TurnLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID      string    `gorm:"uniqueIndex:idx_turn_run_turn,priority:1;size:36;not null" json:"run_id"`
	Turn       uint64    `gorm:"uniqueIndex:idx_turn_run_turn,priority:2" json:"turn"`
	Success    int       `json:"success"`
	Failure    int       `json:"failure"`
	Running    int       `json:"running"`
	Attacks    int       `json:"attacks"`
	Removed    int       `json:"removed"`
	PickedUp   int       `json:"picked_up"`
	Alive      int       `json:"alive"`
	DurationUs int64     `json:"duration_us"`
	CreatedAt  time.Time `gorm:"autoCreateTime:milli" json:"created_at"`
}

// DecisionLog is what one agent chose on one turn, with the blackboard it
// chose from.
type DecisionLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID      string         `gorm:"index:idx_decision_run_entity,priority:1;index:idx_decision_run_turn,priority:1;size:36;not null" json:"run_id"`
	Turn       uint64         `gorm:"index:idx_decision_run_turn,priority:2" json:"turn"`
	EntityID   uint64         `gorm:"index:idx_decision_run_entity,priority:2" json:"entity_id"`
	Archetype  string         `gorm:"size:64" json:"archetype"`
	Status     string         `gorm:"size:16" json:"status"`
	Action     string         `gorm:"size:16" json:"action"`
	Blackboard datatypes.JSON `json:"blackboard"`
	CreatedAt  time.Time      `gorm:"autoCreateTime:milli" json:"created_at"`
}
