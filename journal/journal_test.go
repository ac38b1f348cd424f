package journal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kasuganosora/roguebt/game/ai"
	"github.com/kasuganosora/roguebt/game/world"
	"github.com/kasuganosora/roguebt/model"
	"github.com/kasuganosora/roguebt/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func report(turn uint64) *world.TurnReport {
	return &world.TurnReport{
		Turn: turn,
		Decisions: []world.Decision{
			{
				Entity:     1,
				Archetype:  "minotaur",
				Status:     ai.StatusRunning,
				Action:     ai.ActionMoveLeft,
				Blackboard: map[string]any{"attack_enemy": ai.EntityID(2), "patrol_pos": ai.Position{X: 3, Y: 4}},
			},
			{Entity: 2, Archetype: "player", Status: ai.StatusFailure, Action: ai.ActionNop},
		},
		Attacks:  1,
		Removed:  []ai.EntityID{5},
		Alive:    7,
		Duration: 1500 * time.Microsecond,
	}
}

func TestJournal_RecordsTurnAndDecisions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	j, err := Start(ctx, db, "default", 42, WriterOptions{}, zap.NewNop())
	require.NoError(t, err)
	require.NotEmpty(t, j.RunID())

	j.Record(report(1))
	j.Record(report(2))
	j.Close(ctx)

	var run model.Run
	require.NoError(t, db.First(&run, "id = ?", j.RunID()).Error)
	assert.Equal(t, "default", run.Scenario)
	assert.Equal(t, uint64(42), run.Seed)

	turns, err := Turns(ctx, db, j.RunID(), 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, uint64(2), turns[0].Turn)
	assert.Equal(t, 1, turns[0].Running)
	assert.Equal(t, 1, turns[0].Failure)
	assert.Equal(t, 0, turns[0].Success)
	assert.Equal(t, 1, turns[0].Removed)
	assert.Equal(t, 7, turns[0].Alive)
	assert.Equal(t, int64(1500), turns[0].DurationUs)

	decisions, err := Decisions(ctx, db, j.RunID(), 1, 0)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, uint64(2), decisions[0].Turn)
	assert.Equal(t, "running", decisions[0].Status)
	assert.Equal(t, "move_left", decisions[0].Action)

	var bb map[string]any
	require.NoError(t, json.Unmarshal(decisions[0].Blackboard, &bb))
	assert.Equal(t, float64(2), bb["attack_enemy"])
	assert.Equal(t, map[string]any{"x": float64(3), "y": float64(4)}, bb["patrol_pos"])
}

func TestDecisions_Limit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	j, err := Start(ctx, db, "arena", 1, WriterOptions{}, nil)
	require.NoError(t, err)
	for turn := uint64(1); turn <= 5; turn++ {
		j.Record(report(turn))
	}
	j.Close(ctx)

	decisions, err := Decisions(ctx, db, j.RunID(), 2, 3)
	require.NoError(t, err)
	require.Len(t, decisions, 3)
	assert.Equal(t, []uint64{5, 4, 3}, []uint64{decisions[0].Turn, decisions[1].Turn, decisions[2].Turn})

	none, err := Decisions(ctx, db, "other-run", 2, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
