package world

import (
	"context"
	"strings"
	"testing"

	"github.com/kasuganosora/roguebt/game/ai"
	"github.com/kasuganosora/roguebt/game/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testCatalog = `
archetypes:
  brawler:
    team: 0
    hitpoints: 100
    damage: 30
    tree:
      type: sequence
      children:
        - {type: find_enemy, distance: 10, var: foe}
        - {type: move_to_entity, var: foe}
  grunt:
    team: 1
    hitpoints: 20
    damage: 20
    tree:
      type: sequence
      children:
        - {type: find_enemy, distance: 10, var: foe}
        - {type: move_to_entity, var: foe}
  picker:
    team: 0
    hitpoints: 50
    damage: 5
    tags: [can_pickup]
    tree:
      type: sequence
      children:
        - {type: find_closest, tag: heal, distance: 10, var: loot}
        - {type: move_to_entity, var: loot}
  medic:
    team: 0
    hitpoints: 100
    tree: {type: patch_up, threshold: 100}
  dummy:
    team: 0
    hitpoints: 100
    tree: {type: patch_up, threshold: 1}
  hoard:
    team: 1
    hitpoints: 100
    damage: 20
    tree:
      type: selector
      children:
        - {type: hoard_listener, var: hoard_provoker}
        - {type: move_to_entity, var: hoard_provoker}
        - type: sequence
          children:
            - {type: find_enemy, distance: 2, var: hoard_provoker}
            - {type: alert_hoard, distance: 100, var: hoard_provoker}
  walker:
    team: 0
    hitpoints: 10
    tree:
      type: sequence
      children:
        - {type: find_waypoint, var: stop}
        - {type: move_to_entity, var: stop}
  heal:
    tags: [heal]
    heal: 25
scenarios:
  corridor:
    width: 3
    height: 3
    walls: [{x: 1, y: 0}, {x: 1, y: 1}]
    routes:
      - name: r
        points: [{x: 2, y: 0}]
    spawns:
      - {archetype: walker, x: 0, y: 0, route: r}
`

func newTestWorld(t *testing.T) *World {
	t.Helper()
	cat, err := catalog.Parse(strings.NewReader(testCatalog))
	require.NoError(t, err)
	return New(cat, Options{Seed: 1}, zap.NewNop())
}

func spawnAt(t *testing.T, w *World, archetype string, x, y int) ai.EntityID {
	t.Helper()
	id, err := w.Spawn(archetype, ai.Position{X: x, Y: y})
	require.NoError(t, err)
	return id
}

func turn(t *testing.T, w *World) *TurnReport {
	t.Helper()
	r, err := w.ProcessTurn(context.Background())
	require.NoError(t, err)
	return r
}

func TestSpawnAndDestroy(t *testing.T) {
	w := newTestWorld(t)
	a := spawnAt(t, w, "brawler", 0, 0)
	b := spawnAt(t, w, "heal", 3, 3)
	assert.Equal(t, 2, w.Len())

	views := w.Entities()
	require.Len(t, views, 2)
	assert.Equal(t, a, views[0].ID)
	assert.Equal(t, b, views[1].ID)
	require.NotNil(t, views[0].Team)
	assert.Nil(t, views[1].Team)

	require.NoError(t, w.Destroy(a))
	assert.ErrorIs(t, w.Destroy(a), ErrNotFound)
	_, ok := w.Entity(a)
	assert.False(t, ok)

	_, err := w.Spawn("dragon", ai.Position{})
	assert.ErrorIs(t, err, catalog.ErrUnknownArchetype)
}

func TestSpawn_BlockedCell(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.LoadScenario("corridor"))
	_, err := w.Spawn("brawler", ai.Position{X: 1, Y: 0})
	assert.ErrorIs(t, err, ErrBlocked)
	_, err = w.Spawn("brawler", ai.Position{X: 5, Y: 0})
	assert.ErrorIs(t, err, ErrBlocked, "outside the grid")
}

func TestProcessTurn_BlockedMoveAttacksEnemy(t *testing.T) {
	w := newTestWorld(t)
	a := spawnAt(t, w, "brawler", 0, 0)
	b := spawnAt(t, w, "grunt", 1, 0)

	r := turn(t, w)
	assert.Equal(t, uint64(1), r.Turn)
	// Both step into each other: both moves are blocked and both strike.
	assert.Equal(t, 2, r.Attacks)
	assert.Equal(t, []ai.EntityID{b}, r.Removed)
	assert.Equal(t, 1, r.Alive)

	va, ok := w.Entity(a)
	require.True(t, ok)
	assert.Equal(t, ai.Position{X: 0, Y: 0}, va.Pos)
	assert.Equal(t, 80.0, va.HP)
	assert.Equal(t, ai.ActionNop, va.Action)

	require.Len(t, r.Decisions, 2)
	assert.Equal(t, ai.StatusRunning, r.Decisions[0].Status)
	assert.Equal(t, ai.ActionMoveRight, r.Decisions[0].Action)
	assert.Equal(t, ai.ActionMoveLeft, r.Decisions[1].Action)
	assert.Equal(t, map[ai.Status]int{ai.StatusRunning: 2}, r.StatusCounts())

	// The target is gone: the stale id degrades to failure.
	r = turn(t, w)
	require.Len(t, r.Decisions, 1)
	assert.Equal(t, ai.StatusFailure, r.Decisions[0].Status)
}

func TestProcessTurn_AlliesBlockWithoutDamage(t *testing.T) {
	w := newTestWorld(t)
	spawnAt(t, w, "grunt", 0, 0)
	ally := spawnAt(t, w, "grunt", 1, 0)
	enemy := spawnAt(t, w, "brawler", 2, 0)
	w.mu.Lock()
	w.entities[enemy].Tree = nil // keep the brawler still
	w.mu.Unlock()

	r := turn(t, w)
	// The first grunt bumps into its ally, the ally strikes the brawler.
	assert.Equal(t, 1, r.Attacks)
	v, _ := w.Entity(ally)
	assert.Equal(t, 20.0, v.HP)
	ve, _ := w.Entity(enemy)
	assert.Equal(t, 80.0, ve.HP)
}

func TestProcessTurn_Pickup(t *testing.T) {
	w := newTestWorld(t)
	p := spawnAt(t, w, "picker", 0, 0)
	item := spawnAt(t, w, "heal", 1, 0)

	r := turn(t, w)
	assert.Equal(t, []ai.EntityID{item}, r.PickedUp)
	v, _ := w.Entity(p)
	assert.Equal(t, ai.Position{X: 1, Y: 0}, v.Pos)
	assert.Equal(t, 75.0, v.HP)
	_, ok := w.Entity(item)
	assert.False(t, ok)
}

func TestProcessTurn_ItemsIgnoredWithoutPickupTag(t *testing.T) {
	w := newTestWorld(t)
	spawnAt(t, w, "dummy", 0, 0)
	item := spawnAt(t, w, "heal", 0, 0)
	r := turn(t, w)
	assert.Empty(t, r.PickedUp)
	_, ok := w.Entity(item)
	assert.True(t, ok)
}

func TestProcessTurn_HealSelf(t *testing.T) {
	w := newTestWorld(t)
	m := spawnAt(t, w, "medic", 0, 0)
	w.mu.Lock()
	w.entities[m].HP = 50
	w.mu.Unlock()

	turn(t, w)
	v, _ := w.Entity(m)
	assert.Equal(t, 60.0, v.HP)

	w.mu.Lock()
	w.entities[m].HP = 95
	w.mu.Unlock()
	turn(t, w)
	v, _ = w.Entity(m)
	assert.Equal(t, 100.0, v.HP, "self heal is capped at max hitpoints")
}

func TestProcessTurn_HoardAlert(t *testing.T) {
	w := newTestWorld(t)
	provoker := spawnAt(t, w, "dummy", 0, 0)
	first := spawnAt(t, w, "hoard", 1, 0)
	second := spawnAt(t, w, "hoard", 5, 0)

	r := turn(t, w)
	require.Len(t, r.Decisions, 3)
	assert.Equal(t, ai.StatusSuccess, r.Decisions[1].Status, "first hoard member alerts")
	assert.Equal(t, ai.StatusRunning, r.Decisions[2].Status, "second member moves on the provoker")

	v, ok := w.Entity(second)
	require.True(t, ok)
	assert.Equal(t, true, v.Blackboard[ai.AlertedVar("hoard_provoker")])
	assert.Equal(t, provoker, v.Blackboard["hoard_provoker"])
	assert.Equal(t, ai.Position{X: 4, Y: 0}, v.Pos)

	v, _ = w.Entity(first)
	assert.Equal(t, false, v.Blackboard[ai.AlertedVar("hoard_provoker")], "alerter does not alert itself")
}

func TestLoadScenario_RouteAndPathfinding(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.LoadScenario("corridor"))

	views := w.Entities()
	require.Len(t, views, 2)
	wp, walker := views[0], views[1]
	assert.Equal(t, "waypoint", wp.Archetype)
	assert.Equal(t, wp.ID, walker.Waypoint)

	// The wall forces a detour through the bottom row.
	want := []ai.Position{{X: 0, Y: 1}, {X: 0, Y: 2}, {X: 1, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 1}, {X: 2, Y: 0}}
	for i, pos := range want {
		turn(t, w)
		v, _ := w.Entity(walker.ID)
		require.Equal(t, pos, v.Pos, "step %d", i)
	}
	r := turn(t, w)
	assert.Equal(t, ai.StatusSuccess, r.Decisions[0].Status)

	assert.ErrorIs(t, w.LoadScenario("missing"), catalog.ErrUnknownScenario)
}

func TestLoadScenario_Defaults(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	for _, name := range []string{"default", "arena"} {
		w := New(cat, Options{Seed: 3}, zap.NewNop())
		require.NoError(t, w.LoadScenario(name), name)
		for i := 0; i < 30; i++ {
			_, err := w.ProcessTurn(context.Background())
			require.NoError(t, err, name)
		}
		assert.Equal(t, uint64(30), w.Turn())
		last, ok := w.LastReport()
		require.True(t, ok)
		assert.Equal(t, uint64(30), last.Turn)
	}
}

func TestProcessTurn_DeterministicForSeed(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	run := func() []EntityView {
		w := New(cat, Options{Seed: 11}, zap.NewNop())
		require.NoError(t, w.LoadScenario("default"))
		for i := 0; i < 25; i++ {
			_, err := w.ProcessTurn(context.Background())
			require.NoError(t, err)
		}
		return w.Entities()
	}
	assert.Equal(t, run(), run())
}

func TestProcessTurn_CanceledContext(t *testing.T) {
	w := newTestWorld(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.ProcessTurn(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), w.Turn())
}
