package world

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kasuganosora/roguebt/game/ai"
	"github.com/kasuganosora/roguebt/game/catalog"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for ids that do not refer to a live entity.
	ErrNotFound = errors.New("world: entity not found")
	// ErrBlocked is returned when spawning onto a wall or off the grid.
	ErrBlocked = errors.New("world: cell is blocked")
)

// Options tunes a World.
type Options struct {
	// Width and Height bound the grid; zero leaves that axis unbounded.
	// A scenario with its own size overrides them.
	Width, Height int
	// SelfHeal is the hitpoints restored by ActionHealSelf.
	SelfHeal float64
	// Seed seeds the random source used by trees; zero picks one from the clock.
	Seed uint64
}

// World owns every entity of one simulation and resolves turns. All exported
// methods are safe for concurrent use; trees see the world through an
// unlocked accessor while ProcessTurn holds the lock.
type World struct {
	mu       sync.RWMutex
	catalog  *catalog.Catalog
	reg      *ai.Registry
	opts     Options
	rand     ai.Rand
	logger   *zap.Logger
	entities map[ai.EntityID]*Entity
	order    []ai.EntityID // ascending
	nextID   ai.EntityID
	walls    map[ai.Position]bool
	turn     uint64
	last     *TurnReport
}

// New creates an empty world whose trees are built from cat. Every blackboard
// variable the catalog uses is registered up front and the registry frozen.
func New(cat *catalog.Catalog, opts Options, logger *zap.Logger) *World {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SelfHeal <= 0 {
		opts.SelfHeal = 10
	}
	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano())
	}
	reg := ai.NewRegistry()
	cat.RegisterVars(reg)
	reg.Freeze()
	return &World{
		catalog:  cat,
		reg:      reg,
		opts:     opts,
		rand:     ai.NewRand(opts.Seed),
		logger:   logger,
		entities: make(map[ai.EntityID]*Entity),
		nextID:   1,
		walls:    make(map[ai.Position]bool),
	}
}

// Seed returns the seed the world's random source started from.
func (w *World) Seed() uint64 { return w.opts.Seed }

// Registry returns the blackboard name table shared by all agents.
func (w *World) Registry() *ai.Registry { return w.reg }

// Turn returns the number of turns processed so far.
func (w *World) Turn() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.turn
}

// LastReport returns the report of the latest turn, if any.
func (w *World) LastReport() (*TurnReport, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last, w.last != nil
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// Entities returns every live entity in ascending id order, without
// blackboards.
func (w *World) Entities() []EntityView {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]EntityView, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.entities[id].view(false))
	}
	return out
}

// Entity returns one entity including its blackboard.
func (w *World) Entity(id ai.EntityID) (EntityView, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	if !ok {
		return EntityView{}, false
	}
	return e.view(true), true
}

// Spawn places a new entity of the named archetype at pos.
func (w *World) Spawn(archetype string, pos ai.Position) (ai.EntityID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawn(archetype, pos)
}

// Destroy removes an entity. Trees holding its id see it as dead from then on.
func (w *World) Destroy(id ai.EntityID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.destroy(id) {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

func (w *World) add(e *Entity) ai.EntityID {
	e.ID = w.nextID
	w.nextID++
	w.entities[e.ID] = e
	w.order = append(w.order, e.ID)
	return e.ID
}

func (w *World) spawn(archetype string, pos ai.Position) (ai.EntityID, error) {
	a, err := w.catalog.Archetype(archetype)
	if err != nil {
		return ai.None, err
	}
	if !w.passable(pos) {
		return ai.None, fmt.Errorf("%w: cannot spawn %q at %v", ErrBlocked, archetype, pos)
	}
	e := &Entity{
		Archetype: a.Name,
		Pos:       pos,
		Heal:      a.Heal,
		Powerup:   a.Powerup,
	}
	for _, t := range a.Tags {
		e.Tags = append(e.Tags, ai.Tag(t))
	}
	if a.Combatant() {
		e.Combatant = true
		e.Team = *a.Team
		e.HP = a.Hitpoints
		e.MaxHP = a.Hitpoints
		e.Damage = a.Damage
	}
	id := w.add(e)
	if a.Tree != nil {
		e.BB = ai.NewBlackboard(w.reg)
		tree, err := a.Build(w.accessor(), id, e.BB)
		if err != nil {
			w.destroy(id)
			return ai.None, err
		}
		e.Tree = tree
	}
	w.logger.Debug("entity spawned",
		zap.Uint64("entity", uint64(id)), zap.String("archetype", a.Name),
		zap.Int("x", pos.X), zap.Int("y", pos.Y))
	return id, nil
}

func (w *World) destroy(id ai.EntityID) bool {
	if _, ok := w.entities[id]; !ok {
		return false
	}
	delete(w.entities, id)
	if i, found := slices.BinarySearch(w.order, id); found {
		w.order = slices.Delete(w.order, i, i+1)
	}
	return true
}

func (w *World) inBounds(p ai.Position) bool {
	if w.opts.Width > 0 && (p.X < 0 || p.X >= w.opts.Width) {
		return false
	}
	if w.opts.Height > 0 && (p.Y < 0 || p.Y >= w.opts.Height) {
		return false
	}
	return true
}

func (w *World) passable(p ai.Position) bool {
	return w.inBounds(p) && !w.walls[p]
}

func (w *World) alive(id ai.EntityID) (*Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// accessor returns the ai.World view used by trees. It does not lock.
func (w *World) accessor() ai.World { return (*view)(w) }

// view implements ai.World on top of the world's state. Callers must hold
// the world lock.
type view World

func (v *view) w() *World { return (*World)(v) }

func (v *view) Alive(id ai.EntityID) bool {
	_, ok := v.w().alive(id)
	return ok
}

func (v *view) Position(id ai.EntityID) (ai.Position, bool) {
	e, ok := v.w().alive(id)
	if !ok {
		return ai.Position{}, false
	}
	return e.Pos, true
}

func (v *view) Hitpoints(id ai.EntityID) (float64, bool) {
	e, ok := v.w().alive(id)
	if !ok || !e.Combatant {
		return 0, false
	}
	return e.HP, true
}

func (v *view) Team(id ai.EntityID) (int, bool) {
	e, ok := v.w().alive(id)
	if !ok || !e.Combatant {
		return 0, false
	}
	return e.Team, true
}

func (v *view) HasTag(id ai.EntityID, tag ai.Tag) bool {
	e, ok := v.w().alive(id)
	return ok && e.HasTag(tag)
}

func (v *view) SetAction(id ai.EntityID, a ai.Action) bool {
	e, ok := v.w().alive(id)
	if !ok {
		return false
	}
	e.Action = a
	return true
}

func (v *view) StepToward(id ai.EntityID, target ai.Position) ai.Action {
	w := v.w()
	e, ok := w.alive(id)
	if !ok || e.Pos == target {
		return ai.ActionNop
	}
	if path := AStar(w.passable, e.Pos, target); len(path) > 0 {
		return ai.MoveToward(e.Pos, path[0])
	}
	return ai.MoveToward(e.Pos, target)
}

func (v *view) Nearby(from ai.Position, radius float64, match func(ai.EntityID) bool) []ai.EntityID {
	w := v.w()
	var out []ai.EntityID
	for _, id := range w.order {
		if from.DistanceTo(w.entities[id].Pos) > radius {
			continue
		}
		if match == nil || match(id) {
			out = append(out, id)
		}
	}
	return out
}

func (v *view) Waypoint(id ai.EntityID) (ai.EntityID, bool) {
	e, ok := v.w().alive(id)
	if !ok || e.Waypoint == ai.None {
		return ai.None, false
	}
	return e.Waypoint, true
}

func (v *view) SetWaypoint(id, waypoint ai.EntityID) {
	if e, ok := v.w().alive(id); ok {
		e.Waypoint = waypoint
	}
}

func (v *view) NextWaypoint(waypoint ai.EntityID) (ai.EntityID, bool) {
	e, ok := v.w().alive(waypoint)
	if !ok || e.Next == ai.None {
		return ai.None, false
	}
	return e.Next, true
}

func (v *view) Agent(id ai.EntityID) (*ai.BehaviorTree, *ai.Blackboard, bool) {
	e, ok := v.w().alive(id)
	if !ok || e.Tree == nil {
		return nil, nil, false
	}
	return e.Tree, e.BB, true
}
