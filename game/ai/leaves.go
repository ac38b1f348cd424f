package ai

import (
	"math"

	"go.uber.org/zap"
)

// ---- Conditions ----

// IsLowHP succeeds while the entity's hitpoints are below Threshold.
type IsLowHP struct {
	NoReact
	Threshold float64
}

func (n *IsLowHP) Tick(ctx *AIContext, e EntityID, _ *Blackboard) Status {
	hp, ok := ctx.World.Hitpoints(e)
	if !ok || hp >= n.Threshold {
		return StatusFailure
	}
	return StatusSuccess
}

// ---- Target search ----

// closest returns the candidate nearest to from. Ties keep the lower id, which
// Nearby already orders first.
func closest(w World, from Position, candidates []EntityID) (EntityID, float64) {
	best, bestDist := None, math.MaxFloat64
	for _, id := range candidates {
		pos, ok := w.Position(id)
		if !ok {
			continue
		}
		if d := from.DistanceTo(pos); d < bestDist {
			best, bestDist = id, d
		}
	}
	return best, bestDist
}

// FindEnemy stores the closest entity of another team within Distance.
type FindEnemy struct {
	NoReact
	Distance float64
	Target   Key[EntityID]
}

// NewFindEnemy registers the target variable on bb.
func NewFindEnemy(bb *Blackboard, distance float64, target string) *FindEnemy {
	return &FindEnemy{Distance: distance, Target: RegisterVar[EntityID](bb, target)}
}

func (n *FindEnemy) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	w := ctx.World
	pos, ok := w.Position(e)
	if !ok {
		return StatusFailure
	}
	team, ok := w.Team(e)
	if !ok {
		return StatusFailure
	}
	enemies := w.Nearby(pos, n.Distance, func(id EntityID) bool {
		t, ok := w.Team(id)
		return ok && t != team
	})
	enemy, _ := closest(w, pos, enemies)
	if enemy == None {
		return StatusFailure
	}
	Set(bb, n.Target, enemy)
	return StatusSuccess
}

// FindClosestOf stores the closest entity carrying Tag within Distance.
type FindClosestOf struct {
	NoReact
	Tag      Tag
	Distance float64
	Target   Key[EntityID]
}

// NewFindClosestOf registers the target variable on bb.
func NewFindClosestOf(bb *Blackboard, tag Tag, distance float64, target string) *FindClosestOf {
	return &FindClosestOf{Tag: tag, Distance: distance, Target: RegisterVar[EntityID](bb, target)}
}

func (n *FindClosestOf) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	w := ctx.World
	pos, ok := w.Position(e)
	if !ok {
		return StatusFailure
	}
	found, _ := closest(w, pos, w.Nearby(pos, n.Distance, func(id EntityID) bool {
		return id != e && w.HasTag(id, n.Tag)
	}))
	if found == None {
		return StatusFailure
	}
	Set(bb, n.Target, found)
	return StatusSuccess
}

// FindWaypoint stores the entity's current waypoint, advancing along the
// waypoint chain once the entity stands on it.
type FindWaypoint struct {
	NoReact
	Target Key[EntityID]
}

// NewFindWaypoint registers the target variable on bb.
func NewFindWaypoint(bb *Blackboard, target string) *FindWaypoint {
	return &FindWaypoint{Target: RegisterVar[EntityID](bb, target)}
}

func (n *FindWaypoint) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	w := ctx.World
	pos, ok := w.Position(e)
	if !ok {
		return StatusFailure
	}
	wp, ok := w.Waypoint(e)
	if !ok {
		return StatusFailure
	}
	if wpos, ok := w.Position(wp); ok && wpos == pos {
		if next, ok := w.NextWaypoint(wp); ok {
			wp = next
			w.SetWaypoint(e, wp)
		}
	}
	if !w.Alive(wp) {
		return StatusFailure
	}
	Set(bb, n.Target, wp)
	return StatusSuccess
}

// ---- Movement ----

// MoveToEntity walks toward the entity stored in Target. It is running while
// moving and succeeds once both stand on the same cell. The target position is
// re-read every tick.
type MoveToEntity struct {
	NoReact
	Target Key[EntityID]
}

// NewMoveToEntity registers the target variable on bb.
func NewMoveToEntity(bb *Blackboard, target string) *MoveToEntity {
	return &MoveToEntity{Target: RegisterVar[EntityID](bb, target)}
}

func (n *MoveToEntity) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	w := ctx.World
	target := Get(bb, n.Target)
	if !w.Alive(target) {
		return StatusFailure
	}
	pos, ok := w.Position(e)
	if !ok {
		return StatusFailure
	}
	tpos, ok := w.Position(target)
	if !ok {
		return StatusFailure
	}
	if pos == tpos {
		return StatusSuccess
	}
	w.SetAction(e, w.StepToward(e, tpos))
	return StatusRunning
}

// Flee steps directly away from the entity stored in Target.
type Flee struct {
	NoReact
	Target Key[EntityID]
}

// NewFlee registers the target variable on bb.
func NewFlee(bb *Blackboard, target string) *Flee {
	return &Flee{Target: RegisterVar[EntityID](bb, target)}
}

func (n *Flee) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	w := ctx.World
	target := Get(bb, n.Target)
	if !w.Alive(target) {
		return StatusFailure
	}
	pos, ok := w.Position(e)
	if !ok {
		return StatusFailure
	}
	tpos, ok := w.Position(target)
	if !ok {
		return StatusFailure
	}
	w.SetAction(e, MoveToward(pos, tpos).Inverse())
	return StatusRunning
}

// Patrol wanders around the position stored in Home, walking back when the
// entity strays further than Distance.
type Patrol struct {
	NoReact
	Distance float64
	Home     Key[Position]
}

// NewPatrol registers the home variable on bb and anchors it at e's current
// position when w knows it.
func NewPatrol(w World, e EntityID, bb *Blackboard, distance float64, home string) *Patrol {
	n := &Patrol{Distance: distance, Home: RegisterVar[Position](bb, home)}
	if w == nil {
		return n
	}
	if pos, ok := w.Position(e); ok {
		Set(bb, n.Home, pos)
	}
	return n
}

func (n *Patrol) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	w := ctx.World
	pos, ok := w.Position(e)
	if !ok {
		return StatusFailure
	}
	home := Get(bb, n.Home)
	if pos.DistanceTo(home) > n.Distance {
		w.SetAction(e, w.StepToward(e, home))
	} else {
		w.SetAction(e, RandomMove(ctx.rand()))
	}
	return StatusRunning
}

// RandomWalk moves in a random direction every tick.
type RandomWalk struct {
	NoReact
}

func (n *RandomWalk) Tick(ctx *AIContext, e EntityID, _ *Blackboard) Status {
	if !ctx.World.SetAction(e, RandomMove(ctx.rand())) {
		return StatusFailure
	}
	return StatusRunning
}

// PatchUp heals the entity until its hitpoints reach Threshold.
type PatchUp struct {
	NoReact
	Threshold float64
}

func (n *PatchUp) Tick(ctx *AIContext, e EntityID, _ *Blackboard) Status {
	hp, ok := ctx.World.Hitpoints(e)
	if !ok {
		return StatusFailure
	}
	if hp >= n.Threshold {
		return StatusSuccess
	}
	ctx.World.SetAction(e, ActionHealSelf)
	return StatusRunning
}

// ---- Hoard signalling ----

// HoardListener never succeeds on tick. On EventHoardAlert it stores the
// provoking entity in Target and raises the Alerted flag.
type HoardListener struct {
	Target  Key[EntityID]
	Alerted Key[bool]
}

// AlertedVar returns the name of the flag variable paired with a target
// variable.
func AlertedVar(target string) string { return target + ":alerted" }

// NewHoardListener registers the target variable and its alerted flag on bb.
func NewHoardListener(bb *Blackboard, target string) *HoardListener {
	n := &HoardListener{
		Target:  RegisterVar[EntityID](bb, target),
		Alerted: RegisterVar[bool](bb, AlertedVar(target)),
	}
	Set(bb, n.Alerted, false)
	return n
}

func (n *HoardListener) Tick(*AIContext, EntityID, *Blackboard) Status {
	return StatusFailure
}

func (n *HoardListener) React(ctx *AIContext, e EntityID, bb *Blackboard, ev Event) {
	if ev.Kind != EventHoardAlert {
		return
	}
	provoker, ok := ev.Data.(EntityID)
	if !ok {
		return
	}
	ctx.log().Debug("hoard target set",
		zap.Uint64("entity", uint64(e)), zap.Uint64("target", uint64(provoker)))
	Set(bb, n.Alerted, true)
	Set(bb, n.Target, provoker)
}

// AlertHoard dispatches EventHoardAlert, carrying the entity stored in Target,
// to every other tree within Distance. Each dispatch runs to completion before
// the next one starts.
type AlertHoard struct {
	NoReact
	Distance float64
	Target   Key[EntityID]
}

// NewAlertHoard registers the target variable on bb.
func NewAlertHoard(bb *Blackboard, distance float64, target string) *AlertHoard {
	return &AlertHoard{Distance: distance, Target: RegisterVar[EntityID](bb, target)}
}

func (n *AlertHoard) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	w := ctx.World
	enemy := Get(bb, n.Target)
	if !w.Alive(enemy) {
		return StatusFailure
	}
	pos, ok := w.Position(e)
	if !ok {
		return StatusFailure
	}
	alerted := 0
	for _, id := range w.Nearby(pos, n.Distance, nil) {
		if id == e {
			continue
		}
		tree, obb, ok := w.Agent(id)
		if !ok {
			continue
		}
		if err := tree.Dispatch(ctx, id, obb, Event{Kind: EventHoardAlert, Data: enemy}); err != nil {
			ctx.log().Debug("hoard alert skipped", zap.Uint64("entity", uint64(id)), zap.Error(err))
			continue
		}
		alerted++
	}
	ctx.log().Debug("alerting hoard", zap.Uint64("entity", uint64(e)), zap.Int("alerted", alerted))
	return StatusSuccess
}

// ---- Sensing ----

// Sense publishes the entity's hitpoints and the distance to the closest enemy
// within Range, for scoring functions to read. The distance is -1 when no
// enemy is in range. Always succeeds while the entity is alive.
type Sense struct {
	NoReact
	Range     float64
	HP        Key[float64]
	EnemyDist Key[float64]
}

// NewSense registers the hitpoint and distance variables on bb.
func NewSense(bb *Blackboard, rng float64, hpVar, distVar string) *Sense {
	return &Sense{
		Range:     rng,
		HP:        RegisterVar[float64](bb, hpVar),
		EnemyDist: RegisterVar[float64](bb, distVar),
	}
}

func (n *Sense) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	w := ctx.World
	pos, ok := w.Position(e)
	if !ok {
		return StatusFailure
	}
	hp, _ := w.Hitpoints(e)
	Set(bb, n.HP, hp)

	dist := -1.0
	if team, ok := w.Team(e); ok {
		enemies := w.Nearby(pos, n.Range, func(id EntityID) bool {
			t, ok := w.Team(id)
			return ok && t != team
		})
		if enemy, d := closest(w, pos, enemies); enemy != None {
			dist = d
		}
	}
	Set(bb, n.EnemyDist, dist)
	return StatusSuccess
}
