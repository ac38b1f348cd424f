package ai

import (
	"math"

	"go.uber.org/zap"
)

// AIContext is passed to every behavior tree node during a tick or a react
// traversal. It carries the world accessor, the random source used by
// stochastic nodes, and the logger.
type AIContext struct {
	World  World
	Rand   Rand
	Logger *zap.Logger
	Turn   uint64
}

func (ctx *AIContext) log() *zap.Logger {
	if ctx == nil || ctx.Logger == nil {
		return zap.NewNop()
	}
	return ctx.Logger
}

func (ctx *AIContext) rand() Rand {
	if ctx == nil || ctx.Rand == nil {
		return globalRand{}
	}
	return ctx.Rand
}

// EntityID identifies an entity in the world. The zero value never refers to a
// live entity.
type EntityID uint64

// None is the empty entity reference.
const None EntityID = 0

// Position is a cell on the simulation grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DistanceTo returns the euclidean distance between two cells.
func (p Position) DistanceTo(q Position) float64 {
	return math.Hypot(float64(p.X-q.X), float64(p.Y-q.Y))
}

// Apply returns the cell reached by performing a on p. Non-movement actions
// leave the position unchanged.
func (p Position) Apply(a Action) Position {
	dx, dy := a.Delta()
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Tag marks an entity with a capability or kind that nodes can query.
type Tag string

const (
	TagPowerup Tag = "powerup"
	TagHeal    Tag = "heal"
	TagPickup  Tag = "can_pickup"
	TagPlayer  Tag = "player"
)

// Action is the intended action an entity commits to for the current turn.
type Action uint8

const (
	ActionNop Action = iota
	ActionMoveLeft
	ActionMoveRight
	ActionMoveDown
	ActionMoveUp
	ActionHealSelf
)

var moveActions = [...]Action{ActionMoveLeft, ActionMoveRight, ActionMoveDown, ActionMoveUp}

var actionNames = [...]string{
	ActionNop:       "nop",
	ActionMoveLeft:  "move_left",
	ActionMoveRight: "move_right",
	ActionMoveDown:  "move_down",
	ActionMoveUp:    "move_up",
	ActionHealSelf:  "heal_self",
}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return "unknown"
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// IsMove reports whether a changes the entity's position.
func (a Action) IsMove() bool {
	return a >= ActionMoveLeft && a <= ActionMoveUp
}

// Delta returns the grid offset of a movement action. The y axis grows down.
func (a Action) Delta() (dx, dy int) {
	switch a {
	case ActionMoveLeft:
		return -1, 0
	case ActionMoveRight:
		return 1, 0
	case ActionMoveDown:
		return 0, 1
	case ActionMoveUp:
		return 0, -1
	}
	return 0, 0
}

// Inverse returns the movement in the opposite direction.
func (a Action) Inverse() Action {
	switch a {
	case ActionMoveLeft:
		return ActionMoveRight
	case ActionMoveRight:
		return ActionMoveLeft
	case ActionMoveDown:
		return ActionMoveUp
	case ActionMoveUp:
		return ActionMoveDown
	}
	return a
}

// MoveToward returns the single greedy step from one cell toward another,
// preferring the axis with the larger gap.
func MoveToward(from, to Position) Action {
	dx := to.X - from.X
	dy := to.Y - from.Y
	if dx == 0 && dy == 0 {
		return ActionNop
	}
	if abs(dx) > abs(dy) {
		if dx > 0 {
			return ActionMoveRight
		}
		return ActionMoveLeft
	}
	if dy < 0 {
		return ActionMoveUp
	}
	return ActionMoveDown
}

// RandomMove picks one of the four movement actions.
func RandomMove(r Rand) Action {
	return moveActions[r.IntN(len(moveActions))]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// World is the accessor through which nodes read and mutate entity state.
// Implemented by the simulation world; declared here so the core does not
// depend on it.
//
// Every method must tolerate stale ids: lookups on a destroyed entity report
// ok=false (or false), mutations are ignored.
type World interface {
	Alive(id EntityID) bool
	Position(id EntityID) (Position, bool)
	Hitpoints(id EntityID) (float64, bool)
	Team(id EntityID) (int, bool)
	HasTag(id EntityID, tag Tag) bool

	// SetAction records the intended action for id. Returns false when id is
	// not alive.
	SetAction(id EntityID, a Action) bool
	// StepToward returns the next movement action that brings id closer to
	// target, or ActionNop when no step is possible.
	StepToward(id EntityID, target Position) Action

	// Nearby returns the live entities within radius of from (inclusive) for
	// which match returns true, in ascending id order. A nil match accepts all.
	Nearby(from Position, radius float64, match func(EntityID) bool) []EntityID

	Waypoint(id EntityID) (EntityID, bool)
	SetWaypoint(id, waypoint EntityID)
	NextWaypoint(waypoint EntityID) (EntityID, bool)

	// Agent returns the behavior tree and blackboard attached to id.
	Agent(id EntityID) (*BehaviorTree, *Blackboard, bool)
}
