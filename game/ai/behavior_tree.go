package ai

import (
	"errors"

	"go.uber.org/zap"
)

// Status is the result of a behavior tree node tick.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRunning:
		return "running"
	}
	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Node is a single node in a behavior tree.
//
// Tick evaluates the node once for entity e and must not block. Running means
// "tick me again next turn"; nodes keep no resumption point and re-derive
// their progress from the blackboard and the world.
//
// React receives out-of-band events. Composites forward every event to all of
// their children.
type Node interface {
	Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status
	React(ctx *AIContext, e EntityID, bb *Blackboard, ev Event)
}

// NoReact gives leaf nodes a no-op React.
type NoReact struct{}

func (NoReact) React(*AIContext, EntityID, *Blackboard, Event) {}

// ---- Leaf nodes ----

// ConditionNode evaluates a boolean predicate.
type ConditionNode struct {
	NoReact
	Fn func(ctx *AIContext, e EntityID, bb *Blackboard) bool
}

func (cn *ConditionNode) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	if cn.Fn(ctx, e, bb) {
		return StatusSuccess
	}
	return StatusFailure
}

// ActionNode executes an action and returns its status.
type ActionNode struct {
	NoReact
	Fn func(ctx *AIContext, e EntityID, bb *Blackboard) Status
}

func (an *ActionNode) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	return an.Fn(ctx, e, bb)
}

// ---- BehaviorTree root ----

// ErrReentrant is returned when a tree is ticked or dispatched to while it is
// already in the middle of a tick or dispatch.
var ErrReentrant = errors.New("ai: behavior tree re-entered while busy")

// BehaviorTree wraps the root node of one entity. A tree is attached to a
// single entity and must not be copied.
type BehaviorTree struct {
	_    noCopy
	Root Node

	busy bool
}

// NewBehaviorTree creates a tree owning root.
func NewBehaviorTree(root Node) *BehaviorTree {
	return &BehaviorTree{Root: root}
}

// Busy reports whether the tree is currently inside Tick or Dispatch.
func (bt *BehaviorTree) Busy() bool { return bt.busy }

// Tick runs one turn of the behavior tree for e.
func (bt *BehaviorTree) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	if bt.Root == nil {
		return StatusFailure
	}
	if bt.busy {
		ctx.log().Warn("behavior tree ticked re-entrantly", zap.Uint64("entity", uint64(e)))
		return StatusFailure
	}
	bt.busy = true
	defer func() { bt.busy = false }()
	return bt.Root.Tick(ctx, e, bb)
}

// Dispatch broadcasts ev depth-first to every node of the tree. It never
// ticks; it may be called from inside another entity's tick and returns only
// after the whole traversal has completed.
func (bt *BehaviorTree) Dispatch(ctx *AIContext, e EntityID, bb *Blackboard, ev Event) error {
	if bt.Root == nil {
		return nil
	}
	if bt.busy {
		return ErrReentrant
	}
	bt.busy = true
	defer func() { bt.busy = false }()
	bt.Root.React(ctx, e, bb, ev)
	return nil
}

// noCopy may be embedded into structs which must not be copied after first
// use. See go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
