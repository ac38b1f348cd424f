package ai

import (
	bt "github.com/joeycumines/go-behaviortree"
	"go.uber.org/zap"
)

// FromBT adapts a go-behaviortree node into a leaf. Tick errors are logged and
// reported as failure.
func FromBT(n bt.Node) Node {
	return &btLeaf{node: n}
}

type btLeaf struct {
	NoReact
	node bt.Node
}

func (l *btLeaf) Tick(ctx *AIContext, e EntityID, _ *Blackboard) Status {
	status, err := l.node.Tick()
	if err != nil {
		ctx.log().Debug("go-behaviortree node failed", zap.Uint64("entity", uint64(e)), zap.Error(err))
		return StatusFailure
	}
	return fromBTStatus(status)
}

// ToBT exposes n as a go-behaviortree node bound to one entity.
func ToBT(ctx *AIContext, e EntityID, bb *Blackboard, n Node) bt.Node {
	return bt.New(func([]bt.Node) (bt.Status, error) {
		return toBTStatus(n.Tick(ctx, e, bb)), nil
	})
}

func fromBTStatus(s bt.Status) Status {
	switch s {
	case bt.Success:
		return StatusSuccess
	case bt.Running:
		return StatusRunning
	default:
		return StatusFailure
	}
}

func toBTStatus(s Status) bt.Status {
	switch s {
	case StatusSuccess:
		return bt.Success
	case StatusRunning:
		return bt.Running
	default:
		return bt.Failure
	}
}

// MemorySequence is a sequence that resumes at the child that was running on
// the previous tick instead of starting over. Children that already succeeded
// in the current run are not ticked again until the run finishes.
//
// The memory is kept by go-behaviortree's Memorize over its stock Sequence.
// Events are forwarded to all children like any other composite.
type MemorySequence struct {
	Composite

	root bt.Node
	cur  struct {
		ctx *AIContext
		e   EntityID
		bb  *Blackboard
	}
}

// NewMemorySequence builds a MemorySequence over children.
func NewMemorySequence(children ...Node) *MemorySequence {
	m := &MemorySequence{Composite: Composite{Children: children}}
	wrapped := make([]bt.Node, len(children))
	for i, child := range children {
		wrapped[i] = bt.New(func([]bt.Node) (bt.Status, error) {
			return toBTStatus(child.Tick(m.cur.ctx, m.cur.e, m.cur.bb)), nil
		})
	}
	m.root = bt.New(bt.Memorize(bt.Sequence), wrapped...)
	return m
}

func (m *MemorySequence) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	m.cur.ctx, m.cur.e, m.cur.bb = ctx, e, bb
	defer func() { m.cur.ctx, m.cur.bb = nil, nil }()
	status, err := m.root.Tick()
	if err != nil {
		ctx.log().Debug("memory sequence failed", zap.Uint64("entity", uint64(e)), zap.Error(err))
		return StatusFailure
	}
	return fromBTStatus(status)
}
