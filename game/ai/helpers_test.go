package ai

import (
	"slices"

	"go.uber.org/zap"
)

// ---- Helpers ----

// stubNode returns a fixed status and records invocations.
type stubNode struct {
	result Status
	ticks  int
	events []Event
}

func stub(result Status) *stubNode { return &stubNode{result: result} }

func (s *stubNode) Tick(*AIContext, EntityID, *Blackboard) Status {
	s.ticks++
	return s.result
}

func (s *stubNode) React(_ *AIContext, _ EntityID, _ *Blackboard, ev Event) {
	s.events = append(s.events, ev)
}

func stubs(results ...Status) ([]Node, []*stubNode) {
	nodes := make([]Node, len(results))
	raw := make([]*stubNode, len(results))
	for i, r := range results {
		raw[i] = stub(r)
		nodes[i] = raw[i]
	}
	return nodes, raw
}

func newTestContext(w World) *AIContext {
	return &AIContext{World: w, Rand: NewRand(42), Logger: zap.NewNop()}
}

// fakeEntity is one entity of fakeWorld.
type fakeEntity struct {
	pos      Position
	hp       float64
	team     int
	hasTeam  bool
	tags     []Tag
	action   Action
	waypoint EntityID
	next     EntityID
	tree     *BehaviorTree
	bb       *Blackboard
}

// fakeWorld is a minimal in-memory World for node tests.
type fakeWorld struct {
	entities map[EntityID]*fakeEntity
	nextID   EntityID
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{entities: make(map[EntityID]*fakeEntity), nextID: 1}
}

func (w *fakeWorld) add(e *fakeEntity) EntityID {
	id := w.nextID
	w.nextID++
	w.entities[id] = e
	return id
}

func (w *fakeWorld) combatant(x, y, team int, hp float64) EntityID {
	return w.add(&fakeEntity{pos: Position{X: x, Y: y}, team: team, hasTeam: true, hp: hp})
}

func (w *fakeWorld) Alive(id EntityID) bool {
	_, ok := w.entities[id]
	return ok
}

func (w *fakeWorld) Position(id EntityID) (Position, bool) {
	e, ok := w.entities[id]
	if !ok {
		return Position{}, false
	}
	return e.pos, true
}

func (w *fakeWorld) Hitpoints(id EntityID) (float64, bool) {
	e, ok := w.entities[id]
	if !ok || !e.hasTeam {
		return 0, false
	}
	return e.hp, true
}

func (w *fakeWorld) Team(id EntityID) (int, bool) {
	e, ok := w.entities[id]
	if !ok || !e.hasTeam {
		return 0, false
	}
	return e.team, true
}

func (w *fakeWorld) HasTag(id EntityID, tag Tag) bool {
	e, ok := w.entities[id]
	return ok && slices.Contains(e.tags, tag)
}

func (w *fakeWorld) SetAction(id EntityID, a Action) bool {
	e, ok := w.entities[id]
	if !ok {
		return false
	}
	e.action = a
	return true
}

func (w *fakeWorld) StepToward(id EntityID, target Position) Action {
	e, ok := w.entities[id]
	if !ok {
		return ActionNop
	}
	return MoveToward(e.pos, target)
}

func (w *fakeWorld) Nearby(from Position, radius float64, match func(EntityID) bool) []EntityID {
	var out []EntityID
	for id, e := range w.entities {
		if from.DistanceTo(e.pos) <= radius && (match == nil || match(id)) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (w *fakeWorld) Waypoint(id EntityID) (EntityID, bool) {
	e, ok := w.entities[id]
	if !ok || e.waypoint == None {
		return None, false
	}
	return e.waypoint, true
}

func (w *fakeWorld) SetWaypoint(id, waypoint EntityID) {
	if e, ok := w.entities[id]; ok {
		e.waypoint = waypoint
	}
}

func (w *fakeWorld) NextWaypoint(waypoint EntityID) (EntityID, bool) {
	e, ok := w.entities[waypoint]
	if !ok || e.next == None {
		return None, false
	}
	return e.next, true
}

func (w *fakeWorld) Agent(id EntityID) (*BehaviorTree, *Blackboard, bool) {
	e, ok := w.entities[id]
	if !ok || e.tree == nil {
		return nil, nil, false
	}
	return e.tree, e.bb, true
}
