package world

import (
	"container/heap"

	"github.com/kasuganosora/roguebt/game/ai"
)

// maxExpand bounds the number of cells AStar closes before giving up. The
// grid may be unbounded, so an unreachable goal must not search forever.
const maxExpand = 4096

var steps = [...]ai.Action{ai.ActionMoveDown, ai.ActionMoveUp, ai.ActionMoveRight, ai.ActionMoveLeft}

type pathNode struct {
	pos    ai.Position
	g, f   int
	parent *pathNode
}

type openSet []*pathNode

func (o openSet) Len() int           { return len(o) }
func (o openSet) Less(i, j int) bool { return o[i].f < o[j].f }
func (o openSet) Swap(i, j int)      { o[i], o[j] = o[j], o[i] }
func (o *openSet) Push(x any)        { *o = append(*o, x.(*pathNode)) }
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	*o = old[:len(old)-1]
	return n
}

func manhattan(a, b ai.Position) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// AStar finds the shortest 4-connected path from `from` to `to` over cells for
// which passable returns true. The goal cell is always enterable. Returns the
// path excluding the start and including the end, an empty path when
// from == to, or nil if no path was found within the search budget.
func AStar(passable func(ai.Position) bool, from, to ai.Position) []ai.Position {
	if from == to {
		return []ai.Position{}
	}

	closed := make(map[ai.Position]bool)
	gScore := map[ai.Position]int{from: 0}
	open := &openSet{{pos: from, f: manhattan(from, to)}}

	for open.Len() > 0 && len(closed) < maxExpand {
		cur := heap.Pop(open).(*pathNode)
		if closed[cur.pos] {
			continue
		}
		closed[cur.pos] = true

		if cur.pos == to {
			var path []ai.Position
			for n := cur; n.parent != nil; n = n.parent {
				path = append(path, n.pos)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path
		}

		for _, step := range steps {
			np := cur.pos.Apply(step)
			if closed[np] || (np != to && !passable(np)) {
				continue
			}
			ng := cur.g + 1
			if prev, ok := gScore[np]; ok && ng >= prev {
				continue
			}
			gScore[np] = ng
			heap.Push(open, &pathNode{pos: np, g: ng, f: ng + manhattan(np, to), parent: cur})
		}
	}
	return nil
}
