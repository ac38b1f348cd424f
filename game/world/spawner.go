package world

import (
	"fmt"

	"github.com/kasuganosora/roguebt/game/ai"
	"github.com/kasuganosora/roguebt/game/catalog"
	"go.uber.org/zap"
)

// waypointArchetype names the marker entities that make up routes.
const waypointArchetype = "waypoint"

// LoadScenario populates the world from a catalog scenario: grid size and
// walls first, then route waypoints, then spawns in file order.
func (w *World) LoadScenario(name string) error {
	s, err := w.catalog.Scenario(name)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if s.Width > 0 {
		w.opts.Width = s.Width
	}
	if s.Height > 0 {
		w.opts.Height = s.Height
	}
	for _, c := range s.Walls {
		w.walls[ai.Position{X: c.X, Y: c.Y}] = true
	}

	routes := make(map[string]ai.EntityID, len(s.Routes))
	for _, r := range s.Routes {
		routes[r.Name] = w.buildRoute(r)
	}

	for i, sp := range s.Spawns {
		id, err := w.spawn(sp.Archetype, ai.Position{X: sp.X, Y: sp.Y})
		if err != nil {
			return fmt.Errorf("world: scenario %q spawn %d: %w", name, i, err)
		}
		if sp.Route != "" {
			w.entities[id].Waypoint = routes[sp.Route]
		}
	}
	w.logger.Info("scenario loaded",
		zap.String("scenario", name),
		zap.Int("entities", len(w.entities)),
		zap.Int("walls", len(w.walls)))
	return nil
}

// buildRoute creates one waypoint entity per point, linked in order, and
// returns the first.
func (w *World) buildRoute(r catalog.Route) ai.EntityID {
	var first, last *Entity
	for _, p := range r.Points {
		wp := &Entity{Archetype: waypointArchetype, Pos: ai.Position{X: p.X, Y: p.Y}}
		w.add(wp)
		if first == nil {
			first = wp
		} else {
			last.Next = wp.ID
		}
		last = wp
	}
	if r.Cycle && last != first {
		last.Next = first.ID
	}
	return first.ID
}
