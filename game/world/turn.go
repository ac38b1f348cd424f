package world

import (
	"context"
	"time"

	"github.com/kasuganosora/roguebt/game/ai"
	"go.uber.org/zap"
)

// Decision is what one agent chose during a turn.
type Decision struct {
	Entity     ai.EntityID    `json:"entity"`
	Archetype  string         `json:"archetype"`
	Status     ai.Status      `json:"status"`
	Action     ai.Action      `json:"action"`
	Blackboard map[string]any `json:"blackboard,omitempty"`
}

// TurnReport summarises one processed turn.
type TurnReport struct {
	Turn      uint64        `json:"turn"`
	Decisions []Decision    `json:"decisions"`
	Attacks   int           `json:"attacks"`
	Removed   []ai.EntityID `json:"removed,omitempty"`
	PickedUp  []ai.EntityID `json:"picked_up,omitempty"`
	Alive     int           `json:"alive"`
	Duration  time.Duration `json:"duration"`
}

// StatusCounts tallies the decisions by tree status.
func (r *TurnReport) StatusCounts() map[ai.Status]int {
	out := make(map[ai.Status]int, 3)
	for _, d := range r.Decisions {
		out[d.Status]++
	}
	return out
}

// ProcessTurn runs one simulation turn: every agent's tree is ticked in
// ascending id order to choose an action, then actions are resolved. Moving
// into an occupied cell is blocked and damages the occupant if it belongs to
// another team. Dead combatants are removed, then items are picked up by
// can_pickup combatants standing on them.
func (w *World) ProcessTurn(ctx context.Context) (*TurnReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.turn++
	report := &TurnReport{Turn: w.turn}
	actx := &ai.AIContext{World: w.accessor(), Rand: w.rand, Logger: w.logger, Turn: w.turn}

	agents := make([]ai.EntityID, 0, len(w.order))
	for _, id := range w.order {
		if w.entities[id].Tree != nil {
			agents = append(agents, id)
		}
	}
	for _, id := range agents {
		e, ok := w.entities[id]
		if !ok {
			continue
		}
		e.LastStatus = e.Tree.Tick(actx, id, e.BB)
		report.Decisions = append(report.Decisions, Decision{
			Entity:     id,
			Archetype:  e.Archetype,
			Status:     e.LastStatus,
			Action:     e.Action,
			Blackboard: e.BB.Snapshot(),
		})
	}

	report.Attacks = w.resolveActions()
	report.Removed = w.removeDead()
	report.PickedUp = w.pickUp()
	report.Alive = len(w.entities)
	report.Duration = time.Since(start)
	w.last = report

	w.logger.Debug("turn processed",
		zap.Uint64("turn", report.Turn),
		zap.Int("decisions", len(report.Decisions)),
		zap.Int("attacks", report.Attacks),
		zap.Int("removed", len(report.Removed)),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (w *World) resolveActions() int {
	var combatants []*Entity
	for _, id := range w.order {
		if e := w.entities[id]; e.Combatant {
			e.movePos = e.Pos
			combatants = append(combatants, e)
		}
	}

	attacks := 0
	for _, e := range combatants {
		switch {
		case e.Action == ai.ActionHealSelf:
			e.HP = min(e.HP+w.opts.SelfHeal, max(e.MaxHP, e.HP))
		case e.Action.IsMove():
			next := e.Pos.Apply(e.Action)
			if !w.passable(next) {
				continue
			}
			blocked := false
			for _, other := range combatants {
				if other == e || other.movePos != next {
					continue
				}
				blocked = true
				if other.Team != e.Team {
					other.HP -= e.Damage
					attacks++
				}
			}
			if !blocked {
				e.movePos = next
			}
		}
	}
	for _, e := range combatants {
		e.Pos = e.movePos
		e.Action = ai.ActionNop
	}
	return attacks
}

func (w *World) removeDead() []ai.EntityID {
	var dead []ai.EntityID
	for _, id := range w.order {
		if e := w.entities[id]; e.Combatant && e.HP <= 0 {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		w.destroy(id)
		w.logger.Debug("entity removed", zap.Uint64("entity", uint64(id)))
	}
	return dead
}

func (w *World) pickUp() []ai.EntityID {
	var taken []ai.EntityID
	for _, id := range w.order {
		p := w.entities[id]
		if !p.Combatant || !p.HasTag(ai.TagPickup) {
			continue
		}
		for _, iid := range w.order {
			item := w.entities[iid]
			if !item.IsItem() || item.Pos != p.Pos {
				continue
			}
			p.HP += item.Heal
			p.Damage += item.Powerup
			taken = append(taken, iid)
			// Mark consumed so later pickers in this pass skip it.
			item.Heal, item.Powerup = 0, 0
		}
	}
	for _, id := range taken {
		w.destroy(id)
	}
	return taken
}
