package world

import (
	"slices"

	"github.com/kasuganosora/roguebt/game/ai"
)

// Entity is the runtime state of one thing on the grid: a combatant, an item
// or a waypoint. Combatants carry a team, hitpoints and damage; agents
// additionally carry a behavior tree and blackboard.
type Entity struct {
	ID        ai.EntityID
	Archetype string
	Pos       ai.Position

	Combatant bool
	Team      int
	HP        float64
	MaxHP     float64
	Damage    float64
	Tags      []ai.Tag

	// Heal and Powerup are granted to whoever picks the item up.
	Heal    float64
	Powerup float64

	Action     ai.Action
	LastStatus ai.Status
	Waypoint   ai.EntityID
	Next       ai.EntityID

	Tree *ai.BehaviorTree
	BB   *ai.Blackboard

	movePos ai.Position
}

// HasTag reports whether the entity carries tag.
func (e *Entity) HasTag(tag ai.Tag) bool { return slices.Contains(e.Tags, tag) }

// IsItem reports whether the entity can be picked up.
func (e *Entity) IsItem() bool { return !e.Combatant && (e.Heal > 0 || e.Powerup > 0) }

// EntityView is the serialisable state of an entity.
type EntityView struct {
	ID         ai.EntityID    `json:"id"`
	Archetype  string         `json:"archetype"`
	Pos        ai.Position    `json:"pos"`
	Team       *int           `json:"team,omitempty"`
	HP         float64        `json:"hp,omitempty"`
	Damage     float64        `json:"damage,omitempty"`
	Tags       []ai.Tag       `json:"tags,omitempty"`
	Action     ai.Action      `json:"action"`
	Status     *ai.Status     `json:"status,omitempty"`
	Waypoint   ai.EntityID    `json:"waypoint,omitempty"`
	Blackboard map[string]any `json:"blackboard,omitempty"`
}

func (e *Entity) view(withBlackboard bool) EntityView {
	v := EntityView{
		ID:        e.ID,
		Archetype: e.Archetype,
		Pos:       e.Pos,
		Tags:      e.Tags,
		Action:    e.Action,
		Waypoint:  e.Waypoint,
	}
	if e.Combatant {
		team := e.Team
		v.Team = &team
		v.HP = e.HP
		v.Damage = e.Damage
	}
	if e.Tree != nil {
		status := e.LastStatus
		v.Status = &status
		if withBlackboard {
			v.Blackboard = e.BB.Snapshot()
		}
	}
	return v
}
