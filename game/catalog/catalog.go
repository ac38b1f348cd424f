// Package catalog loads archetype behavior trees and scenarios from YAML and
// builds them into live ai nodes.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/kasuganosora/roguebt/game/ai"
	"gopkg.in/yaml.v3"
)

//go:embed archetypes.yaml
var defaultCatalog []byte

var (
	// ErrUnknownNode is returned for a node type the builder does not know.
	ErrUnknownNode = errors.New("catalog: unknown node type")
	// ErrUnknownArchetype is returned when a scenario or caller names an
	// archetype missing from the catalog.
	ErrUnknownArchetype = errors.New("catalog: unknown archetype")
	// ErrUnknownScenario is returned by Catalog.Scenario.
	ErrUnknownScenario = errors.New("catalog: unknown scenario")
)

// Catalog is the top-level structure of an archetype file.
//
// Example:
//
//	archetypes:
//	  minotaur:
//	    team: 1
//	    hitpoints: 100
//	    damage: 20
//	    tree:
//	      type: selector
//	      children:
//	        - type: find_enemy
//	          distance: 3
//	          var: attack_enemy
//	scenarios:
//	  default:
//	    spawns:
//	      - {archetype: minotaur, x: 5, y: 5}
type Catalog struct {
	Archetypes map[string]*Archetype `yaml:"archetypes"`
	Scenarios  map[string]*Scenario  `yaml:"scenarios"`

	vars map[string]varKind
}

// Archetype describes one kind of entity: its stats and its behavior tree.
// Items (heals, powerups) have no tree and no team.
type Archetype struct {
	Name      string   `yaml:"-"`
	Team      *int     `yaml:"team,omitempty"`
	Hitpoints float64  `yaml:"hitpoints,omitempty"`
	Damage    float64  `yaml:"damage,omitempty"`
	Tags      []string `yaml:"tags,omitempty"`
	// Heal and Powerup are granted to the entity that picks the item up.
	Heal    float64   `yaml:"heal,omitempty"`
	Powerup float64   `yaml:"powerup,omitempty"`
	Tree    *NodeSpec `yaml:"tree,omitempty"`
}

// Combatant reports whether entities of this archetype fight and can be hit.
func (a *Archetype) Combatant() bool { return a.Team != nil }

// Scenario is an initial world layout.
type Scenario struct {
	Width  int     `yaml:"width,omitempty"`
	Height int     `yaml:"height,omitempty"`
	Walls  []Cell  `yaml:"walls,omitempty"`
	Spawns []Spawn `yaml:"spawns"`
	Routes []Route `yaml:"routes,omitempty"`
}

// Cell is a grid coordinate.
type Cell struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Spawn places one entity of an archetype. Route names the waypoint chain the
// entity starts on, if any.
type Spawn struct {
	Archetype string `yaml:"archetype"`
	X         int    `yaml:"x"`
	Y         int    `yaml:"y"`
	Route     string `yaml:"route,omitempty"`
}

// Route is a waypoint chain. A cyclic route links its last point back to the
// first.
type Route struct {
	Name   string `yaml:"name"`
	Points []Cell `yaml:"points"`
	Cycle  bool   `yaml:"cycle,omitempty"`
}

// Parse decodes and validates catalog YAML. Unknown fields are rejected.
func Parse(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("catalog: decode yaml: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads a catalog file. An empty path loads the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", path, err)
	}
	defer f.Close()
	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %q: %w", path, err)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(defaultCatalog))
}

// Archetype returns the named archetype.
func (c *Catalog) Archetype(name string) (*Archetype, error) {
	a, ok := c.Archetypes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArchetype, name)
	}
	return a, nil
}

// Scenario returns the named scenario.
func (c *Catalog) Scenario(name string) (*Scenario, error) {
	s, ok := c.Scenarios[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	return s, nil
}

// ArchetypeNames returns the archetype names in sorted order.
func (c *Catalog) ArchetypeNames() []string {
	names := make([]string, 0, len(c.Archetypes))
	for name := range c.Archetypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterVars registers every blackboard variable used by the catalog's trees
// in reg, so the registry can be frozen before any tree is built.
func (c *Catalog) RegisterVars(reg *ai.Registry) {
	for name, kind := range c.vars {
		switch kind {
		case kindEntity:
			ai.Register[ai.EntityID](reg, name)
		case kindBool:
			ai.Register[bool](reg, name)
		case kindPosition:
			ai.Register[ai.Position](reg, name)
		case kindFloat:
			ai.Register[float64](reg, name)
		}
	}
}

func (c *Catalog) validate() error {
	c.vars = make(map[string]varKind)
	for name, a := range c.Archetypes {
		if a == nil {
			return fmt.Errorf("catalog: archetype %q is empty", name)
		}
		a.Name = name
		if a.Tree == nil {
			continue
		}
		if !a.Combatant() {
			return fmt.Errorf("catalog: archetype %q has a tree but no team", name)
		}
		if err := a.Tree.compile(c.vars); err != nil {
			return fmt.Errorf("catalog: archetype %q: %w", name, err)
		}
	}
	for name, s := range c.Scenarios {
		if s == nil {
			return fmt.Errorf("catalog: scenario %q is empty", name)
		}
		routes := make(map[string]bool, len(s.Routes))
		for _, r := range s.Routes {
			if len(r.Points) == 0 {
				return fmt.Errorf("catalog: scenario %q: route %q has no points", name, r.Name)
			}
			routes[r.Name] = true
		}
		for i, sp := range s.Spawns {
			if _, ok := c.Archetypes[sp.Archetype]; !ok {
				return fmt.Errorf("catalog: scenario %q spawn %d: %w: %q", name, i, ErrUnknownArchetype, sp.Archetype)
			}
			if sp.Route != "" && !routes[sp.Route] {
				return fmt.Errorf("catalog: scenario %q spawn %d: unknown route %q", name, i, sp.Route)
			}
		}
	}
	return nil
}
