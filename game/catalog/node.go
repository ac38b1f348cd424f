package catalog

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/kasuganosora/roguebt/game/ai"
)

// NodeSpec is the YAML form of one behavior tree node. Which fields apply
// depends on Type:
//
//	sequence, selector, or, parallel, memory_sequence  children
//	not                                                children (exactly one)
//	utility                                            options, base_chill
//	is_low_hp, patch_up                                threshold
//	find_enemy, alert_hoard                            distance, var
//	find_closest                                       tag, distance, var
//	patrol                                             distance, var
//	find_waypoint, move_to_entity, flee, hoard_listener  var
//	sense                                              distance, hp_var, var
//	random_walk                                        none
type NodeSpec struct {
	Type      string      `yaml:"type"`
	Children  []*NodeSpec `yaml:"children,omitempty"`
	Options   []*Option   `yaml:"options,omitempty"`
	BaseChill *float64    `yaml:"base_chill,omitempty"`
	Threshold float64     `yaml:"threshold,omitempty"`
	Distance  float64     `yaml:"distance,omitempty"`
	Var       string      `yaml:"var,omitempty"`
	HPVar     string      `yaml:"hp_var,omitempty"`
	Tag       string      `yaml:"tag,omitempty"`
}

// Option is one branch of a utility node. Score is an expr expression over
// the entity's blackboard variables; undefined variables evaluate to nil, so
// use `??` to default them.
type Option struct {
	Label string    `yaml:"label"`
	Score string    `yaml:"score"`
	Node  *NodeSpec `yaml:"node"`

	program *vm.Program
}

// varKind is the value type a node stores under its blackboard variable.
type varKind string

const (
	kindEntity   varKind = "entity"
	kindBool     varKind = "bool"
	kindPosition varKind = "position"
	kindFloat    varKind = "float"
)

func declare(vars map[string]varKind, name string, kind varKind) error {
	if prev, ok := vars[name]; ok && prev != kind {
		return fmt.Errorf("var %q used as %s and %s", name, prev, kind)
	}
	vars[name] = kind
	return nil
}

// vars lists the blackboard variables the node declares.
func (n *NodeSpec) vars() map[string]varKind {
	switch n.Type {
	case "find_enemy", "find_closest", "find_waypoint", "move_to_entity", "flee", "alert_hoard":
		return map[string]varKind{n.Var: kindEntity}
	case "hoard_listener":
		return map[string]varKind{n.Var: kindEntity, ai.AlertedVar(n.Var): kindBool}
	case "patrol":
		return map[string]varKind{n.Var: kindPosition}
	case "sense":
		return map[string]varKind{n.Var: kindFloat, n.HPVar: kindFloat}
	}
	return nil
}

// compile checks the node's shape, records its variables in vars and
// compiles score expressions.
func (n *NodeSpec) compile(vars map[string]varKind) error {
	switch n.Type {
	case "sequence", "selector", "or", "parallel", "memory_sequence":
	case "not":
		if len(n.Children) != 1 {
			return fmt.Errorf("not: want exactly one child, got %d", len(n.Children))
		}
	case "utility":
		if len(n.Options) == 0 {
			return fmt.Errorf("utility: no options")
		}
		for i, opt := range n.Options {
			if opt == nil || opt.Node == nil {
				return fmt.Errorf("utility option %d: missing node", i)
			}
			if opt.Score == "" {
				return fmt.Errorf("utility option %q: missing score", opt.Label)
			}
			program, err := expr.Compile(opt.Score,
				expr.Env(map[string]any{}),
				expr.AllowUndefinedVariables(),
			)
			if err != nil {
				return fmt.Errorf("utility option %q: compile score: %w", opt.Label, err)
			}
			opt.program = program
			if err := opt.Node.compile(vars); err != nil {
				return err
			}
		}
		return nil
	case "is_low_hp", "patch_up", "random_walk":
	case "find_enemy", "alert_hoard", "patrol", "find_closest", "sense":
		if n.Distance <= 0 {
			return fmt.Errorf("%s: distance must be positive", n.Type)
		}
		if n.Var == "" {
			return fmt.Errorf("%s: missing var", n.Type)
		}
		if n.Type == "find_closest" && n.Tag == "" {
			return fmt.Errorf("find_closest: missing tag")
		}
		if n.Type == "sense" && n.HPVar == "" {
			return fmt.Errorf("sense: missing hp_var")
		}
	case "find_waypoint", "move_to_entity", "flee", "hoard_listener":
		if n.Var == "" {
			return fmt.Errorf("%s: missing var", n.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNode, n.Type)
	}
	for _, c := range n.Children {
		if c == nil {
			return fmt.Errorf("%s: empty child", n.Type)
		}
		if err := c.compile(vars); err != nil {
			return err
		}
	}
	for name, kind := range n.vars() {
		if err := declare(vars, name, kind); err != nil {
			return err
		}
	}
	return nil
}

// Build constructs the archetype's behavior tree for entity e, registering
// its variables on bb.
func (a *Archetype) Build(w ai.World, e ai.EntityID, bb *ai.Blackboard) (*ai.BehaviorTree, error) {
	if a.Tree == nil {
		return nil, fmt.Errorf("catalog: archetype %q has no tree", a.Name)
	}
	root, err := BuildNode(a.Tree, w, e, bb)
	if err != nil {
		return nil, fmt.Errorf("catalog: build %q: %w", a.Name, err)
	}
	return ai.NewBehaviorTree(root), nil
}

// BuildNode constructs the node described by spec for entity e.
func BuildNode(spec *NodeSpec, w ai.World, e ai.EntityID, bb *ai.Blackboard) (ai.Node, error) {
	children := func() ([]ai.Node, error) {
		out := make([]ai.Node, 0, len(spec.Children))
		for _, c := range spec.Children {
			n, err := BuildNode(c, w, e, bb)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	}

	switch spec.Type {
	case "sequence", "selector", "or", "parallel", "memory_sequence", "not":
		kids, err := children()
		if err != nil {
			return nil, err
		}
		switch spec.Type {
		case "sequence":
			return ai.NewSequence(kids...), nil
		case "selector":
			return ai.NewSelector(kids...), nil
		case "or":
			return ai.NewOr(kids...), nil
		case "parallel":
			return ai.NewParallel(kids...), nil
		case "memory_sequence":
			return ai.NewMemorySequence(kids...), nil
		default:
			if len(kids) != 1 {
				return nil, fmt.Errorf("not: want exactly one child, got %d", len(kids))
			}
			return ai.Not(kids[0]), nil
		}
	case "utility":
		entries := make([]ai.UtilityEntry, 0, len(spec.Options))
		for _, opt := range spec.Options {
			n, err := BuildNode(opt.Node, w, e, bb)
			if err != nil {
				return nil, err
			}
			entries = append(entries, ai.UtilityEntry{Node: n, Score: opt.scoreFunc(), Label: opt.Label})
		}
		u := ai.NewUtilitySelector(entries...)
		if spec.BaseChill != nil {
			u.BaseChill = *spec.BaseChill
		}
		return u, nil
	case "is_low_hp":
		return &ai.IsLowHP{Threshold: spec.Threshold}, nil
	case "patch_up":
		return &ai.PatchUp{Threshold: spec.Threshold}, nil
	case "random_walk":
		return &ai.RandomWalk{}, nil
	case "find_enemy":
		return ai.NewFindEnemy(bb, spec.Distance, spec.Var), nil
	case "find_closest":
		return ai.NewFindClosestOf(bb, ai.Tag(spec.Tag), spec.Distance, spec.Var), nil
	case "find_waypoint":
		return ai.NewFindWaypoint(bb, spec.Var), nil
	case "move_to_entity":
		return ai.NewMoveToEntity(bb, spec.Var), nil
	case "flee":
		return ai.NewFlee(bb, spec.Var), nil
	case "patrol":
		return ai.NewPatrol(w, e, bb, spec.Distance, spec.Var), nil
	case "hoard_listener":
		return ai.NewHoardListener(bb, spec.Var), nil
	case "alert_hoard":
		return ai.NewAlertHoard(bb, spec.Distance, spec.Var), nil
	case "sense":
		return ai.NewSense(bb, spec.Distance, spec.HPVar, spec.Var), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNode, spec.Type)
}
