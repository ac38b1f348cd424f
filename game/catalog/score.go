package catalog

import (
	"github.com/expr-lang/expr"
	"github.com/kasuganosora/roguebt/game/ai"
)

// scoreFunc evaluates the option's compiled expression against the
// blackboard. Evaluation errors and non-numeric results score zero.
func (o *Option) scoreFunc() ai.ScoreFunc {
	program := o.program
	if program == nil {
		return nil
	}
	return func(bb *ai.Blackboard) float64 {
		out, err := expr.Run(program, scoreEnv(bb))
		if err != nil {
			return 0
		}
		return toFloat(out)
	}
}

// scoreEnv exposes blackboard variables in shapes expr compares cleanly:
// entity ids as ints and positions as {x, y} maps.
func scoreEnv(bb *ai.Blackboard) map[string]any {
	env := bb.Snapshot()
	for k, v := range env {
		switch v := v.(type) {
		case ai.EntityID:
			env[k] = int(v)
		case ai.Position:
			env[k] = map[string]any{"x": v.X, "y": v.Y}
		}
	}
	return env
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
	}
	return 0
}
