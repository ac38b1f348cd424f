package catalog

import (
	"strings"
	"testing"

	"github.com/kasuganosora/roguebt/game/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildSingle(t *testing.T, src string) (ai.Node, *ai.Blackboard) {
	t.Helper()
	c, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	a, err := c.Archetype("a")
	require.NoError(t, err)
	bb := ai.NewBlackboard(ai.NewRegistry())
	tree, err := a.Build(nil, 1, bb)
	require.NoError(t, err)
	return tree.Root, bb
}

func TestBuildNode_Composites(t *testing.T) {
	root, _ := buildSingle(t, `
archetypes:
  a:
    team: 0
    tree:
      type: selector
      children:
        - {type: sequence}
        - {type: or}
        - {type: parallel}
        - {type: memory_sequence}
        - type: not
          children: [{type: random_walk}]
`)
	sel, ok := root.(*ai.Selector)
	require.True(t, ok)
	require.Len(t, sel.Children, 5)
	assert.IsType(t, &ai.Sequence{}, sel.Children[0])
	assert.IsType(t, &ai.Or{}, sel.Children[1])
	assert.IsType(t, &ai.Parallel{}, sel.Children[2])
	assert.IsType(t, &ai.MemorySequence{}, sel.Children[3])
	assert.IsType(t, &ai.Inverter{}, sel.Children[4])
}

func TestBuildNode_UtilityScoresFromBlackboard(t *testing.T) {
	root, bb := buildSingle(t, `
archetypes:
  a:
    team: 0
    tree:
      type: utility
      base_chill: 7
      options:
        - {label: low, score: "(hp ?? 100) < 40 ? 50 - hp : 0", node: {type: patch_up, threshold: 40}}
        - {label: flag, score: "alerted", node: {type: random_walk}}
        - {label: broken, score: "missing.field", node: {type: random_walk}}
`)
	u, ok := root.(*ai.UtilitySelector)
	require.True(t, ok)
	assert.Equal(t, 7.0, u.BaseChill)
	require.Len(t, u.Entries, 3)

	low, flag, broken := u.Entries[0].Score, u.Entries[1].Score, u.Entries[2].Score
	assert.Equal(t, 0.0, low(bb), "undefined hp defaults through ??")

	hp := ai.RegisterVar[float64](bb, "hp")
	ai.Set(bb, hp, 10)
	assert.Equal(t, 40.0, low(bb))

	assert.Equal(t, 0.0, flag(bb))
	alerted := ai.RegisterVar[bool](bb, "alerted")
	ai.Set(bb, alerted, true)
	assert.Equal(t, 1.0, flag(bb))

	assert.Equal(t, 0.0, broken(bb))
}

func TestScoreEnv_ConvertsEntityAndPosition(t *testing.T) {
	bb := ai.NewBlackboard(ai.NewRegistry())
	ai.Set(bb, ai.RegisterVar[ai.EntityID](bb, "target"), ai.EntityID(4))
	ai.Set(bb, ai.RegisterVar[ai.Position](bb, "home"), ai.Position{X: 2, Y: 3})

	env := scoreEnv(bb)
	assert.Equal(t, 4, env["target"])
	assert.Equal(t, map[string]any{"x": 2, "y": 3}, env["home"])
}

func TestToFloat(t *testing.T) {
	assert.Equal(t, 2.5, toFloat(2.5))
	assert.Equal(t, 3.0, toFloat(3))
	assert.Equal(t, 1.0, toFloat(true))
	assert.Equal(t, 0.0, toFloat(false))
	assert.Equal(t, 0.0, toFloat("9"))
	assert.Equal(t, 0.0, toFloat(nil))
}

func TestBuild_NoTree(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	heal, _ := c.Archetype("heal")
	_, err = heal.Build(nil, 1, ai.NewBlackboard(nil))
	assert.Error(t, err)
}
