package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fentz26/serpmine/internal/models"
)

func TestEffectiveFallsBackToDefault(t *testing.T) {
	r := NewResolver()
	assert.NotEmpty(t, r.Effective("strategy"))
	assert.False(t, r.Overridden("strategy"))
	assert.Empty(t, r.Effective("no-such-node"))
}

func TestSetAndClearOverride(t *testing.T) {
	r := NewResolver()
	r.Set("strategy", "custom strategy prompt")
	assert.Equal(t, "custom strategy prompt", r.Effective("strategy"))
	assert.True(t, r.Overridden("strategy"))

	r.Set("strategy", "")
	assert.False(t, r.Overridden("strategy"))
	assert.NotEqual(t, "custom strategy prompt", r.Effective("strategy"))
}

func TestApplyReplacesOverrideSet(t *testing.T) {
	r := NewResolver()
	r.Set("strategy", "stale")

	r.Apply([]models.PromptOverride{
		{Node: "analysis", Prompt: "fresh analysis prompt"},
		{Node: "article", Prompt: ""}, // blank entries are dropped
	})

	assert.False(t, r.Overridden("strategy"), "apply replaces, not merges")
	assert.True(t, r.Overridden("analysis"))
	assert.False(t, r.Overridden("article"))
	assert.Equal(t, "fresh analysis prompt", r.Effective("analysis"))
}

func TestKnownNodes(t *testing.T) {
	for _, node := range []string{
		"generation", "analysis", "batch-analysis",
		"strategy", "keyword-extraction", "competitive-verification", "probability-analysis",
		"article",
	} {
		assert.True(t, Known(node), node)
	}
	assert.False(t, Known("made-up"))
	assert.Len(t, Nodes(), 8)
}
