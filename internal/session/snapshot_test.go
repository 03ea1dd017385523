package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/serpmine/internal/models"
)

func miningTask(seed string) *models.Task {
	now := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)
	return &models.Task{
		ID:             "t-mining",
		Type:           models.TaskTypeMining,
		Name:           "mining: " + seed,
		CreatedAt:      now,
		UpdatedAt:      now,
		TargetLanguage: "de",
		Mining:         models.NewMiningState(seed),
	}
}

func TestHydrateDefaultsForNilTask(t *testing.T) {
	assert.Equal(t, EmptyViewState(), Hydrate(nil))
}

func TestHydrateMissingSubStateFallsBackToDefaults(t *testing.T) {
	task := &models.Task{ID: "bare", Type: models.TaskTypeMining}
	view := Hydrate(task)

	assert.Equal(t, "bare", view.ActiveTaskID)
	assert.Equal(t, StepInput, view.Step)
	assert.Equal(t, models.JobStatusIdle, view.MiningStatus)
	assert.Empty(t, view.Keywords)
}

func TestHydrateStepSelection(t *testing.T) {
	task := miningTask("plows")
	assert.Equal(t, StepInput, Hydrate(task).Step)

	task.Mining.Keywords = []models.Keyword{{Text: "plow blades"}}
	assert.Equal(t, StepResults, Hydrate(task).Step)

	task.Mining.Running = true
	task.Mining.Status = models.JobStatusRunning
	assert.Equal(t, StepProgress, Hydrate(task).Step, "running wins over results")
}

func TestSnapshotHydrateRoundTrip(t *testing.T) {
	task := miningTask("tractor parts")
	task.Mining.Round = 2
	task.Mining.Status = models.JobStatusSucceeded
	task.Mining.Keywords = []models.Keyword{
		{Text: "tractor hydraulic pump", Probability: models.ProbabilityHigh, Round: 2},
		{Text: "tractor pto shaft", Probability: models.ProbabilityMedium, Round: 1},
	}
	task.Mining.Thoughts = []models.Thought{{Round: 1, Text: "branching into implements"}}
	task.Mining.Log = []models.LogEntry{{Message: "Round 1: 10 candidates"}}
	task.Mining.Seen = map[string]bool{"tractor hydraulic pump": true, "tractor pto shaft": true}

	view := Hydrate(task)
	got := Snapshot(view, task)

	assert.Equal(t, task.Mining.Seed, got.Mining.Seed)
	assert.Equal(t, task.Mining.Round, got.Mining.Round)
	assert.Equal(t, task.Mining.Status, got.Mining.Status)
	assert.Equal(t, task.Mining.Keywords, got.Mining.Keywords)
	assert.Equal(t, task.Mining.Thoughts, got.Mining.Thoughts)
	assert.Equal(t, task.Mining.Log, got.Mining.Log)
}

func TestSnapshotPreservesDedupeIndex(t *testing.T) {
	task := miningTask("seed")
	task.Mining.Seen = map[string]bool{"already analyzed": true}

	// The view carries no dedupe fields at all.
	view := Hydrate(task)
	got := Snapshot(view, task)

	require.NotNil(t, got.Mining.Seen)
	assert.True(t, got.Mining.Seen["already analyzed"])
}

func TestSnapshotDoesNotMutateInput(t *testing.T) {
	task := miningTask("seed")
	view := Hydrate(task)
	view.Seed = "rewritten"
	view.Keywords = append(view.Keywords, models.Keyword{Text: "new"})

	before := task.UpdatedAt
	_ = Snapshot(view, task)

	assert.Equal(t, "seed", task.Mining.Seed)
	assert.Empty(t, task.Mining.Keywords)
	assert.Equal(t, before, task.UpdatedAt)
}

func TestSnapshotCarriesViewConfig(t *testing.T) {
	task := miningTask("seed")
	view := Hydrate(task)
	view.FilterLevel = "high"
	view.SortBy = "probability"
	view.ExpandedRowID = "row-3"

	got := Snapshot(view, task)
	assert.Equal(t, "high", got.FilterLevel)
	assert.Equal(t, "probability", got.SortBy)
	assert.Equal(t, "row-3", got.ExpandedRowID)

	rehydrated := Hydrate(got)
	assert.Equal(t, "high", rehydrated.FilterLevel)
	assert.Equal(t, "row-3", rehydrated.ExpandedRowID)
}

func TestCloneTaskIsDeep(t *testing.T) {
	task := miningTask("seed")
	task.Mining.Keywords = []models.Keyword{{Text: "original"}}
	task.Mining.Seen = map[string]bool{"original": true}

	clone := CloneTask(task)
	clone.Mining.Keywords[0].Text = "mutated"
	clone.Mining.Seen["extra"] = true

	assert.Equal(t, "original", task.Mining.Keywords[0].Text)
	assert.False(t, task.Mining.Seen["extra"])
}
