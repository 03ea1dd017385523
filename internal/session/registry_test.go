package session

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/serpmine/internal/models"
)

func newMiningParams(seed string) CreateParams {
	return CreateParams{Type: models.TaskTypeMining, Seed: seed, TargetLanguage: "en"}
}

func TestAddTaskActivatesAndHydrates(t *testing.T) {
	reg := NewRegistry()

	task, err := reg.AddTask(newMiningParams("tractor parts"))
	require.NoError(t, err)
	require.NotEmpty(t, task.ID)
	assert.True(t, task.IsActive)

	view := reg.View()
	assert.Equal(t, task.ID, view.ActiveTaskID)
	assert.Equal(t, "tractor parts", view.Seed)
	assert.Equal(t, StepInput, view.Step)
}

func TestAddTaskCapacity(t *testing.T) {
	reg := NewRegistry()

	for i := 0; i < DefaultMaxTasks; i++ {
		_, err := reg.AddTask(newMiningParams(fmt.Sprintf("seed %d", i)))
		require.NoError(t, err)
	}

	_, err := reg.AddTask(newMiningParams("one too many"))
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, DefaultMaxTasks, reg.Len())
}

func TestCreateTaskRejectsUnknownType(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.CreateTask(CreateParams{Type: "telepathy"})
	require.Error(t, err)
}

func TestSwitchTaskSnapshotsAndRestores(t *testing.T) {
	reg := NewRegistry()

	a, err := reg.AddTask(newMiningParams("first"))
	require.NoError(t, err)
	reg.AppendLog(a.ID, "round one")

	b, err := reg.AddTask(CreateParams{Type: models.TaskTypeBatch, Seed: "alpha\nbeta"})
	require.NoError(t, err)

	view := reg.View()
	assert.Equal(t, b.ID, view.ActiveTaskID)
	assert.Empty(t, view.Seed, "mining fields must reset when a batch task is displayed")
	assert.Empty(t, view.MiningLog)
	assert.Equal(t, "alpha\nbeta", view.BatchInput)

	reg.SwitchTask(a.ID)
	view = reg.View()
	assert.Equal(t, a.ID, view.ActiveTaskID)
	assert.Equal(t, "first", view.Seed)
	require.Len(t, view.MiningLog, 1)
	assert.Equal(t, "round one", view.MiningLog[0].Message)
	assert.Empty(t, view.BatchInput, "batch fields must reset when a mining task is displayed")
}

func TestSwitchTaskUnknownIDIsNoOp(t *testing.T) {
	reg := NewRegistry()
	a, err := reg.AddTask(newMiningParams("only"))
	require.NoError(t, err)

	reg.SwitchTask("nope")
	assert.Equal(t, a.ID, reg.ActiveID())
}

func TestActiveUniquenessAcrossOperations(t *testing.T) {
	reg := NewRegistry()

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		task, err := reg.AddTask(newMiningParams(fmt.Sprintf("seed %d", i)))
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}
	reg.SwitchTask(ids[0])
	reg.SwitchTask(ids[2])
	require.NoError(t, reg.DeleteTask(ids[1]))

	active := 0
	for _, task := range reg.Tasks() {
		if task.IsActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestDeleteRunningTaskRefused(t *testing.T) {
	reg := NewRegistry()
	task, err := reg.AddTask(newMiningParams("busy"))
	require.NoError(t, err)
	require.NoError(t, reg.BeginRun(task.ID))

	err = reg.DeleteTask(task.ID)
	require.ErrorIs(t, err, ErrTaskRunning)
	assert.Equal(t, 1, reg.Len())
}

func TestDeleteActivePromotesMostRecentlyUpdated(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	current := base
	reg := NewRegistry(WithClock(func() time.Time {
		current = current.Add(time.Second)
		return current
	}))

	a, err := reg.AddTask(newMiningParams("a"))
	require.NoError(t, err)
	b, err := reg.AddTask(newMiningParams("b"))
	require.NoError(t, err)
	c, err := reg.AddTask(newMiningParams("c"))
	require.NoError(t, err)

	// Touch b last so it carries the greatest UpdatedAt.
	reg.AppendLog(b.ID, "touched")

	require.NoError(t, reg.DeleteTask(c.ID))
	assert.Equal(t, b.ID, reg.ActiveID())
	_ = a
}

func TestDeleteLastTaskEmptiesView(t *testing.T) {
	reg := NewRegistry()
	task, err := reg.AddTask(newMiningParams("solo"))
	require.NoError(t, err)

	require.NoError(t, reg.DeleteTask(task.ID))
	assert.Equal(t, "", reg.ActiveID())
	assert.Equal(t, EmptyViewState(), reg.View())
}

func TestRenameTask(t *testing.T) {
	reg := NewRegistry()
	task, err := reg.AddTask(newMiningParams("seed"))
	require.NoError(t, err)

	reg.RenameTask(task.ID, "")
	got, err := reg.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Name, got.Name, "blank rename must be ignored")

	reg.RenameTask(task.ID, "Q3 tractor push")
	got, err = reg.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Q3 tractor push", got.Name)
}

func TestDefaultNameTruncatesOnRuneBoundary(t *testing.T) {
	reg := NewRegistry()
	task, err := reg.AddTask(newMiningParams(strings.Repeat("検", 30)))
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(task.Name))
	assert.Equal(t, "mining: "+strings.Repeat("検", 24), task.Name)
}

func TestRestoreForcesRunningDown(t *testing.T) {
	reg := NewRegistry()
	task, err := reg.AddTask(newMiningParams("persisted mid-run"))
	require.NoError(t, err)
	require.NoError(t, reg.BeginRun(task.ID))
	reg.AppendKeywords(task.ID, []models.Keyword{{Text: "partial", Probability: models.ProbabilityMedium}})

	persisted := reg.Tasks()

	fresh := NewRegistry()
	fresh.Restore(persisted, task.ID)

	got, err := fresh.Get(task.ID)
	require.NoError(t, err)
	assert.False(t, got.Running())
	assert.Equal(t, models.JobStatusStopped, got.Status())
	require.Len(t, got.Mining.Keywords, 1, "partial results survive a restart")
}

func TestRestoreSkipsMalformedRecords(t *testing.T) {
	reg := NewRegistry()
	reg.Restore([]*models.Task{
		nil,
		{ID: "", Type: models.TaskTypeMining},
		{ID: "ok", Type: models.TaskTypeMining, Name: "fine"},
		{ID: "bad-type", Type: "telepathy"},
	}, "ok")

	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, "ok", reg.ActiveID())
}

func TestChangeHookFires(t *testing.T) {
	var kinds []ChangeKind
	reg := NewRegistry(WithChangeHook(func(kind ChangeKind) {
		kinds = append(kinds, kind)
	}))

	task, err := reg.AddTask(newMiningParams("seed"))
	require.NoError(t, err)
	reg.AppendLog(task.ID, "entry")

	require.Len(t, kinds, 2)
	assert.Equal(t, ChangeTaskList, kinds[0])
	assert.Equal(t, ChangeState, kinds[1])
}
