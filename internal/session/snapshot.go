package session

import (
	"time"

	"github.com/fentz26/serpmine/internal/models"
)

// Hydrate produces a fresh ViewState populated from the task's sub-state.
// Fields belonging to every other task type are reset to defaults so no
// data from a previously displayed task survives the switch. The displayed
// step follows the task: running tasks open on their progress view, tasks
// holding results open on their results view, everything else on input.
//
// Hydrate is pure and never fails: a record whose sub-state is missing for
// its declared type hydrates to that type's defaults.
func Hydrate(task *models.Task) ViewState {
	view := EmptyViewState()
	if task == nil {
		return view
	}

	view.ActiveTaskID = task.ID
	view.TargetLanguage = task.TargetLanguage
	view.FilterLevel = task.FilterLevel
	view.SortBy = task.SortBy
	view.ExpandedRowID = task.ExpandedRowID

	switch {
	case task.Running():
		view.Step = StepProgress
	case task.HasResults():
		view.Step = StepResults
	default:
		view.Step = StepInput
	}

	switch task.Type {
	case models.TaskTypeMining:
		st := task.Mining
		if st == nil {
			st = models.NewMiningState("")
		}
		view.Seed = st.Seed
		view.Round = st.Round
		view.MiningRunning = st.Running
		view.MiningStatus = st.Status
		view.MiningError = st.Error
		view.Keywords = append([]models.Keyword(nil), st.Keywords...)
		view.Thoughts = append([]models.Thought(nil), st.Thoughts...)
		view.MiningLog = append([]models.LogEntry(nil), st.Log...)

	case models.TaskTypeBatch:
		st := task.Batch
		if st == nil {
			st = models.NewBatchState("")
		}
		view.BatchInput = st.Input
		view.Processed = st.Processed
		view.Total = st.Total
		view.BatchRunning = st.Running
		view.BatchStatus = st.Status
		view.BatchError = st.Error
		view.BatchResults = append([]models.BatchResult(nil), st.Results...)
		view.BatchLog = append([]models.LogEntry(nil), st.Log...)

	case models.TaskTypeDeepDive:
		st := task.DeepDive
		if st == nil {
			st = models.NewDeepDiveState("")
		}
		view.DiveKeyword = st.Keyword
		view.DiveProgress = st.Progress
		view.DiveRunning = st.Running
		view.DiveStatus = st.Status
		view.DiveError = st.Error
		if st.Report != nil {
			report := *st.Report
			view.Report = &report
		}
		view.DiveLog = append([]models.LogEntry(nil), st.Log...)

	case models.TaskTypeArticle:
		st := task.Article
		if st == nil {
			st = models.NewArticleState("")
		}
		view.ArticleTopic = st.Topic
		view.ArticleSections = st.Sections
		view.ArticleRunning = st.Running
		view.ArticleStatus = st.Status
		view.ArticleError = st.Error
		view.Draft = st.Draft
		view.ArticleLog = append([]models.LogEntry(nil), st.Log...)
	}

	return view
}

// Snapshot returns a copy of the task with its sub-state overwritten from
// the corresponding view fields and UpdatedAt refreshed. Sub-state fields
// with no live-view counterpart (the mining dedupe index, for one) are
// merged through untouched rather than replaced. The input task is not
// mutated.
func Snapshot(view ViewState, task *models.Task) *models.Task {
	if task == nil {
		return nil
	}
	out := CloneTask(task)
	out.UpdatedAt = time.Now().UTC()
	out.TargetLanguage = view.TargetLanguage
	out.FilterLevel = view.FilterLevel
	out.SortBy = view.SortBy
	out.ExpandedRowID = view.ExpandedRowID
	out.EnsureSubState()

	switch out.Type {
	case models.TaskTypeMining:
		st := out.Mining
		st.Seed = view.Seed
		st.Round = view.Round
		st.Running = view.MiningRunning
		st.Status = view.MiningStatus
		st.Error = view.MiningError
		st.Keywords = append([]models.Keyword(nil), view.Keywords...)
		st.Thoughts = append([]models.Thought(nil), view.Thoughts...)
		st.Log = append([]models.LogEntry(nil), view.MiningLog...)

	case models.TaskTypeBatch:
		st := out.Batch
		st.Input = view.BatchInput
		st.Processed = view.Processed
		st.Total = view.Total
		st.Running = view.BatchRunning
		st.Status = view.BatchStatus
		st.Error = view.BatchError
		st.Results = append([]models.BatchResult(nil), view.BatchResults...)
		st.Log = append([]models.LogEntry(nil), view.BatchLog...)

	case models.TaskTypeDeepDive:
		st := out.DeepDive
		st.Keyword = view.DiveKeyword
		st.Progress = view.DiveProgress
		st.Running = view.DiveRunning
		st.Status = view.DiveStatus
		st.Error = view.DiveError
		if view.Report != nil {
			report := *view.Report
			st.Report = &report
		} else {
			st.Report = nil
		}
		st.Log = append([]models.LogEntry(nil), view.DiveLog...)

	case models.TaskTypeArticle:
		st := out.Article
		st.Topic = view.ArticleTopic
		st.Sections = view.ArticleSections
		st.Running = view.ArticleRunning
		st.Status = view.ArticleStatus
		st.Error = view.ArticleError
		st.Draft = view.Draft
		st.Log = append([]models.LogEntry(nil), view.ArticleLog...)
	}

	return out
}

// CloneTask deep-copies a task record.
func CloneTask(task *models.Task) *models.Task {
	if task == nil {
		return nil
	}
	out := *task
	if task.Mining != nil {
		st := *task.Mining
		st.Keywords = append([]models.Keyword(nil), task.Mining.Keywords...)
		st.Thoughts = append([]models.Thought(nil), task.Mining.Thoughts...)
		st.Log = append([]models.LogEntry(nil), task.Mining.Log...)
		if task.Mining.Seen != nil {
			st.Seen = make(map[string]bool, len(task.Mining.Seen))
			for k, v := range task.Mining.Seen {
				st.Seen[k] = v
			}
		}
		out.Mining = &st
	}
	if task.Batch != nil {
		st := *task.Batch
		st.Results = append([]models.BatchResult(nil), task.Batch.Results...)
		st.Log = append([]models.LogEntry(nil), task.Batch.Log...)
		out.Batch = &st
	}
	if task.DeepDive != nil {
		st := *task.DeepDive
		if task.DeepDive.Report != nil {
			report := *task.DeepDive.Report
			st.Report = &report
		}
		st.Log = append([]models.LogEntry(nil), task.DeepDive.Log...)
		out.DeepDive = &st
	}
	if task.Article != nil {
		st := *task.Article
		st.Log = append([]models.LogEntry(nil), task.Article.Log...)
		out.Article = &st
	}
	return &out
}
