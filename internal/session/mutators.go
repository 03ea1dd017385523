package session

import (
	"github.com/fentz26/serpmine/internal/models"
)

// The mutators below are the only write path drivers have into a task.
// Each takes an explicit task id; the empty id addresses the currently
// active task for older call sites. Every mutator follows the same
// contract:
//
//  1. the entry is always applied to the addressed record itself, so
//     background work is durable whether or not it is on screen;
//  2. the same change is mirrored into the shared view-state if and only
//     if the addressed task is the active one;
//  3. the view-state is never touched for a non-active task.
//
// That last clause is the isolation guarantee that keeps one task's
// background output from bleeding into whatever the user is looking at.

// mutate applies recordFn to the addressed record and, when the record is
// the active one, viewFn to the live view-state. It refreshes UpdatedAt
// and reports whether the task was found.
func (r *Registry) mutate(id string, recordFn func(*models.Task), viewFn func(*ViewState, *models.Task)) bool {
	r.mu.Lock()
	if id == "" {
		id = r.activeID
	}
	target := r.findLocked(id)
	if target == nil {
		r.mu.Unlock()
		return false
	}
	recordFn(target)
	target.UpdatedAt = r.now()
	if viewFn != nil && target.ID == r.activeID {
		viewFn(&r.view, target)
	}
	r.mu.Unlock()

	r.fire(ChangeState)
	return true
}

// AppendLog appends one line to the addressed task's activity log.
func (r *Registry) AppendLog(id, message string) {
	entry := models.LogEntry{At: r.now(), Message: message}
	r.mutate(id,
		func(t *models.Task) {
			switch t.Type {
			case models.TaskTypeMining:
				t.Mining.Log = append(t.Mining.Log, entry)
			case models.TaskTypeBatch:
				t.Batch.Log = append(t.Batch.Log, entry)
			case models.TaskTypeDeepDive:
				t.DeepDive.Log = append(t.DeepDive.Log, entry)
			case models.TaskTypeArticle:
				t.Article.Log = append(t.Article.Log, entry)
			}
		},
		func(v *ViewState, t *models.Task) {
			switch t.Type {
			case models.TaskTypeMining:
				v.MiningLog = append(v.MiningLog, entry)
			case models.TaskTypeBatch:
				v.BatchLog = append(v.BatchLog, entry)
			case models.TaskTypeDeepDive:
				v.DiveLog = append(v.DiveLog, entry)
			case models.TaskTypeArticle:
				v.ArticleLog = append(v.ArticleLog, entry)
			}
		})
}

// AppendThought appends an agent-reasoning entry to a mining task.
func (r *Registry) AppendThought(id string, round int, text string) {
	thought := models.Thought{At: r.now(), Round: round, Text: text}
	r.mutate(id,
		func(t *models.Task) {
			if t.Mining != nil {
				t.Mining.Thoughts = append(t.Mining.Thoughts, thought)
			}
		},
		func(v *ViewState, t *models.Task) {
			if t.Mining != nil {
				v.Thoughts = append(v.Thoughts, thought)
			}
		})
}

// AppendKeywords appends analyzed candidates to a mining task's result
// list and records them in the cross-round dedupe index.
func (r *Registry) AppendKeywords(id string, keywords []models.Keyword) {
	if len(keywords) == 0 {
		return
	}
	r.mutate(id,
		func(t *models.Task) {
			if t.Mining == nil {
				return
			}
			if t.Mining.Seen == nil {
				t.Mining.Seen = make(map[string]bool)
			}
			for _, kw := range keywords {
				t.Mining.Keywords = append(t.Mining.Keywords, kw)
				t.Mining.Seen[kw.Text] = true
			}
		},
		func(v *ViewState, t *models.Task) {
			if t.Mining != nil {
				v.Keywords = append(v.Keywords, keywords...)
			}
		})
}

// HasSeen reports whether a mining task has already analyzed the keyword
// in any round. Matching is case-sensitive and exact.
func (r *Registry) HasSeen(id, keyword string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" {
		id = r.activeID
	}
	target := r.findLocked(id)
	if target == nil || target.Mining == nil {
		return false
	}
	return target.Mining.Seen[keyword]
}

// AdvanceRound increments a mining task's round counter and returns the
// new round number.
func (r *Registry) AdvanceRound(id string) int {
	round := 0
	r.mutate(id,
		func(t *models.Task) {
			if t.Mining != nil {
				t.Mining.Round++
				round = t.Mining.Round
			}
		},
		func(v *ViewState, t *models.Task) {
			if t.Mining != nil {
				v.Round = round
			}
		})
	return round
}

// SetBatchTotal records how many items a batch run will replay.
func (r *Registry) SetBatchTotal(id string, total int) {
	r.mutate(id,
		func(t *models.Task) {
			if t.Batch != nil {
				t.Batch.Total = total
			}
		},
		func(v *ViewState, t *models.Task) {
			if t.Batch != nil {
				v.Total = total
			}
		})
}

// AppendBatchResult appends one replayed item and advances the processed
// counter.
func (r *Registry) AppendBatchResult(id string, result models.BatchResult) {
	r.mutate(id,
		func(t *models.Task) {
			if t.Batch != nil {
				t.Batch.Results = append(t.Batch.Results, result)
				t.Batch.Processed = len(t.Batch.Results)
			}
		},
		func(v *ViewState, t *models.Task) {
			if t.Batch != nil {
				v.BatchResults = append(v.BatchResults, result)
				v.Processed = len(v.BatchResults)
			}
		})
}

// SetProgress raises a deep-dive task's progress percentage. Progress is
// monotonic while running; lower values are ignored.
func (r *Registry) SetProgress(id string, pct int) {
	applied := 0
	r.mutate(id,
		func(t *models.Task) {
			if t.DeepDive != nil && pct > t.DeepDive.Progress {
				t.DeepDive.Progress = pct
			}
			if t.DeepDive != nil {
				applied = t.DeepDive.Progress
			}
		},
		func(v *ViewState, t *models.Task) {
			if t.DeepDive != nil && applied > v.DiveProgress {
				v.DiveProgress = applied
			}
		})
}

// SetReport stores a deep-dive task's assembled report.
func (r *Registry) SetReport(id string, report models.DeepDiveReport) {
	r.mutate(id,
		func(t *models.Task) {
			if t.DeepDive != nil {
				rep := report
				t.DeepDive.Report = &rep
			}
		},
		func(v *ViewState, t *models.Task) {
			if t.DeepDive != nil {
				rep := report
				v.Report = &rep
			}
		})
}

// SetDraft stores an article task's generated draft.
func (r *Registry) SetDraft(id, draft string) {
	r.mutate(id,
		func(t *models.Task) {
			if t.Article != nil {
				t.Article.Draft = draft
			}
		},
		func(v *ViewState, t *models.Task) {
			if t.Article != nil {
				v.Draft = draft
			}
		})
}

// SetInput replaces the addressed task's input field: mining seed, batch
// list, dive keyword or article topic, by type.
func (r *Registry) SetInput(id, text string) {
	r.mutate(id,
		func(t *models.Task) {
			switch t.Type {
			case models.TaskTypeMining:
				if t.Mining != nil {
					t.Mining.Seed = text
				}
			case models.TaskTypeBatch:
				if t.Batch != nil {
					t.Batch.Input = text
				}
			case models.TaskTypeDeepDive:
				if t.DeepDive != nil {
					t.DeepDive.Keyword = text
				}
			case models.TaskTypeArticle:
				if t.Article != nil {
					t.Article.Topic = text
				}
			}
		},
		func(v *ViewState, t *models.Task) {
			switch t.Type {
			case models.TaskTypeMining:
				v.Seed = text
			case models.TaskTypeBatch:
				v.BatchInput = text
			case models.TaskTypeDeepDive:
				v.DiveKeyword = text
			case models.TaskTypeArticle:
				v.ArticleTopic = text
			}
		})
}

// SetTargetLanguage sets the addressed task's analysis language.
func (r *Registry) SetTargetLanguage(id, lang string) {
	r.mutate(id,
		func(t *models.Task) { t.TargetLanguage = lang },
		func(v *ViewState, _ *models.Task) { v.TargetLanguage = lang })
}

// SetFilterLevel sets the results filter, carried per task.
func (r *Registry) SetFilterLevel(id, level string) {
	r.mutate(id,
		func(t *models.Task) { t.FilterLevel = level },
		func(v *ViewState, _ *models.Task) { v.FilterLevel = level })
}

// SetSortBy sets the results sort order, carried per task.
func (r *Registry) SetSortBy(id, sortBy string) {
	r.mutate(id,
		func(t *models.Task) { t.SortBy = sortBy },
		func(v *ViewState, _ *models.Task) { v.SortBy = sortBy })
}

// SetExpandedRow records which result row is expanded, or "" for none.
func (r *Registry) SetExpandedRow(id, rowID string) {
	r.mutate(id,
		func(t *models.Task) { t.ExpandedRowID = rowID },
		func(v *ViewState, _ *models.Task) { v.ExpandedRowID = rowID })
}

// BeginRun transitions a task into the running state. It fails with
// ErrAlreadyRunning when a driver is already bound to the task; a task has
// at most one driver at a time.
func (r *Registry) BeginRun(id string) error {
	r.mu.Lock()
	if id == "" {
		id = r.activeID
	}
	target := r.findLocked(id)
	if target == nil {
		r.mu.Unlock()
		return ErrTaskNotFound
	}
	if target.Running() {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	setRun(target, true, models.JobStatusRunning, "")
	target.UpdatedAt = r.now()
	if target.ID == r.activeID {
		r.view = Hydrate(target)
	}
	r.mu.Unlock()

	r.fire(ChangeState)
	return nil
}

// FinishRun resolves a task's run to a terminal status. Drivers call this
// exactly once per run.
func (r *Registry) FinishRun(id string, status models.JobStatus, errMsg string) {
	r.mutate(id,
		func(t *models.Task) {
			setRun(t, false, status, errMsg)
		},
		func(v *ViewState, t *models.Task) {
			switch t.Type {
			case models.TaskTypeMining:
				v.MiningRunning = false
				v.MiningStatus = status
				v.MiningError = errMsg
				v.Step = stepFor(len(v.Keywords) > 0)
			case models.TaskTypeBatch:
				v.BatchRunning = false
				v.BatchStatus = status
				v.BatchError = errMsg
				v.Step = stepFor(len(v.BatchResults) > 0)
			case models.TaskTypeDeepDive:
				v.DiveRunning = false
				v.DiveStatus = status
				v.DiveError = errMsg
				v.Step = stepFor(v.Report != nil)
			case models.TaskTypeArticle:
				v.ArticleRunning = false
				v.ArticleStatus = status
				v.ArticleError = errMsg
				v.Step = stepFor(v.Draft != "")
			}
		})
}

// stepFor picks the screen a finished run leaves behind. A run that
// produced anything lands on results; one that produced nothing returns
// to input rather than a stuck progress screen.
func stepFor(hasResults bool) Step {
	if hasResults {
		return StepResults
	}
	return StepInput
}

func setRun(t *models.Task, running bool, status models.JobStatus, errMsg string) {
	switch t.Type {
	case models.TaskTypeMining:
		if t.Mining != nil {
			t.Mining.Running = running
			t.Mining.Status = status
			t.Mining.Error = errMsg
		}
	case models.TaskTypeBatch:
		if t.Batch != nil {
			t.Batch.Running = running
			t.Batch.Status = status
			t.Batch.Error = errMsg
		}
	case models.TaskTypeDeepDive:
		if t.DeepDive != nil {
			t.DeepDive.Running = running
			t.DeepDive.Status = status
			t.DeepDive.Error = errMsg
		}
	case models.TaskTypeArticle:
		if t.Article != nil {
			t.Article.Running = running
			t.Article.Status = status
			t.Article.Error = errMsg
		}
	}
}
