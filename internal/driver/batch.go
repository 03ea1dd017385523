package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fentz26/serpmine/internal/models"
	"github.com/fentz26/serpmine/internal/seoapi"
)

// ErrEmptyBatch rejects a batch run with no input keywords.
var ErrEmptyBatch = errors.New("batch input is empty")

// SplitKeywordList splits a pasted keyword list on newlines and commas,
// trimming blanks.
func SplitKeywordList(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == '\n' || r == ','
	})
	out := fields[:0:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// StartBatch launches the batch translate+analyze run. The external call
// happens once; results are then replayed into the task one item at a
// time for progressive display, honoring cancellation between items. The
// prefix completed before a stop always persists.
func (m *Manager) StartBatch(taskID string) error {
	task, err := m.registry.Get(taskID)
	if err != nil {
		return err
	}
	if task.Type != models.TaskTypeBatch || task.Batch == nil {
		return fmt.Errorf("task %s is not a batch task", taskID)
	}
	if len(SplitKeywordList(task.Batch.Input)) == 0 {
		return ErrEmptyBatch
	}
	return m.launch(taskID, func(ctx context.Context) (models.JobStatus, string) {
		return m.runBatch(ctx, taskID)
	})
}

func (m *Manager) runBatch(ctx context.Context, taskID string) (models.JobStatus, string) {
	task, err := m.registry.Get(taskID)
	if err != nil {
		return models.JobStatusFailed, err.Error()
	}
	items := SplitKeywordList(task.Batch.Input)
	m.registry.AppendLog(taskID, fmt.Sprintf("Batch analysis started (%d keywords)", len(items)))

	if err := m.chargeCredits(ctx, taskID, "batch", m.config.Costs.Batch(len(items))); err != nil {
		if errors.Is(err, seoapi.ErrInsufficientCredits) {
			return models.JobStatusFailed, "insufficient credits"
		}
		m.registry.AppendLog(taskID, err.Error())
		return models.JobStatusFailed, err.Error()
	}

	analysis, err := m.services.Batch.BatchAnalyze(ctx, task.Batch.Input, task.TargetLanguage)
	if err != nil {
		msg := fmt.Sprintf("batch analyze: %v", err)
		m.registry.AppendLog(taskID, msg)
		return models.JobStatusFailed, msg
	}

	m.registry.SetBatchTotal(taskID, len(analysis.Results))

	for i, result := range analysis.Results {
		select {
		case <-ctx.Done():
			m.registry.AppendLog(taskID, fmt.Sprintf("Stopped after %d of %d items", i, len(analysis.Results)))
			return models.JobStatusStopped, ""
		default:
		}

		m.registry.AppendBatchResult(taskID, result)
		m.registry.AppendLog(taskID, fmt.Sprintf("Item %d/%d: %q → %q", i+1, len(analysis.Results), result.Source, result.Translated))

		if m.config.ReplayPace > 0 && i < len(analysis.Results)-1 {
			select {
			case <-ctx.Done():
				// Checked again at the top of the next item.
			case <-time.After(m.config.ReplayPace):
			}
		}
	}

	m.registry.AppendLog(taskID, "Batch analysis complete")
	return models.JobStatusSucceeded, ""
}
