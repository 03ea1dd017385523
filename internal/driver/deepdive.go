package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/fentz26/serpmine/internal/models"
	"github.com/fentz26/serpmine/internal/seoapi"
)

// ErrEmptyKeyword rejects a deep-dive run with no subject keyword.
var ErrEmptyKeyword = errors.New("deep-dive keyword is empty")

// Workflow node names for the deep-dive stages. Prompt overrides are keyed
// by these.
const (
	NodeStrategy    = "strategy"
	NodeExtraction  = "keyword-extraction"
	NodeCompetition = "competitive-verification"
	NodeProbability = "probability-analysis"
)

// deepDiveStage is one step of the fixed deep-dive sequence.
type deepDiveStage struct {
	node  string
	label string
	pct   int
	apply func(*models.DeepDiveReport, *seoapi.StageResult)
}

var deepDiveStages = []deepDiveStage{
	{NodeStrategy, "Generating content strategy", 25, func(r *models.DeepDiveReport, s *seoapi.StageResult) {
		r.ContentOutline = s.Outline
	}},
	{NodeExtraction, "Extracting core keywords", 50, func(r *models.DeepDiveReport, s *seoapi.StageResult) {
		r.CoreKeywords = s.Keywords
	}},
	{NodeCompetition, "Verifying SERP competition", 75, func(r *models.DeepDiveReport, s *seoapi.StageResult) {
		r.SerpCompetition = s.Competition
	}},
	{NodeProbability, "Analyzing ranking probability", 100, func(r *models.DeepDiveReport, s *seoapi.StageResult) {
		r.RankingProbability = s.Probability
	}},
}

// StartDeepDive launches the staged deep-dive run. A stage failure aborts
// the remaining stages and returns the task to its pre-dive view instead
// of leaving it stuck in progress.
func (m *Manager) StartDeepDive(taskID string) error {
	task, err := m.registry.Get(taskID)
	if err != nil {
		return err
	}
	if task.Type != models.TaskTypeDeepDive || task.DeepDive == nil {
		return fmt.Errorf("task %s is not a deep-dive task", taskID)
	}
	if task.DeepDive.Keyword == "" {
		return ErrEmptyKeyword
	}
	return m.launch(taskID, func(ctx context.Context) (models.JobStatus, string) {
		return m.runDeepDive(ctx, taskID)
	})
}

func (m *Manager) runDeepDive(ctx context.Context, taskID string) (models.JobStatus, string) {
	task, err := m.registry.Get(taskID)
	if err != nil {
		return models.JobStatusFailed, err.Error()
	}
	keyword := task.DeepDive.Keyword
	m.registry.AppendLog(taskID, fmt.Sprintf("Deep dive started for %q", keyword))

	if err := m.chargeCredits(ctx, taskID, "deep-dive", m.config.Costs.DeepDive); err != nil {
		if errors.Is(err, seoapi.ErrInsufficientCredits) {
			return models.JobStatusFailed, "insufficient credits"
		}
		m.registry.AppendLog(taskID, err.Error())
		return models.JobStatusFailed, err.Error()
	}

	report := models.DeepDiveReport{Keyword: keyword}
	for i, stage := range deepDiveStages {
		select {
		case <-ctx.Done():
			m.registry.AppendLog(taskID, fmt.Sprintf("Deep dive stopped before stage %d", i+1))
			return models.JobStatusStopped, ""
		default:
		}

		m.registry.AppendLog(taskID, stage.label)
		result, err := m.services.DeepDive.DeepDiveStage(ctx, keyword, task.TargetLanguage, stage.node)
		if err != nil {
			msg := failMessage("stage", i+1, err)
			m.registry.AppendLog(taskID, msg)
			return models.JobStatusFailed, msg
		}
		stage.apply(&report, result)
		m.registry.SetReport(taskID, report)
		m.registry.SetProgress(taskID, stage.pct)
	}

	m.registry.AppendLog(taskID, "Deep dive complete")
	return models.JobStatusSucceeded, ""
}
