package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/fentz26/serpmine/internal/models"
	"github.com/fentz26/serpmine/internal/seoapi"
)

// ErrEmptyTopic rejects an article run with no topic.
var ErrEmptyTopic = errors.New("article topic is empty")

// StartArticle launches a single-shot article draft generation run.
func (m *Manager) StartArticle(taskID string) error {
	task, err := m.registry.Get(taskID)
	if err != nil {
		return err
	}
	if task.Type != models.TaskTypeArticle || task.Article == nil {
		return fmt.Errorf("task %s is not an article task", taskID)
	}
	if task.Article.Topic == "" {
		return ErrEmptyTopic
	}
	return m.launch(taskID, func(ctx context.Context) (models.JobStatus, string) {
		return m.runArticle(ctx, taskID)
	})
}

func (m *Manager) runArticle(ctx context.Context, taskID string) (models.JobStatus, string) {
	task, err := m.registry.Get(taskID)
	if err != nil {
		return models.JobStatusFailed, err.Error()
	}
	st := task.Article
	m.registry.AppendLog(taskID, fmt.Sprintf("Drafting article for %q", st.Topic))

	if err := m.chargeCredits(ctx, taskID, "article", m.config.Costs.ArticleUnit); err != nil {
		if errors.Is(err, seoapi.ErrInsufficientCredits) {
			return models.JobStatusFailed, "insufficient credits"
		}
		m.registry.AppendLog(taskID, err.Error())
		return models.JobStatusFailed, err.Error()
	}

	select {
	case <-ctx.Done():
		m.registry.AppendLog(taskID, "Article generation stopped")
		return models.JobStatusStopped, ""
	default:
	}

	draft, err := m.services.Article.GenerateArticle(ctx, st.Topic, task.TargetLanguage, st.Sections)
	if err != nil {
		msg := fmt.Sprintf("generate article: %v", err)
		m.registry.AppendLog(taskID, msg)
		return models.JobStatusFailed, msg
	}

	m.registry.SetDraft(taskID, draft)
	m.registry.AppendLog(taskID, "Draft complete")
	return models.JobStatusSucceeded, ""
}
