package driver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/serpmine/internal/models"
	"github.com/fentz26/serpmine/internal/seoapi"
	"github.com/fentz26/serpmine/internal/session"
)

// Function adapters so tests can hand in closures as service mocks.
type generatorFunc func(ctx context.Context, req seoapi.GenerateRequest) (*seoapi.GenerateResponse, error)

func (f generatorFunc) Generate(ctx context.Context, req seoapi.GenerateRequest) (*seoapi.GenerateResponse, error) {
	return f(ctx, req)
}

type analyzerFunc func(ctx context.Context, keywords []string, language string) ([]models.Keyword, error)

func (f analyzerFunc) Analyze(ctx context.Context, keywords []string, language string) ([]models.Keyword, error) {
	return f(ctx, keywords, language)
}

type batchFunc func(ctx context.Context, keywordList, language string) (*seoapi.BatchAnalysis, error)

func (f batchFunc) BatchAnalyze(ctx context.Context, keywordList, language string) (*seoapi.BatchAnalysis, error) {
	return f(ctx, keywordList, language)
}

type diveFunc func(ctx context.Context, keyword, language, node string) (*seoapi.StageResult, error)

func (f diveFunc) DeepDiveStage(ctx context.Context, keyword, language, node string) (*seoapi.StageResult, error) {
	return f(ctx, keyword, language, node)
}

type articleFunc func(ctx context.Context, topic, language string, sections int) (string, error)

func (f articleFunc) GenerateArticle(ctx context.Context, topic, language string, sections int) (string, error) {
	return f(ctx, topic, language, sections)
}

// fakeCredits records every consume call; err, when set, is returned on
// each attempt.
type fakeCredits struct {
	mu       sync.Mutex
	balance  int
	consumed []int
	err      error
}

func (c *fakeCredits) Credits(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance, nil
}

func (c *fakeCredits) Consume(ctx context.Context, mode string, amount int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.consumed = append(c.consumed, amount)
	c.balance -= amount
	return nil
}

func (c *fakeCredits) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := 0
	for _, n := range c.consumed {
		sum += n
	}
	return sum
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ReplayPace = 0
	return cfg
}

// waitTerminal blocks until the task's driver resolves, returning the
// terminal status.
func waitTerminal(t *testing.T, reg *session.Registry, id string) models.JobStatus {
	t.Helper()
	var status models.JobStatus
	require.Eventually(t, func() bool {
		task, err := reg.Get(id)
		if err != nil {
			return false
		}
		status = task.Status()
		return status.Terminal()
	}, 5*time.Second, 2*time.Millisecond)
	return status
}

func TestSecondDriverOnSameTaskRejected(t *testing.T) {
	reg := session.NewRegistry()
	task, err := reg.AddTask(session.CreateParams{Type: models.TaskTypeArticle, Seed: "standing desks"})
	require.NoError(t, err)

	release := make(chan struct{})
	mgr := NewManager(reg, Services{
		Article: articleFunc(func(ctx context.Context, topic, language string, sections int) (string, error) {
			<-release
			return "draft", nil
		}),
	}, testConfig())

	require.NoError(t, mgr.StartArticle(task.ID))
	require.ErrorIs(t, mgr.StartArticle(task.ID), session.ErrAlreadyRunning)
	assert.Equal(t, 1, mgr.RunningCount())

	close(release)
	assert.Equal(t, models.JobStatusSucceeded, waitTerminal(t, reg, task.ID))
	mgr.StopAll()
	assert.Equal(t, 0, mgr.RunningCount())
}

func TestArticleRunStoresDraft(t *testing.T) {
	reg := session.NewRegistry()
	task, err := reg.AddTask(session.CreateParams{Type: models.TaskTypeArticle, Seed: "ergonomic chairs"})
	require.NoError(t, err)

	credits := &fakeCredits{balance: 100}
	mgr := NewManager(reg, Services{
		Article: articleFunc(func(ctx context.Context, topic, language string, sections int) (string, error) {
			return "# " + topic + "\n\nIntro.", nil
		}),
		Credits: credits,
	}, testConfig())

	require.NoError(t, mgr.StartArticle(task.ID))
	assert.Equal(t, models.JobStatusSucceeded, waitTerminal(t, reg, task.ID))

	got, err := reg.Get(task.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Article.Draft, "ergonomic chairs")
	assert.Equal(t, DefaultCosts().ArticleUnit, credits.total())
}

func TestArticleFailureSurfacesError(t *testing.T) {
	reg := session.NewRegistry()
	task, err := reg.AddTask(session.CreateParams{Type: models.TaskTypeArticle, Seed: "topic"})
	require.NoError(t, err)

	mgr := NewManager(reg, Services{
		Article: articleFunc(func(ctx context.Context, topic, language string, sections int) (string, error) {
			return "", context.DeadlineExceeded
		}),
	}, testConfig())

	require.NoError(t, mgr.StartArticle(task.ID))
	assert.Equal(t, models.JobStatusFailed, waitTerminal(t, reg, task.ID))

	got, err := reg.Get(task.ID)
	require.NoError(t, err)
	assert.Contains(t, got.Article.Error, "generate article")
	assert.Empty(t, got.Article.Draft)
}

func TestStartArticleValidation(t *testing.T) {
	reg := session.NewRegistry()
	mgr := NewManager(reg, Services{}, testConfig())

	require.ErrorIs(t, mgr.StartArticle("missing"), session.ErrTaskNotFound)

	task, err := reg.AddTask(session.CreateParams{Type: models.TaskTypeArticle})
	require.NoError(t, err)
	require.ErrorIs(t, mgr.StartArticle(task.ID), ErrEmptyTopic)

	mining, err := reg.AddTask(session.CreateParams{Type: models.TaskTypeMining, Seed: "s"})
	require.NoError(t, err)
	require.Error(t, mgr.StartArticle(mining.ID))
}
