// Package driver runs a task's long-lived job loop: iterative keyword
// mining, batch translate+analyze replay, deep-dive report assembly and
// article generation. Each task has at most one driver bound to it; every
// run resolves its task's state machine to exactly one terminal status.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fentz26/serpmine/internal/models"
	"github.com/fentz26/serpmine/internal/seoapi"
	"github.com/fentz26/serpmine/internal/session"
)

// Generator produces candidate keywords for a mining round.
type Generator interface {
	Generate(ctx context.Context, req seoapi.GenerateRequest) (*seoapi.GenerateResponse, error)
}

// Analyzer classifies ranking likelihood for candidate keywords.
type Analyzer interface {
	Analyze(ctx context.Context, keywords []string, language string) ([]models.Keyword, error)
}

// BatchAnalyzer translates and analyzes a whole keyword list in one call.
type BatchAnalyzer interface {
	BatchAnalyze(ctx context.Context, keywordList, language string) (*seoapi.BatchAnalysis, error)
}

// DeepDiver executes one named stage of the deep-dive workflow.
type DeepDiver interface {
	DeepDiveStage(ctx context.Context, keyword, language, node string) (*seoapi.StageResult, error)
}

// ArticleWriter drafts an article for a topic.
type ArticleWriter interface {
	GenerateArticle(ctx context.Context, topic, language string, sections int) (string, error)
}

// CreditService reports and consumes account credits.
type CreditService interface {
	Credits(ctx context.Context) (int, error)
	Consume(ctx context.Context, mode string, amount int) error
}

// Services bundles the external collaborators the drivers call.
type Services struct {
	Generator Generator
	Analyzer  Analyzer
	Batch     BatchAnalyzer
	DeepDive  DeepDiver
	Article   ArticleWriter
	Credits   CreditService
}

// Config tunes driver behavior.
type Config struct {
	// MaxRounds bounds a mining run that never finds a high-probability
	// candidate. Reaching it resolves the run as stopped, not failed.
	MaxRounds int
	// CandidatesPerRound is the count hint passed to the generator.
	CandidatesPerRound int
	// ReplayPace is the delay between replayed batch items, giving the
	// progressive-display effect.
	ReplayPace time.Duration
	// Costs holds the per-mode credit pricing.
	Costs Costs
}

// DefaultConfig returns the default driver configuration.
func DefaultConfig() Config {
	return Config{
		MaxRounds:          8,
		CandidatesPerRound: 10,
		ReplayPace:         300 * time.Millisecond,
		Costs:              DefaultCosts(),
	}
}

// Manager launches and cancels drivers, one per task at most. It keeps a
// mutex-guarded table of live cancel funcs plus a WaitGroup for shutdown.
type Manager struct {
	registry *session.Registry
	services Services
	config   Config

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a driver manager.
func NewManager(reg *session.Registry, services Services, cfg Config) *Manager {
	return &Manager{
		registry: reg,
		services: services,
		config:   cfg,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Stop requests cooperative cancellation of the task's driver, if one is
// running. The driver observes it at its next iteration boundary; partial
// results already appended stay.
func (m *Manager) Stop(taskID string) {
	m.mu.Lock()
	cancel := m.cancels[taskID]
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// StopAll cancels every running driver and waits for them to resolve.
func (m *Manager) StopAll() {
	m.mu.Lock()
	for _, cancel := range m.cancels {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// RunningCount returns the number of live drivers.
func (m *Manager) RunningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cancels)
}

// launch transitions the task to running and starts fn in a goroutine. fn
// must return the terminal status and optional error message; launch
// guarantees FinishRun is called exactly once, whatever fn does.
func (m *Manager) launch(taskID string, fn func(ctx context.Context) (models.JobStatus, string)) error {
	if err := m.registry.BeginRun(taskID); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.cancels[taskID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.cancels, taskID)
			m.mu.Unlock()
			cancel()
		}()

		status, errMsg := fn(ctx)
		m.registry.FinishRun(taskID, status, errMsg)
	}()
	return nil
}

// chargeCredits performs the credit precheck-and-consume for a run unit.
// An insufficient balance is surfaced distinctly so the UI can offer the
// recharge path instead of a generic failure message.
func (m *Manager) chargeCredits(ctx context.Context, taskID, mode string, amount int) error {
	if m.services.Credits == nil || amount <= 0 {
		return nil
	}
	if err := m.services.Credits.Consume(ctx, mode, amount); err != nil {
		if errors.Is(err, seoapi.ErrInsufficientCredits) {
			m.registry.AppendLog(taskID, fmt.Sprintf("Not enough credits for %s (%d needed). Recharge to continue.", mode, amount))
			return err
		}
		return fmt.Errorf("consume credits: %w", err)
	}
	return nil
}

// failMessage renders a driver error with its loop-position context.
func failMessage(unit string, n int, err error) string {
	return fmt.Sprintf("%s %d: %v", unit, n, err)
}
