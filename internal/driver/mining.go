package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/fentz26/serpmine/internal/models"
	"github.com/fentz26/serpmine/internal/seoapi"
	"github.com/fentz26/serpmine/internal/session"
)

// ErrEmptySeed rejects a mining run before any external call is made.
var ErrEmptySeed = errors.New("seed keyword is empty")

// StartMining launches the iterative mining loop for a task. The loop
// repeats generate → dedupe → analyze rounds until a high-probability
// candidate appears, the round limit is hit, the run is cancelled or a
// call fails.
func (m *Manager) StartMining(taskID string) error {
	task, err := m.registry.Get(taskID)
	if err != nil {
		return err
	}
	if task.Type != models.TaskTypeMining || task.Mining == nil {
		return fmt.Errorf("task %s is not a mining task", taskID)
	}
	if task.Mining.Seed == "" {
		return ErrEmptySeed
	}
	return m.launch(taskID, func(ctx context.Context) (models.JobStatus, string) {
		return m.runMining(ctx, taskID)
	})
}

func (m *Manager) runMining(ctx context.Context, taskID string) (models.JobStatus, string) {
	m.registry.AppendLog(taskID, "Mining started")

	for {
		// Cancellation is cooperative: checked once at the top of each
		// round, never mid-call.
		select {
		case <-ctx.Done():
			m.registry.AppendLog(taskID, "Mining stopped by user")
			return models.JobStatusStopped, ""
		default:
		}

		task, err := m.registry.Get(taskID)
		if err != nil {
			return models.JobStatusFailed, err.Error()
		}
		st := task.Mining
		if st.Round >= m.config.MaxRounds {
			m.registry.AppendLog(taskID, fmt.Sprintf("Round limit (%d) reached without a high-probability hit", m.config.MaxRounds))
			return models.JobStatusStopped, ""
		}

		round := m.registry.AdvanceRound(taskID)
		m.registry.AppendLog(taskID, fmt.Sprintf("Round %d: generating candidates", round))

		prior := make([]string, 0, len(st.Keywords))
		for _, kw := range st.Keywords {
			prior = append(prior, kw.Text)
		}

		resp, err := m.services.Generator.Generate(ctx, seoapi.GenerateRequest{
			Seed:      st.Seed,
			Language:  task.TargetLanguage,
			Prior:     prior,
			Round:     round,
			CountHint: m.config.CandidatesPerRound,
		})
		if err != nil {
			msg := failMessage("round", round, fmt.Errorf("generate: %w", err))
			m.registry.AppendLog(taskID, msg)
			return models.JobStatusFailed, msg
		}
		if resp.Thought != "" {
			m.registry.AppendThought(taskID, round, resp.Thought)
		}

		// Dedupe against everything analyzed in earlier rounds and against
		// repeats inside this response. Exact, case-sensitive match.
		fresh := resp.Keywords[:0:0]
		inResponse := make(map[string]bool, len(resp.Keywords))
		for _, kw := range resp.Keywords {
			if inResponse[kw] || m.registry.HasSeen(taskID, kw) {
				continue
			}
			inResponse[kw] = true
			fresh = append(fresh, kw)
		}
		if len(fresh) == 0 {
			m.registry.AppendLog(taskID, fmt.Sprintf("Round %d: no new candidates", round))
			continue
		}

		if err := m.chargeCredits(ctx, taskID, "mining", m.config.Costs.Mining(len(fresh))); err != nil {
			if errors.Is(err, seoapi.ErrInsufficientCredits) {
				return models.JobStatusFailed, "insufficient credits"
			}
			msg := failMessage("round", round, err)
			m.registry.AppendLog(taskID, msg)
			return models.JobStatusFailed, msg
		}

		analyzed, err := m.services.Analyzer.Analyze(ctx, fresh, task.TargetLanguage)
		if err != nil {
			msg := failMessage("round", round, fmt.Errorf("analyze: %w", err))
			m.registry.AppendLog(taskID, msg)
			return models.JobStatusFailed, msg
		}
		for i := range analyzed {
			analyzed[i].Round = round
		}
		m.registry.AppendKeywords(taskID, analyzed)
		m.registry.AppendLog(taskID, fmt.Sprintf("Round %d: analyzed %d candidates", round, len(analyzed)))

		for _, kw := range analyzed {
			if kw.Probability == models.ProbabilityHigh {
				m.registry.AppendLog(taskID, fmt.Sprintf("High-probability keyword found: %q", kw.Text))
				return models.JobStatusSucceeded, ""
			}
		}
	}
}

// ContinueMining restarts the loop on a task that previously resolved to
// succeeded or stopped, keeping its accumulated rounds and keywords. A
// failed run is not restartable; it needs a fresh start.
func (m *Manager) ContinueMining(taskID string) error {
	task, err := m.registry.Get(taskID)
	if err != nil {
		return err
	}
	switch task.Status() {
	case models.JobStatusSucceeded, models.JobStatusStopped:
		return m.StartMining(taskID)
	}
	return session.ErrNotRestartable
}
