// Package models defines the core domain types for serpmine.
package models

import "time"

// TaskType identifies the kind of research session a task runs.
type TaskType string

const (
	TaskTypeMining   TaskType = "mining"
	TaskTypeBatch    TaskType = "batch-translation"
	TaskTypeDeepDive TaskType = "deep-dive"
	TaskTypeArticle  TaskType = "article-generation"
)

// TaskTypes lists every task type, in display order.
var TaskTypes = []TaskType{TaskTypeMining, TaskTypeBatch, TaskTypeDeepDive, TaskTypeArticle}

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeMining, TaskTypeBatch, TaskTypeDeepDive, TaskTypeArticle:
		return true
	}
	return false
}

// JobStatus represents the lifecycle state of a task's driver.
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusStopped   JobStatus = "stopped"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status is a resting state a driver may be
// restarted from.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusStopped || s == JobStatusFailed
}

// Probability is the ranked-likelihood classification returned by the
// analysis service for a keyword.
type Probability string

const (
	ProbabilityHigh   Probability = "High"
	ProbabilityMedium Probability = "Medium"
	ProbabilityLow    Probability = "Low"
)

// LogEntry is one append-only line in a task's activity log.
type LogEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Thought is one entry in a mining task's agent-reasoning stream.
type Thought struct {
	At    time.Time `json:"at"`
	Round int       `json:"round"`
	Text  string    `json:"text"`
}

// Keyword is an analyzed candidate keyword.
type Keyword struct {
	Text          string      `json:"text"`
	Round         int         `json:"round"`
	Probability   Probability `json:"probability"`
	TopResultType string      `json:"top_result_type,omitempty"`
	ResultCount   int64       `json:"result_count,omitempty"`
	Reasoning     string      `json:"reasoning,omitempty"`
	SerpSnippets  []string    `json:"serp_snippets,omitempty"`
}

// BatchResult is one translated and analyzed item of a batch task.
type BatchResult struct {
	Source       string      `json:"source"`
	Translated   string      `json:"translated"`
	Probability  Probability `json:"probability,omitempty"`
	Volume       int64       `json:"volume,omitempty"`
	Difficulty   int         `json:"difficulty,omitempty"`
	SerpSnippets []string    `json:"serp_snippets,omitempty"`
}

// DeepDiveReport is the assembled output of a deep-dive session.
type DeepDiveReport struct {
	Keyword            string   `json:"keyword"`
	CoreKeywords       []string `json:"core_keywords,omitempty"`
	SerpCompetition    []string `json:"serp_competition,omitempty"`
	RankingProbability string   `json:"ranking_probability,omitempty"`
	ContentOutline     string   `json:"content_outline,omitempty"`
}

// MiningState holds the sub-state of an iterative keyword-mining task.
// Seen is the case-sensitive dedupe index over every keyword analyzed
// across rounds; it is maintained by the mutators and is not mirrored into
// the live view.
type MiningState struct {
	Seed     string          `json:"seed"`
	Round    int             `json:"round"`
	Running  bool            `json:"running"`
	Status   JobStatus       `json:"status"`
	Error    string          `json:"error,omitempty"`
	Keywords []Keyword       `json:"keywords"`
	Thoughts []Thought       `json:"thoughts"`
	Log      []LogEntry      `json:"log"`
	Seen     map[string]bool `json:"seen,omitempty"`
}

// BatchState holds the sub-state of a batch translate+analyze task.
type BatchState struct {
	Input     string        `json:"input"`
	Processed int           `json:"processed"`
	Total     int           `json:"total"`
	Running   bool          `json:"running"`
	Status    JobStatus     `json:"status"`
	Error     string        `json:"error,omitempty"`
	Results   []BatchResult `json:"results"`
	Log       []LogEntry    `json:"log"`
}

// DeepDiveState holds the sub-state of a deep-dive report task.
type DeepDiveState struct {
	Keyword  string          `json:"keyword"`
	Progress int             `json:"progress"` // 0-100, monotonic while running
	Running  bool            `json:"running"`
	Status   JobStatus       `json:"status"`
	Error    string          `json:"error,omitempty"`
	Report   *DeepDiveReport `json:"report,omitempty"`
	Log      []LogEntry      `json:"log"`
}

// ArticleState holds the sub-state of an article-generation task.
type ArticleState struct {
	Topic    string     `json:"topic"`
	Sections int        `json:"sections"`
	Running  bool       `json:"running"`
	Status   JobStatus  `json:"status"`
	Error    string     `json:"error,omitempty"`
	Draft    string     `json:"draft,omitempty"`
	Log      []LogEntry `json:"log"`
}

// Task is one independent research session. Exactly one sub-state pointer
// is populated, matching Type.
type Task struct {
	ID        string    `json:"id"`
	Type      TaskType  `json:"type"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsActive  bool      `json:"is_active"`

	// Per-task view configuration, independent across tasks.
	TargetLanguage string `json:"target_language"`
	FilterLevel    string `json:"filter_level,omitempty"`
	SortBy         string `json:"sort_by,omitempty"`
	ExpandedRowID  string `json:"expanded_row_id,omitempty"`

	Mining   *MiningState   `json:"mining,omitempty"`
	Batch    *BatchState    `json:"batch,omitempty"`
	DeepDive *DeepDiveState `json:"deep_dive,omitempty"`
	Article  *ArticleState  `json:"article,omitempty"`
}

// Status returns the driver status of the task's populated sub-state.
func (t *Task) Status() JobStatus {
	switch t.Type {
	case TaskTypeMining:
		if t.Mining != nil {
			return t.Mining.Status
		}
	case TaskTypeBatch:
		if t.Batch != nil {
			return t.Batch.Status
		}
	case TaskTypeDeepDive:
		if t.DeepDive != nil {
			return t.DeepDive.Status
		}
	case TaskTypeArticle:
		if t.Article != nil {
			return t.Article.Status
		}
	}
	return JobStatusIdle
}

// Running reports whether the task's driver is currently executing.
func (t *Task) Running() bool {
	switch t.Type {
	case TaskTypeMining:
		return t.Mining != nil && t.Mining.Running
	case TaskTypeBatch:
		return t.Batch != nil && t.Batch.Running
	case TaskTypeDeepDive:
		return t.DeepDive != nil && t.DeepDive.Running
	case TaskTypeArticle:
		return t.Article != nil && t.Article.Running
	}
	return false
}

// HasResults reports whether the task has accumulated any results.
func (t *Task) HasResults() bool {
	switch t.Type {
	case TaskTypeMining:
		return t.Mining != nil && len(t.Mining.Keywords) > 0
	case TaskTypeBatch:
		return t.Batch != nil && len(t.Batch.Results) > 0
	case TaskTypeDeepDive:
		return t.DeepDive != nil && t.DeepDive.Report != nil
	case TaskTypeArticle:
		return t.Article != nil && t.Article.Draft != ""
	}
	return false
}

// EnsureSubState populates the sub-state matching the task's declared type
// if it is missing, so malformed records loaded from disk hydrate to type
// defaults instead of failing.
func (t *Task) EnsureSubState() {
	switch t.Type {
	case TaskTypeMining:
		if t.Mining == nil {
			t.Mining = NewMiningState("")
		}
	case TaskTypeBatch:
		if t.Batch == nil {
			t.Batch = NewBatchState("")
		}
	case TaskTypeDeepDive:
		if t.DeepDive == nil {
			t.DeepDive = NewDeepDiveState("")
		}
	case TaskTypeArticle:
		if t.Article == nil {
			t.Article = NewArticleState("")
		}
	}
}

// NewMiningState builds a default mining sub-state.
func NewMiningState(seed string) *MiningState {
	return &MiningState{Seed: seed, Status: JobStatusIdle}
}

// NewBatchState builds a default batch sub-state.
func NewBatchState(input string) *BatchState {
	return &BatchState{Input: input, Status: JobStatusIdle}
}

// NewDeepDiveState builds a default deep-dive sub-state.
func NewDeepDiveState(keyword string) *DeepDiveState {
	return &DeepDiveState{Keyword: keyword, Status: JobStatusIdle}
}

// NewArticleState builds a default article sub-state.
func NewArticleState(topic string) *ArticleState {
	return &ArticleState{Topic: topic, Status: JobStatusIdle}
}

// Archive is a persisted historical record of a completed session,
// independent of the live task registry.
type Archive struct {
	ID         string    `json:"id"`
	TaskType   TaskType  `json:"task_type"`
	Name       string    `json:"name"`
	Payload    string    `json:"payload"` // serialized sub-state JSON
	ArchivedAt time.Time `json:"archived_at"`
}

// PromptOverride is a named prompt-override set for one workflow node.
type PromptOverride struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	Node       string    `json:"node"`
	Prompt     string    `json:"prompt"`
	UpdatedAt  time.Time `json:"updated_at"`
}
