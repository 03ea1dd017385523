package session

import "github.com/fentz26/serpmine/internal/models"

// Step is the screen a task presents when it is hydrated.
type Step string

const (
	StepInput    Step = "input"
	StepProgress Step = "progress"
	StepResults  Step = "results"
)

// ViewState is the single flattened structure the UI renders from. It
// mirrors the currently active task's sub-state; fields belonging to every
// other task type are held at their defaults.
type ViewState struct {
	ActiveTaskID string
	Step         Step

	// Task-agnostic view configuration, carried per task.
	TargetLanguage string
	FilterLevel    string
	SortBy         string
	ExpandedRowID  string

	// Mining fields.
	Seed          string
	Round         int
	MiningRunning bool
	MiningStatus  models.JobStatus
	MiningError   string
	Keywords      []models.Keyword
	Thoughts      []models.Thought
	MiningLog     []models.LogEntry

	// Batch translate+analyze fields.
	BatchInput   string
	Processed    int
	Total        int
	BatchRunning bool
	BatchStatus  models.JobStatus
	BatchError   string
	BatchResults []models.BatchResult
	BatchLog     []models.LogEntry

	// Deep-dive fields.
	DiveKeyword  string
	DiveProgress int
	DiveRunning  bool
	DiveStatus   models.JobStatus
	DiveError    string
	Report       *models.DeepDiveReport
	DiveLog      []models.LogEntry

	// Article-generation fields.
	ArticleTopic    string
	ArticleSections int
	ArticleRunning  bool
	ArticleStatus   models.JobStatus
	ArticleError    string
	Draft           string
	ArticleLog      []models.LogEntry
}

// EmptyViewState returns the no-task display state.
func EmptyViewState() ViewState {
	return ViewState{
		Step:          StepInput,
		MiningStatus:  models.JobStatusIdle,
		BatchStatus:   models.JobStatusIdle,
		DiveStatus:    models.JobStatusIdle,
		ArticleStatus: models.JobStatusIdle,
	}
}
