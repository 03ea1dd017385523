// Package session implements the multi-task workspace: the task registry,
// the shared view-state the UI renders from, the snapshot/hydrate engine
// that moves one task's data in and out of that view-state, and the
// background-safe mutators drivers report through.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/serpmine/internal/models"
)

// DefaultMaxTasks is the hard cap on concurrent tasks in a workspace.
const DefaultMaxTasks = 5

// Sentinel errors for registry operations.
var (
	ErrCapacityExceeded = errors.New("task limit reached")
	ErrTaskRunning      = errors.New("task is running")
	ErrTaskNotFound     = errors.New("task not found")
	ErrAlreadyRunning   = errors.New("task already has a running driver")
	ErrNotRestartable   = errors.New("task is not in a restartable state")
)

// ChangeKind classifies a registry mutation for the persistence hook.
type ChangeKind int

const (
	// ChangeTaskList fires on add, delete and restore.
	ChangeTaskList ChangeKind = iota
	// ChangeActive fires when the displayed task changes.
	ChangeActive
	// ChangeState fires on any other task mutation.
	ChangeState
)

// CreateParams describes a task to create.
type CreateParams struct {
	Type           models.TaskType
	Name           string
	TargetLanguage string
	Seed           string // mining seed, batch input, dive keyword or article topic
}

// Registry is the ordered collection of task records plus the shared
// view-state mirroring the active one. One mutex serializes every
// operation; concurrent drivers interleave at mutator granularity, which
// preserves per-task append order.
type Registry struct {
	mu       sync.Mutex
	tasks    []*models.Task
	activeID string
	view     ViewState
	maxTasks int
	onChange func(ChangeKind)
	now      func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxTasks overrides the task capacity (tests use small caps).
func WithMaxTasks(n int) Option {
	return func(r *Registry) { r.maxTasks = n }
}

// WithChangeHook installs the hook invoked at the end of each mutating
// operation. The hook runs outside the registry lock.
func WithChangeHook(fn func(ChangeKind)) Option {
	return func(r *Registry) { r.onChange = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		maxTasks: DefaultMaxTasks,
		view:     EmptyViewState(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateTask allocates a new task record with default sub-state for the
// requested type. The record is not inserted into the registry.
func (r *Registry) CreateTask(params CreateParams) (*models.Task, error) {
	if !params.Type.Valid() {
		return nil, fmt.Errorf("unknown task type %q", params.Type)
	}
	name := params.Name
	if name == "" {
		name = defaultName(params.Type, params.Seed)
	}
	now := r.now()
	task := &models.Task{
		ID:             uuid.New().String(),
		Type:           params.Type,
		Name:           name,
		CreatedAt:      now,
		UpdatedAt:      now,
		TargetLanguage: params.TargetLanguage,
	}
	switch params.Type {
	case models.TaskTypeMining:
		task.Mining = models.NewMiningState(params.Seed)
	case models.TaskTypeBatch:
		task.Batch = models.NewBatchState(params.Seed)
	case models.TaskTypeDeepDive:
		task.DeepDive = models.NewDeepDiveState(params.Seed)
	case models.TaskTypeArticle:
		task.Article = models.NewArticleState(params.Seed)
	}
	return task, nil
}

// AddTask creates a task, inserts it, makes it the active one and hydrates
// it into the view-state. The previously active task is snapshotted first.
func (r *Registry) AddTask(params CreateParams) (*models.Task, error) {
	task, err := r.CreateTask(params)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if len(r.tasks) >= r.maxTasks {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w (max %d)", ErrCapacityExceeded, r.maxTasks)
	}
	r.snapshotActiveLocked()
	r.tasks = append(r.tasks, task)
	r.activateLocked(task)
	r.mu.Unlock()

	r.fire(ChangeTaskList)
	return CloneTask(task), nil
}

// SwitchTask makes the identified task the displayed one. Switching to the
// already-active task is a no-op, as is an unknown id.
func (r *Registry) SwitchTask(id string) {
	r.mu.Lock()
	if id == r.activeID {
		r.mu.Unlock()
		return
	}
	target := r.findLocked(id)
	if target == nil {
		r.mu.Unlock()
		return
	}
	r.snapshotActiveLocked()
	r.activateLocked(target)
	r.mu.Unlock()

	r.fire(ChangeActive)
}

// DeleteTask removes a task. A task with a running driver cannot be
// deleted. Deleting the active task promotes the most recently updated
// survivor; with none left the view returns to the empty display.
func (r *Registry) DeleteTask(id string) error {
	r.mu.Lock()
	target := r.findLocked(id)
	if target == nil {
		r.mu.Unlock()
		return ErrTaskNotFound
	}
	if target.Running() {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskRunning, target.Name)
	}

	wasActive := id == r.activeID
	kept := r.tasks[:0]
	for _, t := range r.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	r.tasks = kept

	if wasActive {
		r.activeID = ""
		r.view = EmptyViewState()
		if next := r.newestLocked(); next != nil {
			r.activateLocked(next)
		}
	}
	r.mu.Unlock()

	r.fire(ChangeTaskList)
	return nil
}

// RenameTask updates a task's display name. Blank names are ignored.
func (r *Registry) RenameTask(id, name string) {
	if name == "" {
		return
	}
	r.mu.Lock()
	target := r.findLocked(id)
	if target == nil {
		r.mu.Unlock()
		return
	}
	target.Name = name
	target.UpdatedAt = r.now()
	r.mu.Unlock()

	r.fire(ChangeState)
}

// ActiveID returns the id of the displayed task, or "".
func (r *Registry) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// View returns a copy of the shared view-state.
func (r *Registry) View() ViewState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// Get returns a deep copy of one task record.
func (r *Registry) Get(id string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target := r.findLocked(id)
	if target == nil {
		return nil, ErrTaskNotFound
	}
	if target.ID == r.activeID {
		return Snapshot(r.view, target), nil
	}
	return CloneTask(target), nil
}

// Tasks returns deep copies of every task in insertion order, with the
// active one reflecting the live view-state.
func (r *Registry) Tasks() []*models.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if t.ID == r.activeID {
			out = append(out, Snapshot(r.view, t))
		} else {
			out = append(out, CloneTask(t))
		}
	}
	return out
}

// Len returns the number of tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Restore replaces the registry contents from persisted records. Running
// flags are forced down: no driver survives a process restart, so a task
// persisted mid-run comes back stopped with its partial results intact.
func (r *Registry) Restore(tasks []*models.Task, activeID string) {
	r.mu.Lock()
	r.tasks = r.tasks[:0]
	r.activeID = ""
	r.view = EmptyViewState()
	for _, t := range tasks {
		if t == nil || t.ID == "" || !t.Type.Valid() {
			continue
		}
		if len(r.tasks) >= r.maxTasks {
			break
		}
		c := CloneTask(t)
		c.EnsureSubState()
		c.IsActive = false
		forceStopped(c)
		r.tasks = append(r.tasks, c)
	}
	if target := r.findLocked(activeID); target != nil {
		r.activateLocked(target)
	} else if next := r.newestLocked(); next != nil {
		r.activateLocked(next)
	}
	r.mu.Unlock()

	r.fire(ChangeTaskList)
}

// --- internal helpers, caller holds mu ---

// snapshotActiveLocked writes the live view-state back into the currently
// active record and clears its active flag.
func (r *Registry) snapshotActiveLocked() {
	if r.activeID == "" {
		return
	}
	for i, t := range r.tasks {
		if t.ID == r.activeID {
			snap := Snapshot(r.view, t)
			snap.IsActive = false
			r.tasks[i] = snap
			break
		}
	}
	r.activeID = ""
}

// activateLocked marks the target as the sole active task and hydrates it.
func (r *Registry) activateLocked(target *models.Task) {
	for _, t := range r.tasks {
		t.IsActive = t.ID == target.ID
	}
	r.activeID = target.ID
	r.view = Hydrate(target)
}

func (r *Registry) findLocked(id string) *models.Task {
	if id == "" {
		return nil
	}
	for _, t := range r.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// newestLocked returns the remaining task with the greatest UpdatedAt.
func (r *Registry) newestLocked() *models.Task {
	var newest *models.Task
	for _, t := range r.tasks {
		if newest == nil || t.UpdatedAt.After(newest.UpdatedAt) {
			newest = t
		}
	}
	return newest
}

func (r *Registry) fire(kind ChangeKind) {
	if r.onChange != nil {
		r.onChange(kind)
	}
}

func forceStopped(t *models.Task) {
	set := func(running *bool, status *models.JobStatus) {
		if *running {
			*running = false
			*status = models.JobStatusStopped
		}
	}
	if t.Mining != nil {
		set(&t.Mining.Running, &t.Mining.Status)
	}
	if t.Batch != nil {
		set(&t.Batch.Running, &t.Batch.Status)
	}
	if t.DeepDive != nil {
		set(&t.DeepDive.Running, &t.DeepDive.Status)
	}
	if t.Article != nil {
		set(&t.Article.Running, &t.Article.Status)
	}
}

func defaultName(taskType models.TaskType, seed string) string {
	label := string(taskType)
	if seed != "" {
		// Truncate on a rune boundary; seeds are often non-ASCII.
		if runes := []rune(seed); len(runes) > 24 {
			seed = string(runes[:24])
		}
		return fmt.Sprintf("%s: %s", label, seed)
	}
	return label
}
