// Package store provides SQLite-backed persistence for serpmine: the
// serialized task workspace, archives of completed sessions and the local
// mirror of workflow prompt overrides.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fentz26/serpmine/internal/models"
)

// workspaceKey is the single-row key the live workspace blob is stored
// under.
const workspaceKey = "default"

// Store provides access to the serpmine SQLite database.
type Store struct {
	db *sql.DB
}

// Workspace is the persisted shape of the task registry.
type Workspace struct {
	Tasks        []*models.Task `json:"tasks"`
	ActiveTaskID string         `json:"active_task_id,omitempty"`
	SavedAt      time.Time      `json:"saved_at"`
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workspaces (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		saved_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS archives (
		id TEXT PRIMARY KEY,
		task_type TEXT NOT NULL,
		name TEXT NOT NULL,
		payload TEXT NOT NULL,
		archived_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS prompt_overrides (
		id TEXT PRIMARY KEY,
		workflow_id TEXT NOT NULL,
		node TEXT NOT NULL,
		prompt TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (workflow_id, node)
	);

	CREATE INDEX IF NOT EXISTS idx_archives_task_type ON archives(task_type);
	CREATE INDEX IF NOT EXISTS idx_prompt_overrides_workflow ON prompt_overrides(workflow_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Workspace Operations ---

// SaveWorkspace serializes and upserts the live workspace blob.
func (s *Store) SaveWorkspace(ws *Workspace) error {
	ws.SavedAt = time.Now().UTC()
	payload, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO workspaces (key, payload, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		workspaceKey, string(payload), ws.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert workspace: %w", err)
	}
	return nil
}

// LoadWorkspace returns the persisted workspace, or nil if none exists.
func (s *Store) LoadWorkspace() (*Workspace, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM workspaces WHERE key = ?`, workspaceKey,
	).Scan(&payload)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query workspace: %w", err)
	}

	var ws Workspace
	if err := json.Unmarshal([]byte(payload), &ws); err != nil {
		return nil, fmt.Errorf("decode workspace: %w", err)
	}
	return &ws, nil
}

// --- Archive Operations ---

// ArchiveTask stores a completed session's results as a historical record
// independent of the live workspace.
func (s *Store) ArchiveTask(task *models.Task) (*models.Archive, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode archive payload: %w", err)
	}

	archive := &models.Archive{
		ID:         uuid.New().String(),
		TaskType:   task.Type,
		Name:       task.Name,
		Payload:    string(payload),
		ArchivedAt: time.Now().UTC(),
	}

	_, err = s.db.Exec(
		`INSERT INTO archives (id, task_type, name, payload, archived_at) VALUES (?, ?, ?, ?, ?)`,
		archive.ID, archive.TaskType, archive.Name, archive.Payload, archive.ArchivedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert archive: %w", err)
	}
	return archive, nil
}

// ListArchives returns archives, newest first, optionally filtered by
// task type.
func (s *Store) ListArchives(taskType string) ([]models.Archive, error) {
	query := `SELECT id, task_type, name, payload, archived_at FROM archives`
	var args []interface{}

	if taskType != "" {
		query += ` WHERE task_type = ?`
		args = append(args, taskType)
	}
	query += ` ORDER BY archived_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query archives: %w", err)
	}
	defer rows.Close()

	var archives []models.Archive
	for rows.Next() {
		var a models.Archive
		if err := rows.Scan(&a.ID, &a.TaskType, &a.Name, &a.Payload, &a.ArchivedAt); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		archives = append(archives, a)
	}
	return archives, rows.Err()
}

// GetArchive retrieves one archive by ID, or nil if absent.
func (s *Store) GetArchive(id string) (*models.Archive, error) {
	var a models.Archive
	err := s.db.QueryRow(
		`SELECT id, task_type, name, payload, archived_at FROM archives WHERE id = ?`, id,
	).Scan(&a.ID, &a.TaskType, &a.Name, &a.Payload, &a.ArchivedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	return &a, nil
}

// DeleteArchive removes one archive.
func (s *Store) DeleteArchive(id string) error {
	_, err := s.db.Exec(`DELETE FROM archives WHERE id = ?`, id)
	return err
}

// --- Prompt Override Operations ---

// SavePromptOverride upserts one workflow node's prompt override.
func (s *Store) SavePromptOverride(workflowID, node, prompt string) (*models.PromptOverride, error) {
	override := &models.PromptOverride{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Node:       node,
		Prompt:     prompt,
		UpdatedAt:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO prompt_overrides (id, workflow_id, node, prompt, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(workflow_id, node) DO UPDATE SET prompt = excluded.prompt, updated_at = excluded.updated_at`,
		override.ID, override.WorkflowID, override.Node, override.Prompt, override.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert prompt override: %w", err)
	}
	return override, nil
}

// ListPromptOverrides returns every override for a workflow.
func (s *Store) ListPromptOverrides(workflowID string) ([]models.PromptOverride, error) {
	rows, err := s.db.Query(
		`SELECT id, workflow_id, node, prompt, updated_at FROM prompt_overrides WHERE workflow_id = ? ORDER BY node`,
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("query prompt overrides: %w", err)
	}
	defer rows.Close()

	var overrides []models.PromptOverride
	for rows.Next() {
		var o models.PromptOverride
		if err := rows.Scan(&o.ID, &o.WorkflowID, &o.Node, &o.Prompt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan prompt override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// DeletePromptOverride removes one node's override.
func (s *Store) DeletePromptOverride(workflowID, node string) error {
	_, err := s.db.Exec(
		`DELETE FROM prompt_overrides WHERE workflow_id = ? AND node = ?`,
		workflowID, node,
	)
	return err
}
