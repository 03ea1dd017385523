package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fentz26/serpmine/internal/export"
	"github.com/fentz26/serpmine/internal/models"
	"github.com/fentz26/serpmine/internal/session"
	"github.com/fentz26/serpmine/internal/store"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and manage saved workbench tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved tasks",
	RunE:  withWorkspace(runTaskList),
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task]",
	Short: "Show one task's record",
	Args:  cobra.ExactArgs(1),
	RunE:  withWorkspace(runTaskShow),
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete [task]",
	Short: "Delete a saved task",
	Args:  cobra.ExactArgs(1),
	RunE:  withWorkspace(runTaskDelete),
}

var taskRenameCmd = &cobra.Command{
	Use:   "rename [task] [name]",
	Short: "Rename a saved task",
	Args:  cobra.ExactArgs(2),
	RunE:  withWorkspace(runTaskRename),
}

var taskExportCmd = &cobra.Command{
	Use:   "export [task] [file.csv]",
	Short: "Write a task's results to a CSV file",
	Args:  cobra.ExactArgs(2),
	RunE:  withWorkspace(runTaskExport),
}

func init() {
	taskCmd.AddCommand(taskListCmd, taskShowCmd, taskDeleteCmd, taskRenameCmd, taskExportCmd)
}

// withWorkspace wires the store and hydrates the saved workspace into a
// registry before running the command body.
func withWorkspace(fn func(e *env, registry *session.Registry, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		defer e.close()
		if err := e.openStore(); err != nil {
			return err
		}
		registry, err := loadRegistry(e)
		if err != nil {
			return err
		}
		return fn(e, registry, args)
	}
}

// loadRegistry hydrates the saved workspace into a registry. Running flags
// persisted by a crash resolve to stopped, same as workbench startup.
func loadRegistry(e *env) (*session.Registry, error) {
	registry := session.NewRegistry()
	ws, err := e.store.LoadWorkspace()
	if err != nil {
		return nil, fmt.Errorf("load workspace: %w", err)
	}
	if ws != nil {
		registry.Restore(ws.Tasks, ws.ActiveTaskID)
	}
	return registry, nil
}

// saveRegistry writes the registry back to the store synchronously.
func saveRegistry(e *env, registry *session.Registry) error {
	ws := &store.Workspace{
		Tasks:        registry.Tasks(),
		ActiveTaskID: registry.ActiveID(),
		SavedAt:      time.Now(),
	}
	if err := e.store.SaveWorkspace(ws); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	return nil
}

// findTask resolves a task reference: 1-based list position, exact name,
// or id prefix.
func findTask(registry *session.Registry, ref string) (*models.Task, error) {
	tasks := registry.Tasks()
	for i, t := range tasks {
		if ref == fmt.Sprintf("%d", i+1) || t.Name == ref || strings.HasPrefix(t.ID, ref) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("no task matching %q", ref)
}

func runTaskList(e *env, registry *session.Registry, args []string) error {
	tasks := registry.Tasks()
	if len(tasks) == 0 {
		fmt.Println("No saved tasks")
		return nil
	}

	active := registry.ActiveID()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tTYPE\tSTATUS\tUPDATED")
	for i, t := range tasks {
		marker := ""
		if t.ID == active {
			marker = "*"
		}
		fmt.Fprintf(w, "%d%s\t%s\t%s\t%s\t%s\n",
			i+1, marker, t.Name, t.Type, t.Status(), t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runTaskShow(e *env, registry *session.Registry, args []string) error {
	task, err := findTask(registry, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:       %s\n", task.ID)
	fmt.Printf("Name:     %s\n", task.Name)
	fmt.Printf("Type:     %s\n", task.Type)
	fmt.Printf("Status:   %s\n", task.Status())
	fmt.Printf("Language: %s\n", task.TargetLanguage)
	fmt.Printf("Created:  %s\n", task.CreatedAt.Local().Format(time.RFC1123))
	fmt.Printf("Updated:  %s\n", task.UpdatedAt.Local().Format(time.RFC1123))

	switch task.Type {
	case models.TaskTypeMining:
		fmt.Printf("Seed:     %s\n", task.Mining.Seed)
		fmt.Printf("Rounds:   %d\n", task.Mining.Round)
		fmt.Printf("Keywords: %d\n", len(task.Mining.Keywords))
	case models.TaskTypeBatch:
		fmt.Printf("Progress: %d/%d\n", task.Batch.Processed, task.Batch.Total)
		fmt.Printf("Results:  %d\n", len(task.Batch.Results))
	case models.TaskTypeDeepDive:
		fmt.Printf("Keyword:  %s\n", task.DeepDive.Keyword)
		fmt.Printf("Progress: %d%%\n", task.DeepDive.Progress)
	case models.TaskTypeArticle:
		fmt.Printf("Topic:    %s\n", task.Article.Topic)
		fmt.Printf("Draft:    %d chars\n", len(task.Article.Draft))
	}
	return nil
}

func runTaskDelete(e *env, registry *session.Registry, args []string) error {
	task, err := findTask(registry, args[0])
	if err != nil {
		return err
	}
	if err := registry.DeleteTask(task.ID); err != nil {
		return err
	}
	if err := saveRegistry(e, registry); err != nil {
		return err
	}
	fmt.Printf("Deleted task %q\n", task.Name)
	return nil
}

func runTaskRename(e *env, registry *session.Registry, args []string) error {
	task, err := findTask(registry, args[0])
	if err != nil {
		return err
	}
	old := task.Name
	registry.RenameTask(task.ID, args[1])
	if err := saveRegistry(e, registry); err != nil {
		return err
	}
	fmt.Printf("Renamed %q to %q\n", old, args[1])
	return nil
}

func runTaskExport(e *env, registry *session.Registry, args []string) error {
	task, err := findTask(registry, args[0])
	if err != nil {
		return err
	}
	if err := export.WriteCSV(task, args[1]); err != nil {
		return err
	}
	fmt.Printf("Exported %q to %s\n", task.Name, args[1])
	return nil
}
