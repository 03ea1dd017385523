// Package tui provides the interactive terminal workbench for serpmine.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/serpmine/internal/auth"
	"github.com/fentz26/serpmine/internal/driver"
	"github.com/fentz26/serpmine/internal/export"
	"github.com/fentz26/serpmine/internal/logx"
	"github.com/fentz26/serpmine/internal/models"
	"github.com/fentz26/serpmine/internal/prompts"
	"github.com/fentz26/serpmine/internal/seoapi"
	"github.com/fentz26/serpmine/internal/session"
	"github.com/fentz26/serpmine/internal/store"
)

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#6366F1")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	fgColor        = lipgloss.Color("#F9FAFB")
	cyanColor      = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	selectedRowStyle = lipgloss.NewStyle().
				Background(primaryColor).
				Foreground(fgColor).
				Bold(true)
)

// refreshInterval paces the re-read of registry state while the UI is
// open, so background drivers show up without any push plumbing.
const refreshInterval = 500 * time.Millisecond

// Deps bundles the collaborators the workbench operates on.
type Deps struct {
	Registry *session.Registry
	Drivers  *driver.Manager
	Store    *store.Store
	Prompts  *prompts.Resolver
	API      *seoapi.Client
	Auth     *auth.Manager

	// DefaultLanguage seeds new tasks' target language.
	DefaultLanguage string
}

// App is the workbench TUI model.
type App struct {
	deps Deps

	input       textinput.Model
	suggestions *Suggestions
	renderer    *glamour.TermRenderer

	width  int
	height int

	tasks        []*models.Task
	view         session.ViewState
	message      string
	credits      int
	creditsKnown bool
	user         *auth.User
}

// New creates a workbench over the given collaborators.
func New(deps Deps) *App {
	ti := textinput.New()
	ti.Placeholder = "Type: new mining <seed> | start | stop | /help"
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 80

	var user *auth.User
	if deps.Auth != nil {
		user = deps.Auth.GetUser()
	}

	return &App{
		deps:        deps,
		input:       ti,
		suggestions: NewSuggestions(),
		user:        user,
	}
}

// Run starts the workbench.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.refresh(),
		a.fetchCredits(),
		a.tickCmd(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit

		case "tab":
			if a.suggestions.IsVisible() {
				if selected := a.suggestions.Selected(); selected != nil {
					a.input.SetValue(selected.Text + " ")
					a.input.CursorEnd()
					a.suggestions.Update("")
				}
				return a, nil
			}
			a.switchRelative(1)
			return a, a.refresh()

		case "shift+tab":
			a.switchRelative(-1)
			return a, a.refresh()

		case "up":
			if a.suggestions.IsVisible() {
				a.suggestions.Prev()
				return a, nil
			}

		case "down":
			if a.suggestions.IsVisible() {
				a.suggestions.Next()
				return a, nil
			}

		case "enter":
			if a.suggestions.IsVisible() {
				if selected := a.suggestions.Selected(); selected != nil {
					a.input.SetValue(selected.Text + " ")
					a.input.CursorEnd()
					a.suggestions.Update("")
				}
				return a, nil
			}
			cmd := strings.TrimSpace(a.input.Value())
			if cmd != "" {
				a.input.SetValue("")
				return a, a.executeCommand(cmd)
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 4
		a.renderer = nil // rebuilt lazily at the new width

	case refreshMsg:
		a.tasks = msg.tasks
		a.view = msg.view

	case tickMsg:
		cmds = append(cmds, a.refresh(), a.tickCmd())

	case creditsMsg:
		a.credits = msg.balance
		a.creditsKnown = true

	case commandResultMsg:
		a.message = msg.message
		cmds = append(cmds, a.refresh())

	case errMsg:
		a.message = "Error: " + msg.err.Error()
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	a.suggestions.Update(a.input.Value())
	if strings.HasPrefix(a.input.Value(), "@") {
		names := make([]string, 0, len(a.tasks))
		for _, t := range a.tasks {
			names = append(names, t.Name)
		}
		a.suggestions.SetTasks(names)
	}

	return a, tea.Batch(cmds...)
}

// switchRelative moves the active task forward or back in tab order.
func (a *App) switchRelative(delta int) {
	if len(a.tasks) < 2 {
		return
	}
	current := 0
	for i, t := range a.tasks {
		if t.ID == a.view.ActiveTaskID {
			current = i
			break
		}
	}
	next := (current + delta + len(a.tasks)) % len(a.tasks)
	a.deps.Registry.SwitchTask(a.tasks[next].ID)
}

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{
			tasks: a.deps.Registry.Tasks(),
			view:  a.deps.Registry.View(),
		}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a *App) fetchCredits() tea.Cmd {
	return func() tea.Msg {
		if a.deps.API == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		balance, err := a.deps.API.Credits(ctx)
		if err != nil {
			logx.Debug(logx.CatUI, "credits fetch failed", "err", err)
			return nil
		}
		return creditsMsg{balance}
	}
}

func (a *App) executeCommand(input string) tea.Cmd {
	input = strings.TrimPrefix(input, "/")
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}
	cmd := parts[0]
	args := parts[1:]

	return func() tea.Msg {
		switch cmd {
		case "help":
			return commandResultMsg{"Commands: new <type> <text> | switch <n> | rename <name> | delete | seed <text> | start | stop | continue | lang <code> | filter <level> | sort <field> | expand <n> | archive | export <path> | credits | prompt <node> [text] | quit"}

		case "new":
			if len(args) < 1 {
				return commandResultMsg{"Usage: new <mining|batch|dive|article> <text>"}
			}
			taskType, ok := parseTaskType(args[0])
			if !ok {
				return commandResultMsg{fmt.Sprintf("Unknown task type %q (mining, batch, dive, article)", args[0])}
			}
			seed := strings.Join(args[1:], " ")
			task, err := a.deps.Registry.AddTask(session.CreateParams{
				Type:           taskType,
				Seed:           seed,
				TargetLanguage: a.deps.DefaultLanguage,
			})
			if err != nil {
				if errors.Is(err, session.ErrCapacityExceeded) {
					return commandResultMsg{"Task limit reached. Delete a task to make room."}
				}
				return commandResultMsg{"Error: " + err.Error()}
			}
			return commandResultMsg{fmt.Sprintf("✓ Created %s", task.Name)}

		case "switch":
			if len(args) < 1 {
				return commandResultMsg{"Usage: switch <n|name>"}
			}
			id, ok := a.resolveTask(strings.Join(args, " "))
			if !ok {
				return commandResultMsg{"No such task"}
			}
			a.deps.Registry.SwitchTask(id)
			return commandResultMsg{""}

		case "rename":
			if len(args) < 1 {
				return commandResultMsg{"Usage: rename <name>"}
			}
			a.deps.Registry.RenameTask(a.view.ActiveTaskID, strings.Join(args, " "))
			return commandResultMsg{"✓ Renamed"}

		case "delete":
			id := a.view.ActiveTaskID
			if len(args) > 0 {
				var ok bool
				if id, ok = a.resolveTask(strings.Join(args, " ")); !ok {
					return commandResultMsg{"No such task"}
				}
			}
			if err := a.deps.Registry.DeleteTask(id); err != nil {
				if errors.Is(err, session.ErrTaskRunning) {
					return commandResultMsg{"Stop the task before deleting it."}
				}
				return commandResultMsg{"Error: " + err.Error()}
			}
			return commandResultMsg{"✓ Deleted"}

		case "seed", "input", "keyword", "topic":
			if len(args) < 1 {
				return commandResultMsg{"Usage: seed <text>"}
			}
			a.deps.Registry.SetInput(a.view.ActiveTaskID, strings.Join(args, " "))
			return commandResultMsg{"✓ Input set"}

		case "start":
			return a.startActive(false)

		case "continue":
			return a.startActive(true)

		case "stop":
			a.deps.Drivers.Stop(a.view.ActiveTaskID)
			return commandResultMsg{"Stopping..."}

		case "lang":
			if len(args) < 1 {
				return commandResultMsg{"Usage: lang <code>"}
			}
			a.deps.Registry.SetTargetLanguage(a.view.ActiveTaskID, args[0])
			return commandResultMsg{"✓ Language set to " + args[0]}

		case "filter":
			if len(args) < 1 {
				return commandResultMsg{"Usage: filter <all|high|medium|low>"}
			}
			level := strings.ToLower(args[0])
			if level == "all" {
				level = ""
			}
			a.deps.Registry.SetFilterLevel(a.view.ActiveTaskID, level)
			return commandResultMsg{""}

		case "sort":
			if len(args) < 1 {
				return commandResultMsg{"Usage: sort <round|probability|text>"}
			}
			a.deps.Registry.SetSortBy(a.view.ActiveTaskID, strings.ToLower(args[0]))
			return commandResultMsg{""}

		case "expand":
			if len(args) < 1 {
				a.deps.Registry.SetExpandedRow(a.view.ActiveTaskID, "")
				return commandResultMsg{""}
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return commandResultMsg{"Usage: expand <row number>"}
			}
			visible := visibleKeywords(a.view)
			if n < 1 || n > len(visible) {
				return commandResultMsg{fmt.Sprintf("Row %d out of range", n)}
			}
			rowID := visible[n-1].Text
			if a.view.ExpandedRowID == rowID {
				rowID = ""
			}
			a.deps.Registry.SetExpandedRow(a.view.ActiveTaskID, rowID)
			return commandResultMsg{""}

		case "archive":
			task, err := a.deps.Registry.Get(a.view.ActiveTaskID)
			if err != nil {
				return commandResultMsg{"No active task"}
			}
			if a.deps.Store == nil {
				return commandResultMsg{"Error: no store attached"}
			}
			archive, err := a.deps.Store.ArchiveTask(task)
			if err != nil {
				return commandResultMsg{"Error: " + err.Error()}
			}
			return commandResultMsg{fmt.Sprintf("✓ Archived as %s", archive.ID[:8])}

		case "export":
			if len(args) < 1 {
				return commandResultMsg{"Usage: export <path>"}
			}
			task, err := a.deps.Registry.Get(a.view.ActiveTaskID)
			if err != nil {
				return commandResultMsg{"No active task"}
			}
			if err := export.WriteCSV(task, args[0]); err != nil {
				return commandResultMsg{"Error: " + err.Error()}
			}
			return commandResultMsg{"✓ Exported to " + args[0]}

		case "credits":
			if a.deps.API == nil {
				return commandResultMsg{"Not connected"}
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			balance, err := a.deps.API.Credits(ctx)
			if err != nil {
				return commandResultMsg{"Error: " + err.Error()}
			}
			return creditsMsg{balance}

		case "prompt":
			return a.promptCommand(args)

		case "whoami":
			if a.user == nil {
				return commandResultMsg{"Not signed in. Run: serpmine login"}
			}
			return commandResultMsg{fmt.Sprintf("Signed in as %s (%s)", a.user.Username, a.user.Email)}

		case "logout":
			if a.deps.Auth == nil || a.user == nil {
				return commandResultMsg{"Not signed in"}
			}
			if err := a.deps.Auth.Logout(); err != nil {
				return commandResultMsg{"Error: " + err.Error()}
			}
			a.user = nil
			return commandResultMsg{"✓ Signed out"}

		case "q", "quit", "exit":
			return tea.Quit()

		default:
			return commandResultMsg{fmt.Sprintf("Unknown: %s (try /help)", cmd)}
		}
	}
}

// startActive dispatches the active task to its driver. resume restarts a
// terminal mining run in place.
func (a *App) startActive(resume bool) tea.Msg {
	id := a.view.ActiveTaskID
	task, err := a.deps.Registry.Get(id)
	if err != nil {
		return commandResultMsg{"No active task. Create one: new mining <seed>"}
	}

	switch task.Type {
	case models.TaskTypeMining:
		if resume {
			err = a.deps.Drivers.ContinueMining(id)
		} else {
			err = a.deps.Drivers.StartMining(id)
		}
	case models.TaskTypeBatch:
		err = a.deps.Drivers.StartBatch(id)
	case models.TaskTypeDeepDive:
		err = a.deps.Drivers.StartDeepDive(id)
	case models.TaskTypeArticle:
		err = a.deps.Drivers.StartArticle(id)
	}

	switch {
	case err == nil:
		return commandResultMsg{"✓ Started"}
	case errors.Is(err, session.ErrAlreadyRunning):
		return commandResultMsg{"Already running"}
	case errors.Is(err, session.ErrNotRestartable):
		return commandResultMsg{"Nothing to continue; use start"}
	case errors.Is(err, driver.ErrEmptySeed),
		errors.Is(err, driver.ErrEmptyBatch),
		errors.Is(err, driver.ErrEmptyKeyword),
		errors.Is(err, driver.ErrEmptyTopic):
		return commandResultMsg{"Set an input first: seed <text>"}
	default:
		return commandResultMsg{"Error: " + err.Error()}
	}
}

func (a *App) promptCommand(args []string) tea.Msg {
	if len(args) == 0 {
		return commandResultMsg{"Nodes: " + strings.Join(prompts.Nodes(), ", ")}
	}
	node := args[0]
	if !prompts.Known(node) {
		return commandResultMsg{fmt.Sprintf("Unknown node %q", node)}
	}
	if len(args) == 1 {
		marker := ""
		if a.deps.Prompts.Overridden(node) {
			marker = " (overridden)"
		}
		return commandResultMsg{node + marker + ": " + a.deps.Prompts.Effective(node)}
	}

	prompt := strings.Join(args[1:], " ")
	a.deps.Prompts.Set(node, prompt)
	if a.deps.Store != nil {
		if _, err := a.deps.Store.SavePromptOverride(prompts.WorkflowID, node, prompt); err != nil {
			logx.ErrorErr(logx.CatUI, "prompt override save failed", err)
		}
	}
	return commandResultMsg{"✓ Override set for " + node}
}

// resolveTask maps a 1-based tab number or a name/id prefix to a task id.
func (a *App) resolveTask(ref string) (string, bool) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(a.tasks) {
			return a.tasks[n-1].ID, true
		}
		return "", false
	}
	lower := strings.ToLower(ref)
	for _, t := range a.tasks {
		if strings.HasPrefix(strings.ToLower(t.Name), lower) || strings.HasPrefix(t.ID, ref) {
			return t.ID, true
		}
	}
	return "", false
}

func parseTaskType(s string) (models.TaskType, bool) {
	switch strings.ToLower(s) {
	case "mining", "mine":
		return models.TaskTypeMining, true
	case "batch", "batch-translation":
		return models.TaskTypeBatch, true
	case "dive", "deep-dive", "deepdive":
		return models.TaskTypeDeepDive, true
	case "article", "article-generation":
		return models.TaskTypeArticle, true
	}
	return "", false
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

type refreshMsg struct {
	tasks []*models.Task
	view  session.ViewState
}

type commandResultMsg struct {
	message string
}

type errMsg struct {
	err error
}

type creditsMsg struct {
	balance int
}

type tickMsg time.Time
