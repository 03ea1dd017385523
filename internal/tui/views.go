package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/serpmine/internal/models"
	"github.com/fentz26/serpmine/internal/session"
)

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	// Header with signed-in user and credit balance
	userStatus := lipgloss.NewStyle().Foreground(mutedColor).Render("○ not signed in")
	if a.user != nil {
		userStatus = lipgloss.NewStyle().Foreground(successColor).Render("● " + a.user.Username)
	}
	creditStatus := ""
	if a.creditsKnown {
		creditStatus = lipgloss.NewStyle().Foreground(cyanColor).Render(fmt.Sprintf("[%d credits]", a.credits))
	}

	header := titleStyle.Render("⛏ SERPMINE Keyword Workbench")
	header += "  " + userStatus
	if creditStatus != "" {
		header += "  " + creditStatus
	}
	b.WriteString(header + "\n")
	b.WriteString(a.renderTabBar() + "\n")
	b.WriteString(strings.Repeat("─", max(1, a.width)) + "\n")

	contentHeight := a.height - 9
	if contentHeight < 5 {
		contentHeight = 5
	}
	b.WriteString(a.renderBody(contentHeight))

	// Message bar
	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	} else {
		b.WriteString("\n")
	}

	// Input box
	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(a.input.View()))

	if a.suggestions.IsVisible() {
		b.WriteString("\n")
		b.WriteString(a.suggestions.Render(a.width))
	}
	b.WriteString("\n")

	status := fmt.Sprintf(" Tasks: %d/%d | Tab:next task | Enter:command | /help | Ctrl+C:quit",
		len(a.tasks), session.DefaultMaxTasks)
	b.WriteString(statusBarStyle.Width(a.width).Render(status))

	return b.String()
}

// renderTabBar shows every task as a tab with a status glyph; the active
// one is highlighted.
func (a *App) renderTabBar() string {
	if len(a.tasks) == 0 {
		return helpStyle.Render("  No tasks. Type: new mining <seed>")
	}
	tabs := make([]string, 0, len(a.tasks))
	for i, t := range a.tasks {
		label := fmt.Sprintf("%d %s %s", i+1, statusGlyph(t), truncate(t.Name, 20))
		if t.ID == a.view.ActiveTaskID {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return strings.Join(tabs, " ")
}

func statusGlyph(t *models.Task) string {
	if t.Running() {
		return lipgloss.NewStyle().Foreground(primaryColor).Render("◐")
	}
	switch t.Status() {
	case models.JobStatusSucceeded:
		return lipgloss.NewStyle().Foreground(successColor).Render("●")
	case models.JobStatusStopped:
		return lipgloss.NewStyle().Foreground(warningColor).Render("■")
	case models.JobStatusFailed:
		return lipgloss.NewStyle().Foreground(errorColor).Render("✗")
	default:
		return lipgloss.NewStyle().Foreground(mutedColor).Render("○")
	}
}

func (a *App) renderBody(height int) string {
	if a.view.ActiveTaskID == "" {
		return "\n  Create a task to begin: new mining <seed>\n" +
			"  Types: mining, batch, dive, article\n"
	}

	var active *models.Task
	for _, t := range a.tasks {
		if t.ID == a.view.ActiveTaskID {
			active = t
			break
		}
	}
	if active == nil {
		return "\n  Loading...\n"
	}

	switch active.Type {
	case models.TaskTypeMining:
		return a.renderMining(height)
	case models.TaskTypeBatch:
		return a.renderBatch(height)
	case models.TaskTypeDeepDive:
		return a.renderDeepDive(height)
	case models.TaskTypeArticle:
		return a.renderArticle(height)
	}
	return ""
}

// --- Mining ---

func (a *App) renderMining(height int) string {
	v := a.view
	var b strings.Builder

	switch v.Step {
	case session.StepInput:
		b.WriteString(fmt.Sprintf("\n  Seed keyword: %s\n", emphasize(v.Seed, "(none, set with: seed <text>)")))
		b.WriteString(fmt.Sprintf("  Language: %s\n\n", v.TargetLanguage))
		b.WriteString(helpStyle.Render("  start  begin mining rounds") + "\n")

	case session.StepProgress:
		b.WriteString(fmt.Sprintf("\n  Mining %q — round %d\n\n", v.Seed, v.Round))
		b.WriteString(a.renderThoughts(3))
		b.WriteString(a.renderLogTail(v.MiningLog, height-8))
		b.WriteString("\n" + helpStyle.Render("  stop  halt after the current round") + "\n")

	case session.StepResults:
		b.WriteString(a.renderMiningResults(height))
	}
	return b.String()
}

func (a *App) renderThoughts(limit int) string {
	thoughts := a.view.Thoughts
	if len(thoughts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("  Agent reasoning:\n")
	start := max(0, len(thoughts)-limit)
	for _, th := range thoughts[start:] {
		b.WriteString(helpStyle.Render(fmt.Sprintf("    r%d: %s", th.Round, truncate(th.Text, max(20, a.width-12)))) + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (a *App) renderMiningResults(height int) string {
	v := a.view
	var b strings.Builder

	visible := visibleKeywords(v)
	summary := fmt.Sprintf("\n  %q — %d keywords over %d rounds", v.Seed, len(v.Keywords), v.Round)
	if v.FilterLevel != "" {
		summary += fmt.Sprintf(" (filter: %s, showing %d)", v.FilterLevel, len(visible))
	}
	b.WriteString(summary + "  " + a.renderOutcome(v.MiningStatus, v.MiningError) + "\n\n")

	if len(visible) == 0 {
		b.WriteString("  No keywords match the current filter.\n")
		return b.String()
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(cyanColor)
	b.WriteString("  " + headerStyle.Render(fmt.Sprintf("%-4s %-40s %-8s %-12s", "#", "KEYWORD", "ROUND", "PROBABILITY")) + "\n")

	rows := height - 8
	if rows < 3 {
		rows = 3
	}
	for i, kw := range visible {
		if i >= rows {
			b.WriteString(helpStyle.Render(fmt.Sprintf("  ... and %d more", len(visible)-rows)) + "\n")
			break
		}
		line := fmt.Sprintf("  %-4d %-40s %-8d %s", i+1, truncate(kw.Text, 40), kw.Round, probabilityBadge(kw.Probability))
		if kw.Text == v.ExpandedRowID {
			b.WriteString(selectedRowStyle.Render(line) + "\n")
			b.WriteString(a.renderExpandedKeyword(kw))
		} else {
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n" + helpStyle.Render("  filter <level> | sort <field> | expand <n> | continue | export <path>") + "\n")
	return b.String()
}

func (a *App) renderExpandedKeyword(kw models.Keyword) string {
	var b strings.Builder
	if kw.Reasoning != "" {
		b.WriteString(helpStyle.Render("       "+truncate(kw.Reasoning, max(20, a.width-10))) + "\n")
	}
	if kw.TopResultType != "" {
		b.WriteString(helpStyle.Render(fmt.Sprintf("       Top results: %s (%d total)", kw.TopResultType, kw.ResultCount)) + "\n")
	}
	for i, snippet := range kw.SerpSnippets {
		if i >= 3 {
			break
		}
		b.WriteString(helpStyle.Render("       • "+truncate(snippet, max(20, a.width-12))) + "\n")
	}
	return b.String()
}

// visibleKeywords applies the task's filter and sort settings.
func visibleKeywords(v session.ViewState) []models.Keyword {
	out := make([]models.Keyword, 0, len(v.Keywords))
	for _, kw := range v.Keywords {
		if v.FilterLevel != "" && !strings.EqualFold(string(kw.Probability), v.FilterLevel) {
			continue
		}
		out = append(out, kw)
	}

	switch v.SortBy {
	case "probability":
		sort.SliceStable(out, func(i, j int) bool {
			return probabilityRank(out[i].Probability) < probabilityRank(out[j].Probability)
		})
	case "text":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	case "round":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Round < out[j].Round })
	}
	return out
}

func probabilityRank(p models.Probability) int {
	switch p {
	case models.ProbabilityHigh:
		return 0
	case models.ProbabilityMedium:
		return 1
	case models.ProbabilityLow:
		return 2
	}
	return 3
}

func probabilityBadge(p models.Probability) string {
	switch p {
	case models.ProbabilityHigh:
		return lipgloss.NewStyle().Foreground(successColor).Bold(true).Render("High")
	case models.ProbabilityMedium:
		return lipgloss.NewStyle().Foreground(warningColor).Render("Medium")
	case models.ProbabilityLow:
		return lipgloss.NewStyle().Foreground(mutedColor).Render("Low")
	}
	return string(p)
}

// --- Batch ---

func (a *App) renderBatch(height int) string {
	v := a.view
	var b strings.Builder

	switch v.Step {
	case session.StepInput:
		lines := len(strings.Split(strings.TrimSpace(v.BatchInput), "\n"))
		if strings.TrimSpace(v.BatchInput) == "" {
			lines = 0
		}
		b.WriteString(fmt.Sprintf("\n  Keyword list: %d lines\n", lines))
		b.WriteString(fmt.Sprintf("  Language: %s\n\n", v.TargetLanguage))
		b.WriteString(helpStyle.Render("  input <keywords, comma or newline separated> | start") + "\n")

	case session.StepProgress:
		b.WriteString(fmt.Sprintf("\n  Translating and analyzing — %d of %d\n\n", v.Processed, v.Total))
		b.WriteString("  " + a.renderBar(v.Processed, v.Total) + "\n\n")
		b.WriteString(a.renderLogTail(v.BatchLog, height-8))

	case session.StepResults:
		b.WriteString(fmt.Sprintf("\n  %d results  %s\n\n", len(v.BatchResults), a.renderOutcome(v.BatchStatus, v.BatchError)))
		headerStyle := lipgloss.NewStyle().Bold(true).Foreground(cyanColor)
		b.WriteString("  " + headerStyle.Render(fmt.Sprintf("%-30s %-30s %-12s", "SOURCE", "TRANSLATED", "PROBABILITY")) + "\n")
		rows := height - 6
		for i, r := range v.BatchResults {
			if i >= rows {
				b.WriteString(helpStyle.Render(fmt.Sprintf("  ... and %d more", len(v.BatchResults)-rows)) + "\n")
				break
			}
			b.WriteString(fmt.Sprintf("  %-30s %-30s %s\n",
				truncate(r.Source, 30), truncate(r.Translated, 30), probabilityBadge(r.Probability)))
		}
		b.WriteString("\n" + helpStyle.Render("  export <path> writes the table as CSV") + "\n")
	}
	return b.String()
}

// --- Deep dive ---

func (a *App) renderDeepDive(height int) string {
	v := a.view
	var b strings.Builder

	switch v.Step {
	case session.StepInput:
		b.WriteString(fmt.Sprintf("\n  Keyword: %s\n", emphasize(v.DiveKeyword, "(none, set with: keyword <text>)")))
		b.WriteString(fmt.Sprintf("  Language: %s\n\n", v.TargetLanguage))
		b.WriteString(helpStyle.Render("  start  run the four-stage report") + "\n")

	case session.StepProgress:
		b.WriteString(fmt.Sprintf("\n  Deep dive: %q\n\n", v.DiveKeyword))
		b.WriteString("  " + a.renderBar(v.DiveProgress, 100) + fmt.Sprintf("  %d%%\n\n", v.DiveProgress))
		stages := []struct {
			label string
			pct   int
		}{
			{"Content strategy", 25},
			{"Core keywords", 50},
			{"SERP competition", 75},
			{"Ranking probability", 100},
		}
		for _, s := range stages {
			mark := "○"
			style := helpStyle
			if v.DiveProgress >= s.pct {
				mark = "●"
				style = lipgloss.NewStyle().Foreground(successColor)
			}
			b.WriteString("  " + style.Render(mark+" "+s.label) + "\n")
		}
		b.WriteString(a.renderLogTail(v.DiveLog, height-12))

	case session.StepResults:
		b.WriteString("\n  " + a.renderOutcome(v.DiveStatus, v.DiveError) + "\n")
		if v.Report != nil {
			b.WriteString(a.renderMarkdown(reportMarkdown(v.Report)))
		}
	}
	return b.String()
}

// reportMarkdown flattens the assembled report for the markdown renderer.
func reportMarkdown(r *models.DeepDiveReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Deep Dive: %s\n\n", r.Keyword)
	if r.RankingProbability != "" {
		fmt.Fprintf(&b, "**Ranking probability:** %s\n\n", r.RankingProbability)
	}
	if len(r.CoreKeywords) > 0 {
		b.WriteString("## Core Keywords\n\n")
		for _, kw := range r.CoreKeywords {
			fmt.Fprintf(&b, "- %s\n", kw)
		}
		b.WriteString("\n")
	}
	if len(r.SerpCompetition) > 0 {
		b.WriteString("## SERP Competition\n\n")
		for _, c := range r.SerpCompetition {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}
	if r.ContentOutline != "" {
		b.WriteString("## Content Outline\n\n")
		b.WriteString(r.ContentOutline)
		b.WriteString("\n")
	}
	return b.String()
}

// --- Article ---

func (a *App) renderArticle(height int) string {
	v := a.view
	var b strings.Builder

	switch v.Step {
	case session.StepInput:
		b.WriteString(fmt.Sprintf("\n  Topic: %s\n\n", emphasize(v.ArticleTopic, "(none, set with: topic <text>)")))
		b.WriteString(helpStyle.Render("  start  draft the article") + "\n")

	case session.StepProgress:
		b.WriteString(fmt.Sprintf("\n  Drafting article for %q...\n\n", v.ArticleTopic))
		b.WriteString(a.renderLogTail(v.ArticleLog, height-6))

	case session.StepResults:
		b.WriteString("\n  " + a.renderOutcome(v.ArticleStatus, v.ArticleError) + "\n")
		if v.Draft != "" {
			b.WriteString(a.renderMarkdown(v.Draft))
		}
	}
	return b.String()
}

// --- shared pieces ---

func (a *App) renderOutcome(status models.JobStatus, failure string) string {
	switch status {
	case models.JobStatusSucceeded:
		return lipgloss.NewStyle().Foreground(successColor).Render("✓ complete")
	case models.JobStatusStopped:
		return lipgloss.NewStyle().Foreground(warningColor).Render("■ stopped")
	case models.JobStatusFailed:
		return lipgloss.NewStyle().Foreground(errorColor).Render("✗ " + failure)
	}
	return ""
}

func (a *App) renderLogTail(log []models.LogEntry, limit int) string {
	if len(log) == 0 || limit <= 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("  Activity:\n")
	start := max(0, len(log)-limit)
	for _, entry := range log[start:] {
		b.WriteString(helpStyle.Render(fmt.Sprintf("    %s %s",
			entry.At.Local().Format("15:04:05"),
			truncate(entry.Message, max(20, a.width-16)))) + "\n")
	}
	return b.String()
}

func (a *App) renderBar(done, total int) string {
	width := 40
	if total <= 0 {
		total = 1
	}
	filled := done * width / total
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(secondaryColor).Render(bar)
}

// renderMarkdown renders report/draft markdown through glamour, falling
// back to the raw text if the renderer cannot be built.
func (a *App) renderMarkdown(md string) string {
	if a.renderer == nil {
		wrap := a.width - 4
		if wrap < 40 {
			wrap = 40
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return "\n" + md + "\n"
		}
		a.renderer = r
	}
	out, err := a.renderer.Render(md)
	if err != nil {
		return "\n" + md + "\n"
	}
	return out
}

func emphasize(value, placeholder string) string {
	if value == "" {
		return helpStyle.Render(placeholder)
	}
	return lipgloss.NewStyle().Bold(true).Render(value)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	if limit <= 3 {
		return s[:limit]
	}
	return s[:limit-3] + "..."
}
