// Package export writes a task's results to CSV for use outside the
// workbench.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fentz26/serpmine/internal/models"
)

// WriteCSV writes the task's results to path. The column set follows the
// task type; a task without results is an error rather than an empty
// file.
func WriteCSV(task *models.Task, path string) error {
	if task == nil {
		return fmt.Errorf("no task")
	}
	if !task.HasResults() {
		return fmt.Errorf("task %q has no results to export", task.Name)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	switch task.Type {
	case models.TaskTypeMining:
		err = writeMining(w, task.Mining)
	case models.TaskTypeBatch:
		err = writeBatch(w, task.Batch)
	case models.TaskTypeDeepDive:
		err = writeDeepDive(w, task.DeepDive)
	case models.TaskTypeArticle:
		err = writeArticle(w, task.Article)
	default:
		err = fmt.Errorf("unknown task type %q", task.Type)
	}
	if err != nil {
		return err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func writeMining(w *csv.Writer, st *models.MiningState) error {
	if err := w.Write([]string{"keyword", "round", "probability", "top_result_type", "result_count", "reasoning"}); err != nil {
		return err
	}
	for _, kw := range st.Keywords {
		record := []string{
			kw.Text,
			strconv.Itoa(kw.Round),
			string(kw.Probability),
			kw.TopResultType,
			strconv.FormatInt(kw.ResultCount, 10),
			kw.Reasoning,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeBatch(w *csv.Writer, st *models.BatchState) error {
	if err := w.Write([]string{"source", "translated", "probability", "volume", "difficulty"}); err != nil {
		return err
	}
	for _, r := range st.Results {
		record := []string{
			r.Source,
			r.Translated,
			string(r.Probability),
			strconv.FormatInt(r.Volume, 10),
			strconv.Itoa(r.Difficulty),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeDeepDive(w *csv.Writer, st *models.DeepDiveState) error {
	if err := w.Write([]string{"field", "value"}); err != nil {
		return err
	}
	report := st.Report
	rows := [][]string{
		{"keyword", report.Keyword},
		{"ranking_probability", report.RankingProbability},
		{"core_keywords", strings.Join(report.CoreKeywords, "; ")},
		{"serp_competition", strings.Join(report.SerpCompetition, "; ")},
		{"content_outline", report.ContentOutline},
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeArticle(w *csv.Writer, st *models.ArticleState) error {
	if err := w.Write([]string{"topic", "draft"}); err != nil {
		return err
	}
	return w.Write([]string{st.Topic, st.Draft})
}
