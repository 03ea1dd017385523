package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/fentz26/serpmine/internal/models"
)

func readRecords(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}
	return records
}

func TestWriteCSVMining(t *testing.T) {
	task := &models.Task{
		Type: models.TaskTypeMining,
		Name: "tractors",
		Mining: &models.MiningState{
			Keywords: []models.Keyword{
				{Text: "tractor tires", Round: 1, Probability: models.ProbabilityHigh, ResultCount: 120, Reasoning: "low competition"},
				{Text: "tractor seats", Round: 2, Probability: models.ProbabilityLow},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteCSV(task, path); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records := readRecords(t, path)
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "keyword" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][0] != "tractor tires" || records[1][2] != "High" {
		t.Errorf("row 1 = %v", records[1])
	}
	if records[2][1] != "2" {
		t.Errorf("round column = %q", records[2][1])
	}
}

func TestWriteCSVBatch(t *testing.T) {
	task := &models.Task{
		Type: models.TaskTypeBatch,
		Name: "spanish list",
		Batch: &models.BatchState{
			Results: []models.BatchResult{
				{Source: "palabra", Translated: "word", Probability: models.ProbabilityMedium, Volume: 900, Difficulty: 35},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "batch.csv")
	if err := WriteCSV(task, path); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records := readRecords(t, path)
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(records))
	}
	want := []string{"palabra", "word", "Medium", "900", "35"}
	for i, v := range want {
		if records[1][i] != v {
			t.Errorf("column %d = %q, want %q", i, records[1][i], v)
		}
	}
}

func TestWriteCSVDeepDiveAndArticle(t *testing.T) {
	dive := &models.Task{
		Type: models.TaskTypeDeepDive,
		DeepDive: &models.DeepDiveState{
			Report: &models.DeepDiveReport{
				Keyword:      "electric mowers",
				CoreKeywords: []string{"battery mower", "cordless mower"},
			},
		},
	}
	path := filepath.Join(t.TempDir(), "dive.csv")
	if err := WriteCSV(dive, path); err != nil {
		t.Fatalf("WriteCSV dive: %v", err)
	}
	records := readRecords(t, path)
	if records[1][1] != "electric mowers" {
		t.Errorf("keyword row = %v", records[1])
	}
	if records[3][1] != "battery mower; cordless mower" {
		t.Errorf("core keywords row = %v", records[3])
	}

	article := &models.Task{
		Type:    models.TaskTypeArticle,
		Article: &models.ArticleState{Topic: "mower care", Draft: "# Mower Care\n..."},
	}
	path = filepath.Join(t.TempDir(), "article.csv")
	if err := WriteCSV(article, path); err != nil {
		t.Fatalf("WriteCSV article: %v", err)
	}
	records = readRecords(t, path)
	if records[1][0] != "mower care" {
		t.Errorf("article row = %v", records[1])
	}
}

func TestWriteCSVRejectsEmptyTask(t *testing.T) {
	task := &models.Task{
		Type:   models.TaskTypeMining,
		Name:   "empty",
		Mining: models.NewMiningState("seed"),
	}
	path := filepath.Join(t.TempDir(), "never.csv")
	if err := WriteCSV(task, path); err == nil {
		t.Fatal("expected error for task without results")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("export file must not be created")
	}
	if err := WriteCSV(nil, path); err == nil {
		t.Fatal("expected error for nil task")
	}
}
