package seoapi

import "github.com/fentz26/serpmine/internal/models"

// GenerateRequest is the input to one candidate-generation call.
type GenerateRequest struct {
	Seed      string   `json:"seed"`
	Language  string   `json:"language"`
	Prior     []string `json:"prior_keywords,omitempty"`
	Round     int      `json:"round"`
	CountHint int      `json:"count_hint,omitempty"`
	Strategy  string   `json:"strategy,omitempty"`
	Hint      string   `json:"hint,omitempty"`
}

// GenerateResponse carries the generated candidates plus the model's raw
// reasoning text, shown in the thought stream.
type GenerateResponse struct {
	Keywords []string `json:"keywords"`
	Thought  string   `json:"raw_response_text,omitempty"`
}

// BatchAnalysis is the result of one batch translate+analyze call.
type BatchAnalysis struct {
	Results []models.BatchResult `json:"translated_results"`
	Total   int                  `json:"total"`
}

// StageResult is the output of one deep-dive workflow stage. Only the
// fields relevant to the requested node are populated.
type StageResult struct {
	Outline     string   `json:"content_outline,omitempty"`
	Keywords    []string `json:"core_keywords,omitempty"`
	Competition []string `json:"serp_competition_data,omitempty"`
	Probability string   `json:"ranking_probability,omitempty"`
}
