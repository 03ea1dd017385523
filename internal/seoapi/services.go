package seoapi

import (
	"context"
	"fmt"

	"github.com/fentz26/serpmine/internal/models"
)

// Generate asks the generation service for candidate keywords.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Hint == "" {
		req.Hint = c.overridePrompt("generation")
	}
	var resp GenerateResponse
	if err := c.postJSON(ctx, "/v1/keywords/generate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Analyze classifies ranking likelihood for the given keywords. Results
// are cached per keyword+language for a short TTL so repeats inside a
// session skip the round trip.
func (c *Client) Analyze(ctx context.Context, keywords []string, language string) ([]models.Keyword, error) {
	out := make([]models.Keyword, 0, len(keywords))
	misses := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if cached, ok := c.cache.Get(analyzeKey(kw, language)); ok {
			out = append(out, cached.(models.Keyword))
		} else {
			misses = append(misses, kw)
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	payload := struct {
		Keywords []string `json:"keywords"`
		Language string   `json:"language"`
		Prompt   string   `json:"prompt_override,omitempty"`
	}{Keywords: misses, Language: language, Prompt: c.overridePrompt("analysis")}

	var resp struct {
		Keywords []models.Keyword `json:"keywords"`
	}
	if err := c.postJSON(ctx, "/v1/keywords/analyze", payload, &resp); err != nil {
		return nil, err
	}
	for _, kw := range resp.Keywords {
		c.cache.SetDefault(analyzeKey(kw.Text, language), kw)
	}
	out = append(out, resp.Keywords...)
	return out, nil
}

func analyzeKey(keyword, language string) string {
	return language + "\x00" + keyword
}

// BatchAnalyze translates and analyzes a whole pasted keyword list in one
// call.
func (c *Client) BatchAnalyze(ctx context.Context, keywordList, language string) (*BatchAnalysis, error) {
	payload := struct {
		KeywordListText string `json:"keyword_list_text"`
		TargetLanguage  string `json:"target_language"`
		Prompt          string `json:"prompt_override,omitempty"`
	}{KeywordListText: keywordList, TargetLanguage: language, Prompt: c.overridePrompt("batch-analysis")}

	var resp BatchAnalysis
	if err := c.postJSON(ctx, "/v1/keywords/batch-analyze", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeepDiveStage runs one named stage of the deep-dive workflow.
func (c *Client) DeepDiveStage(ctx context.Context, keyword, language, node string) (*StageResult, error) {
	payload := struct {
		Keyword  string `json:"keyword"`
		Language string `json:"language"`
		Node     string `json:"node"`
		Prompt   string `json:"prompt_override,omitempty"`
	}{Keyword: keyword, Language: language, Node: node, Prompt: c.overridePrompt(node)}

	var resp StageResult
	if err := c.postJSON(ctx, "/v1/deep-dive/stage", payload, &resp); err != nil {
		return nil, fmt.Errorf("deep-dive %s: %w", node, err)
	}
	return &resp, nil
}

// GenerateArticle drafts an article for a topic.
func (c *Client) GenerateArticle(ctx context.Context, topic, language string, sections int) (string, error) {
	payload := struct {
		Topic    string `json:"topic"`
		Language string `json:"language"`
		Sections int    `json:"sections,omitempty"`
		Prompt   string `json:"prompt_override,omitempty"`
	}{Topic: topic, Language: language, Sections: sections, Prompt: c.overridePrompt("article")}

	var resp struct {
		Draft string `json:"draft"`
	}
	if err := c.postJSON(ctx, "/v1/articles/generate", payload, &resp); err != nil {
		return "", err
	}
	return resp.Draft, nil
}
