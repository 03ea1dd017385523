// Package prompts resolves the effective prompt for each workflow node:
// the user's override when one exists, the built-in default otherwise.
package prompts

import (
	"sort"
	"sync"

	"github.com/fentz26/serpmine/internal/models"
)

// WorkflowID is the single built-in research workflow.
const WorkflowID = "keyword-research"

// Built-in defaults per workflow node. Content here is a placeholder
// surface for operators to override; the node names are the contract.
var defaults = map[string]string{
	"generation":               "Generate {count} long-tail keyword candidates for {seed} in {language}, avoiding {prior}.",
	"analysis":                 "For each keyword, classify ranking probability as High, Medium or Low with reasoning.",
	"batch-analysis":           "Translate each keyword into {language} and attach search metrics.",
	"strategy":                 "Produce a content strategy outline for {keyword}.",
	"keyword-extraction":       "Extract the core keywords behind {keyword}.",
	"competitive-verification": "Summarize the SERP competition for each core keyword.",
	"probability-analysis":     "Estimate overall ranking probability for {keyword}.",
	"article":                  "Draft an article on {topic} with {sections} sections.",
}

// Resolver answers "effective prompt for node X" against a mutable
// override set.
type Resolver struct {
	mu        sync.RWMutex
	overrides map[string]string // node -> prompt
}

// NewResolver creates a resolver with no overrides applied.
func NewResolver() *Resolver {
	return &Resolver{overrides: make(map[string]string)}
}

// Nodes lists the known workflow node names.
func Nodes() []string {
	out := make([]string, 0, len(defaults))
	for node := range defaults {
		out = append(out, node)
	}
	sort.Strings(out)
	return out
}

// Known reports whether node is a built-in workflow node.
func Known(node string) bool {
	_, ok := defaults[node]
	return ok
}

// Apply replaces the resolver's override set.
func (r *Resolver) Apply(overrides []models.PromptOverride) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides = make(map[string]string, len(overrides))
	for _, o := range overrides {
		if o.Prompt != "" {
			r.overrides[o.Node] = o.Prompt
		}
	}
}

// Set installs or clears one node's override. An empty prompt clears.
func (r *Resolver) Set(node, prompt string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prompt == "" {
		delete(r.overrides, node)
		return
	}
	r.overrides[node] = prompt
}

// Effective returns the prompt to use for a node: override if present,
// else the built-in default. Unknown nodes resolve to "".
func (r *Resolver) Effective(node string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if prompt, ok := r.overrides[node]; ok {
		return prompt
	}
	return defaults[node]
}

// Overridden reports whether the node currently has an override.
func (r *Resolver) Overridden(node string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.overrides[node]
	return ok
}
