package seoapi

import (
	"context"
	"fmt"

	"github.com/fentz26/serpmine/internal/models"
)

// ListOverrides fetches the named prompt-override set for a workflow.
func (c *Client) ListOverrides(ctx context.Context, workflowID string) ([]models.PromptOverride, error) {
	payload := struct {
		WorkflowID string `json:"workflow_id"`
	}{WorkflowID: workflowID}

	var resp struct {
		Overrides []models.PromptOverride `json:"overrides"`
	}
	if err := c.postJSON(ctx, "/v1/workflows/overrides/list", payload, &resp); err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	return resp.Overrides, nil
}

// SaveOverride creates or replaces one node's prompt override.
func (c *Client) SaveOverride(ctx context.Context, override models.PromptOverride) error {
	if err := c.postJSON(ctx, "/v1/workflows/overrides/save", override, nil); err != nil {
		return fmt.Errorf("save override: %w", err)
	}
	return nil
}

// DeleteOverride removes one node's prompt override, restoring the
// built-in default.
func (c *Client) DeleteOverride(ctx context.Context, workflowID, node string) error {
	payload := struct {
		WorkflowID string `json:"workflow_id"`
		Node       string `json:"node"`
	}{WorkflowID: workflowID, Node: node}
	if err := c.postJSON(ctx, "/v1/workflows/overrides/delete", payload, nil); err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	return nil
}
