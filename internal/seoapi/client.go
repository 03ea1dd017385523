// Package seoapi wraps the remote AI and SEO-data collaborators: keyword
// generation, ranking-probability analysis, batch translate+analyze,
// deep-dive workflow stages, credits and the workflow-configuration store.
package seoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/fentz26/serpmine/internal/auth"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 60 * time.Second

// analyzeCacheTTL bounds how long an analyzed keyword's classification is
// reused instead of re-requested.
const analyzeCacheTTL = 15 * time.Minute

// Sentinel errors the callers must distinguish from generic failures. The
// auth sentinels are shared so a stale stored token and a rejected request
// land on the same recovery path.
var (
	ErrNotLoggedIn         = auth.ErrNotAuthenticated
	ErrSessionExpired      = auth.ErrSessionExpired
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// TokenSource supplies and refreshes the access credential for
// authenticated endpoints.
type TokenSource interface {
	Token() (string, error)
	Refresh(ctx context.Context) error
}

// PromptSource resolves prompt overrides per workflow node. When one is
// attached, overridden prompts ride along with the matching requests.
type PromptSource interface {
	Effective(node string) string
	Overridden(node string) bool
}

// Client talks to the serpmine backend services.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	prompts    PromptSource
	cache      *gocache.Cache
}

// NewClient creates an API client. tokens may be nil for anonymous use;
// authenticated endpoints then fail with ErrNotLoggedIn.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultClientTimeout},
		tokens:     tokens,
		cache:      gocache.New(analyzeCacheTTL, 2*analyzeCacheTTL),
	}
}

// SetPromptSource attaches a prompt-override resolver to the client.
func (c *Client) SetPromptSource(prompts PromptSource) {
	c.prompts = prompts
}

// overridePrompt returns the override for a node, or "" when the node
// runs on its built-in default.
func (c *Client) overridePrompt(node string) string {
	if c.prompts == nil || !c.prompts.Overridden(node) {
		return ""
	}
	return c.prompts.Effective(node)
}

// apiError is the backend's error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// postJSON performs an authenticated POST, decoding the response into out.
// An expired session triggers one token refresh and retry; the original
// operation is never silently dropped.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	retried := false
	for {
		err := c.doPost(ctx, path, payload, out)
		if errors.Is(err, ErrSessionExpired) && !retried && c.tokens != nil {
			if refreshErr := c.tokens.Refresh(ctx); refreshErr != nil {
				return fmt.Errorf("refresh session: %w", refreshErr)
			}
			retried = true
			continue
		}
		return err
	}
}

func (c *Client) doPost(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return c.mapError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// mapError converts an HTTP failure into the client's error taxonomy.
func (c *Client) mapError(status int, raw []byte) error {
	var envelope apiError
	_ = json.Unmarshal(raw, &envelope)

	switch {
	case status == http.StatusUnauthorized && envelope.Code == "session_expired":
		return ErrSessionExpired
	case status == http.StatusUnauthorized:
		return ErrNotLoggedIn
	case status == http.StatusPaymentRequired || envelope.Code == "insufficient_credits":
		return ErrInsufficientCredits
	}
	if envelope.Message != "" {
		return fmt.Errorf("API error (%d): %s", status, envelope.Message)
	}
	return fmt.Errorf("API error (%d): %s", status, string(raw))
}
