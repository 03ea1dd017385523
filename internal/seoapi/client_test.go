package seoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticTokens is a TokenSource returning a fixed token. refreshed counts
// refresh calls; after a refresh the token changes.
type staticTokens struct {
	token     string
	refreshed atomic.Int32
	tokenErr  error
}

func (s *staticTokens) Token() (string, error) {
	if s.tokenErr != nil {
		return "", s.tokenErr
	}
	return s.token, nil
}

func (s *staticTokens) Refresh(ctx context.Context) error {
	s.refreshed.Add(1)
	s.token = "refreshed-token"
	return nil
}

func TestGenerateSendsAuthAndDecodes(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/keywords/generate", r.URL.Path)

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tractor parts", req.Seed)

		json.NewEncoder(w).Encode(GenerateResponse{
			Keywords: []string{"tractor tires", "tractor seats"},
			Thought:  "expanding by component",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &staticTokens{token: "tok-1"})
	resp, err := client.Generate(context.Background(), GenerateRequest{Seed: "tractor parts", Round: 1})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Len(t, resp.Keywords, 2)
	assert.Equal(t, "expanding by component", resp.Thought)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"session expired", http.StatusUnauthorized, `{"code":"session_expired"}`, ErrSessionExpired},
		{"unauthorized", http.StatusUnauthorized, `{"code":"bad_token"}`, ErrNotLoggedIn},
		{"payment required", http.StatusPaymentRequired, `{}`, ErrInsufficientCredits},
		{"credits code on 400", http.StatusBadRequest, `{"code":"insufficient_credits"}`, ErrInsufficientCredits},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, nil)
			_, err := client.Credits(context.Background())
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGenericErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"generation backend unavailable"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.Generate(context.Background(), GenerateRequest{Seed: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "generation backend unavailable")
}

func TestExpiredSessionRefreshesAndRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":"session_expired"}`))
			return
		}
		assert.Equal(t, "Bearer refreshed-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]int{"balance": 42})
	}))
	defer srv.Close()

	tokens := &staticTokens{token: "stale"}
	client := NewClient(srv.URL, tokens)

	balance, err := client.Credits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, balance)
	assert.Equal(t, int32(1), tokens.refreshed.Load())
	assert.Equal(t, int32(2), calls.Load())
}

func TestExpiredSessionDoesNotRetryTwice(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"session_expired"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &staticTokens{token: "stale"})
	_, err := client.Credits(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnalyzeCachesPerKeyword(t *testing.T) {
	var requested [][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Keywords []string `json:"keywords"`
			Language string   `json:"language"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requested = append(requested, req.Keywords)

		type kw struct {
			Text        string `json:"text"`
			Probability string `json:"probability"`
		}
		out := struct {
			Keywords []kw `json:"keywords"`
		}{}
		for _, k := range req.Keywords {
			out.Keywords = append(out.Keywords, kw{Text: k, Probability: "Medium"})
		}
		json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	ctx := context.Background()

	first, err := client.Analyze(ctx, []string{"alpha", "beta"}, "en")
	require.NoError(t, err)
	require.Len(t, first, 2)

	// alpha is cached; only gamma goes over the wire.
	second, err := client.Analyze(ctx, []string{"alpha", "gamma"}, "en")
	require.NoError(t, err)
	require.Len(t, second, 2)

	require.Len(t, requested, 2)
	assert.Equal(t, []string{"alpha", "beta"}, requested[0])
	assert.Equal(t, []string{"gamma"}, requested[1])

	// A different language is a different cache key.
	_, err = client.Analyze(ctx, []string{"alpha"}, "de")
	require.NoError(t, err)
	require.Len(t, requested, 3)
	assert.Equal(t, []string{"alpha"}, requested[2])
}

func TestAnalyzeAllCachedSkipsRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"keywords":[{"text":"alpha","probability":"High"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	ctx := context.Background()

	_, err := client.Analyze(ctx, []string{"alpha"}, "en")
	require.NoError(t, err)
	got, err := client.Analyze(ctx, []string{"alpha"}, "en")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(1), calls.Load())
}

// overrideSet is a PromptSource with one overridden node.
type overrideSet map[string]string

func (o overrideSet) Effective(node string) string { return o[node] }
func (o overrideSet) Overridden(node string) bool  { _, ok := o[node]; return ok }

func TestPromptOverrideRidesAlong(t *testing.T) {
	var gotHint string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotHint = req.Hint
		json.NewEncoder(w).Encode(GenerateResponse{Keywords: []string{"a"}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	client.SetPromptSource(overrideSet{"generation": "focus on purchase intent"})

	_, err := client.Generate(context.Background(), GenerateRequest{Seed: "s"})
	require.NoError(t, err)
	assert.Equal(t, "focus on purchase intent", gotHint)
}

func TestDefaultPromptStaysServerSide(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.NotContains(t, raw, "prompt_override")
		w.Write([]byte(`{"translated_results":[],"total":0}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	_, err := client.BatchAnalyze(context.Background(), "uno\ndos", "es")
	require.NoError(t, err)
}

func TestTokenErrorShortCircuits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the server without a token")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, &staticTokens{tokenErr: ErrNotLoggedIn})
	_, err := client.Credits(context.Background())
	require.ErrorIs(t, err, ErrNotLoggedIn)
}
