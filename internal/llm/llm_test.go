package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor/internal/domain"
)

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "transformer9000"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transformer9000")
	assert.Contains(t, err.Error(), "ollama")
	assert.Contains(t, err.Error(), "openai")
}

func TestFinalizeStripsEchoedPrompt(t *testing.T) {
	prompt := "Question: how do I focus?\n\nDetailed answer:"
	raw := prompt + " Take regular breaks and silence notifications."

	out := finalize(prompt, raw)
	assert.False(t, strings.HasPrefix(out, prompt))
	assert.Equal(t, "Take regular breaks and silence notifications.", out)
}

func TestFinalizeEmptyContinuation(t *testing.T) {
	assert.Equal(t, FallbackAnswer, finalize("prompt", "prompt"))
	assert.Equal(t, FallbackAnswer, finalize("prompt", "   "))
}

func TestOllamaGenerateStripsEcho(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req struct {
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		// Backend echoes the prompt before the continuation.
		_ = json.NewEncoder(w).Encode(map[string]string{
			"response": req.Prompt + " Study in short blocks.",
		})
	}))
	defer ts.Close()

	gen, err := New(Config{Backend: "ollama", BaseURL: ts.URL, Model: "llama3.2"}, nil)
	require.NoError(t, err)

	prompt := "How should I study?"
	out, err := gen.Generate(context.Background(), prompt, domain.GenerateOptions{MaxNewTokens: 50, Sample: true, Temperature: 0.7})
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(out, prompt))
	assert.Equal(t, "Study in short blocks.", out)
}

func TestOllamaGenerateAppliesConfiguredDefaults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Options map[string]any `json:"options"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(150), req.Options["num_predict"])
		assert.Equal(t, 0.4, req.Options["temperature"])
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	}))
	defer ts.Close()

	gen, err := New(Config{
		Backend:      "ollama",
		BaseURL:      ts.URL,
		MaxNewTokens: 150,
		Temperature:  0.4,
		Sample:       true,
	}, nil)
	require.NoError(t, err)

	// Zero per-call options fall back to the configured defaults.
	_, err = gen.Generate(context.Background(), "hello", domain.GenerateOptions{})
	require.NoError(t, err)
}

func TestOllamaGenerateEmptyResponseFallsBack(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"response": ""})
	}))
	defer ts.Close()

	gen, err := New(Config{Backend: "ollama", BaseURL: ts.URL}, nil)
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), "hello", domain.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, FallbackAnswer, out)
}

func TestOllamaGenerateUnreachable(t *testing.T) {
	gen, err := New(Config{Backend: "ollama", BaseURL: "http://127.0.0.1:1"}, nil)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "hello", domain.GenerateOptions{})
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestOpenAIGenerate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]string{{"text": " Review every evening."}},
		})
	}))
	defer ts.Close()

	t.Setenv("TEST_LLM_KEY", "test-key")
	gen, err := New(Config{Backend: "openai", BaseURL: ts.URL, APIKeyEnv: "TEST_LLM_KEY"}, nil)
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), "When to review?", domain.GenerateOptions{MaxNewTokens: 20})
	require.NoError(t, err)
	assert.Equal(t, "Review every evening.", out)
}

func TestOpenAIGenerateNoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer ts.Close()

	t.Setenv("TEST_LLM_KEY", "test-key")
	gen, err := New(Config{Backend: "openai", BaseURL: ts.URL, APIKeyEnv: "TEST_LLM_KEY"}, nil)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "hello", domain.GenerateOptions{})
	require.ErrorIs(t, err, domain.ErrGenerationFailed)
}
