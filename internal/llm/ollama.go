package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"advisor/internal/domain"
)

// ollamaClient talks to a local Ollama server through its native
// /api/generate endpoint.
type ollamaClient struct {
	baseURL  string
	model    string
	client   *http.Client
	defaults domain.GenerateOptions
	log      *zap.Logger
}

func newOllamaClient(cfg Config, log *zap.Logger) (*ollamaClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "llama3.2"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &ollamaClient{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
		defaults: domain.GenerateOptions{
			MaxNewTokens: cfg.MaxNewTokens,
			Temperature:  cfg.Temperature,
			Sample:       cfg.Sample,
		},
		log: log,
	}, nil
}

func (c *ollamaClient) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	opts = withDefaults(opts, c.defaults)
	options := map[string]any{}
	if opts.MaxNewTokens > 0 {
		options["num_predict"] = opts.MaxNewTokens
	}
	if opts.Sample {
		options["temperature"] = opts.Temperature
	} else {
		options["temperature"] = 0
	}
	body := map[string]any{
		"model":   c.model,
		"prompt":  prompt,
		"stream":  false,
		"options": options,
	}
	data, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: ollama at %s: %v", domain.ErrModelUnavailable, c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: ollama returned %s", domain.ErrModelUnavailable, resp.Status)
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: malformed ollama response: %v", domain.ErrGenerationFailed, err)
	}
	c.log.Debug("ollama generation completed",
		zap.String("model", c.model),
		zap.Int("chars", len(out.Response)))
	return finalize(prompt, out.Response), nil
}
