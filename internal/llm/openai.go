package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"advisor/internal/domain"
)

// openaiClient talks to an OpenAI-compatible /v1/completions endpoint.
type openaiClient struct {
	baseURL  string
	apiKey   string
	model    string
	client   *http.Client
	defaults domain.GenerateOptions
	log      *zap.Logger
}

func newOpenAIClient(cfg Config, log *zap.Logger) (*openaiClient, error) {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrModelUnavailable, keyEnv)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &openaiClient{
		baseURL: baseURL,
		apiKey:  key,
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

func (c *openaiClient) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	opts = withDefaults(opts, c.defaults)
	temperature := 0.0
	if opts.Sample {
		temperature = opts.Temperature
	}
	body := map[string]any{
		"model":       c.model,
		"prompt":      prompt,
		"temperature": temperature,
	}
	if opts.MaxNewTokens > 0 {
		body["max_tokens"] = opts.MaxNewTokens
	}
	data, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/completions", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domain.ErrModelUnavailable, c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: completions returned %s", domain.ErrModelUnavailable, resp.Status)
	}

	var out struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: malformed completions response: %v", domain.ErrGenerationFailed, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: completions response had no choices", domain.ErrGenerationFailed)
	}
	c.log.Debug("completion finished",
		zap.String("model", c.model),
		zap.Int("chars", len(out.Choices[0].Text)))
	return finalize(prompt, out.Choices[0].Text), nil
}
