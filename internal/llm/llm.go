package llm

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"advisor/internal/domain"
)

// FallbackAnswer is returned in place of an empty continuation so the
// caller never silently receives nothing.
const FallbackAnswer = "[no answer generated]"

// Config selects and configures the generation backend.
type Config struct {
	Backend      string
	Model        string
	BaseURL      string
	APIKeyEnv    string
	Timeout      time.Duration
	MaxNewTokens int
	Temperature  float64
	Sample       bool
}

var validBackends = []string{"ollama", "openai"}

// New creates the configured Generator. An unknown backend selector is
// rejected with an error naming the valid choices.
func New(cfg Config, log *zap.Logger) (domain.Generator, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Backend {
	case "ollama", "":
		return newOllamaClient(cfg, log)
	case "openai":
		return newOpenAIClient(cfg, log)
	default:
		return nil, fmt.Errorf("invalid llm backend %q (valid: %s)",
			cfg.Backend, strings.Join(validBackends, ", "))
	}
}

// withDefaults fills unset per-call options from the configured backend
// defaults. A zero options struct means "use the defaults".
func withDefaults(opts, defaults domain.GenerateOptions) domain.GenerateOptions {
	if opts == (domain.GenerateOptions{}) {
		return defaults
	}
	if opts.MaxNewTokens <= 0 {
		opts.MaxNewTokens = defaults.MaxNewTokens
	}
	return opts
}

// finalize enforces the gateway contract on raw backend output: any
// echoed prompt prefix is stripped, and an empty continuation becomes
// the marked fallback string instead of empty text.
func finalize(prompt, raw string) string {
	out := raw
	if strings.HasPrefix(out, prompt) {
		out = out[len(prompt):]
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return FallbackAnswer
	}
	return out
}
