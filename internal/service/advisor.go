package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"advisor/internal/domain"
	"advisor/internal/planner"
	"advisor/internal/summarizer"
)

const summaryMaxSentences = 5

// Config tunes the conversational pipeline.
type Config struct {
	TopK         int
	MemoryTurns  int
	MaxNewTokens int
	Temperature  float64
	Sample       bool
	Triggers     []string
}

// Reply is the typed outcome of one pipeline turn. Text is always a
// user-facing answer; when a contained failure produced an apology,
// Err carries the cause so callers can distinguish an unreachable
// backend from malformed output.
type Reply struct {
	Text   string
	Intent domain.Intent
	Week   string
	Err    error
}

// Service is the conversational RAG pipeline: it classifies each
// utterance, routes it to retrieval+generation or to the weekly plan
// composer, and folds the exchange into the session state. No internal
// error ever escapes Ask; the session always continues.
type Service struct {
	store      domain.KnowledgeStore
	gen        domain.Generator
	composer   domain.PlanComposer
	summarizer *summarizer.FrequencySummarizer
	cfg        Config
	now        func() time.Time
	log        *zap.Logger
}

// New creates the pipeline service.
func New(store domain.KnowledgeStore, gen domain.Generator, composer domain.PlanComposer, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.MemoryTurns <= 0 {
		cfg.MemoryTurns = 6
	}
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = 200
	}
	if len(cfg.Triggers) == 0 {
		cfg.Triggers = planner.DefaultTriggers()
	}
	return &Service{
		store:      store,
		gen:        gen,
		composer:   composer,
		summarizer: summarizer.NewFrequencySummarizer(),
		cfg:        cfg,
		now:        time.Now,
		log:        log,
	}
}

// Classify is a pure, deterministic intent decision: an utterance
// containing any trigger phrase (case-insensitive) is a scheduling
// request, everything else is a knowledge request.
func (s *Service) Classify(utterance string) domain.Intent {
	lower := strings.ToLower(utterance)
	for _, trigger := range s.cfg.Triggers {
		if strings.Contains(lower, strings.ToLower(trigger)) {
			return domain.IntentScheduling
		}
	}
	return domain.IntentKnowledge
}

// Ask processes one user utterance: classify, route, record, respond.
func (s *Service) Ask(ctx context.Context, state *domain.SessionState, utterance string) Reply {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Reply{Text: "Please enter a question or a scheduling request.", Intent: domain.IntentKnowledge}
	}

	intent := s.Classify(utterance)
	var text, week string
	var cause error
	switch intent {
	case domain.IntentScheduling:
		text, week, cause = s.composer.Compose(ctx, utterance, s.now())
		if cause == nil {
			state.SetPlan(week, text)
		} else {
			s.log.Warn("plan composition failed", zap.Error(cause))
		}
	default:
		text, cause = s.answer(ctx, state, utterance)
		if cause != nil {
			s.log.Warn("answer failed", zap.Error(cause))
			text = apologyFor(cause)
		}
	}

	// Record the turn even when it failed, so history reflects the attempt.
	state.Append(domain.RoleUser, utterance)
	state.Append(domain.RoleAssistant, text)
	s.compact(state)

	return Reply{Text: text, Intent: intent, Week: week, Err: cause}
}

// ClearHistory empties the conversation history and the conversational
// memory together; they must never diverge.
func (s *Service) ClearHistory(state *domain.SessionState) {
	state.Clear()
	s.log.Info("conversation history cleared")
}

// Memory renders the conversational memory used to condition
// generation: the running summary followed by the verbatim tail of
// history.
func (s *Service) Memory(state *domain.SessionState) string {
	var sb strings.Builder
	if state.Summary != "" {
		sb.WriteString(state.Summary)
		sb.WriteString("\n")
	}
	start := state.Compacted
	if tail := len(state.History) - s.cfg.MemoryTurns; tail > start {
		start = tail
	}
	for _, turn := range state.History[start:] {
		switch turn.Role {
		case domain.RoleUser:
			sb.WriteString("User: ")
		case domain.RoleAssistant:
			sb.WriteString("Assistant: ")
		}
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func (s *Service) answer(ctx context.Context, state *domain.SessionState, utterance string) (string, error) {
	results, err := s.store.Query(ctx, utterance, s.cfg.TopK)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}
	contexts := make([]string, 0, len(results))
	for _, r := range results {
		contexts = append(contexts, r.Chunk.Text)
	}
	prompt := buildPrompt(utterance, strings.Join(contexts, "\n"), s.Memory(state))

	text, err := s.gen.Generate(ctx, prompt, domain.GenerateOptions{
		MaxNewTokens: s.cfg.MaxNewTokens,
		Temperature:  s.cfg.Temperature,
		Sample:       s.cfg.Sample,
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// compact folds turns that fell out of the verbatim memory window into
// the running summary.
func (s *Service) compact(state *domain.SessionState) {
	foldEnd := len(state.History) - s.cfg.MemoryTurns
	if foldEnd <= state.Compacted {
		return
	}
	summary, err := s.summarizer.SummarizeTurns(state.Summary, state.History[state.Compacted:foldEnd], summaryMaxSentences)
	if err != nil {
		s.log.Warn("memory compaction failed", zap.Error(err))
		return
	}
	state.Summary = summary
	state.Compacted = foldEnd
}

func buildPrompt(question, contextBlock, memory string) string {
	var sb strings.Builder
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nRelated context:\n")
	sb.WriteString(contextBlock)
	if memory != "" {
		sb.WriteString("\n\nConversation so far:\n")
		sb.WriteString(memory)
	}
	sb.WriteString("\n\nDetailed answer:")
	return sb.String()
}

func apologyFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrModelUnavailable):
		return "Sorry, the language model is unavailable right now. Please try again in a moment."
	case errors.Is(err, domain.ErrGenerationFailed):
		return "Sorry, something went wrong while generating the answer. Please try again."
	default:
		return "Sorry, something went wrong while answering. Please try again."
	}
}
