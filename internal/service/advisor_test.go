package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor/internal/domain"
	"advisor/internal/embedding/tfidf"
	"advisor/internal/llm"
	"advisor/internal/planner"
	"advisor/internal/store/memory"
)

func newTestStore(t *testing.T) domain.KnowledgeStore {
	t.Helper()
	s := memory.NewStore(tfidf.NewEmbedder())
	chunks := []domain.Chunk{
		{DocumentID: "d1", ChunkID: "d1:0", Source: "focus.txt", Text: "To focus while studying, remove distractions and take regular breaks.", Index: 0},
		{DocumentID: "d1", ChunkID: "d1:1", Source: "focus.txt", Text: "Short study sessions with clear goals improve retention.", Index: 1},
		{DocumentID: "d2", ChunkID: "d2:0", Source: "algebra.txt", Text: "Algebra is learned through regular problem practice.", Index: 0},
	}
	require.NoError(t, s.Build(context.Background(), chunks))
	return s
}

func newTestService(t *testing.T, gen domain.Generator) *Service {
	t.Helper()
	composer := planner.New(planner.Config{Strategy: planner.StrategyTemplate}, gen, nil)
	return New(newTestStore(t), gen, composer, Config{}, nil)
}

func TestClassify(t *testing.T) {
	svc := newTestService(t, llm.NewMock("ok"))

	assert.Equal(t, domain.IntentScheduling, svc.Classify("I want a weekly plan for algebra"))
	assert.Equal(t, domain.IntentKnowledge, svc.Classify("How can I focus while studying?"))
	assert.Equal(t, domain.IntentScheduling, svc.Classify("WEEKLY SCHEDULE for biology please"))
}

func TestAskKnowledgeGroundsPromptInRetrievedContext(t *testing.T) {
	gen := llm.NewMock("Remove distractions and take breaks.")
	svc := newTestService(t, gen)
	state := domain.NewSessionState()

	reply := svc.Ask(context.Background(), state, "How can I focus while studying?")
	require.NoError(t, reply.Err)
	assert.Equal(t, domain.IntentKnowledge, reply.Intent)
	assert.Equal(t, "Remove distractions and take breaks.", reply.Text)

	require.Len(t, gen.Calls, 1)
	prompt := gen.Calls[0]
	assert.Contains(t, prompt, "How can I focus while studying?")
	assert.Contains(t, prompt, "remove distractions")
	assert.Contains(t, prompt, "Detailed answer:")

	require.Len(t, state.History, 2)
	assert.Equal(t, domain.RoleUser, state.History[0].Role)
	assert.Equal(t, domain.RoleAssistant, state.History[1].Role)
}

func TestAskNeverReturnsPromptPrefix(t *testing.T) {
	// The mock backend echoes the prompt, as some completion models do.
	gen := &llm.Mock{Replies: []string{"Silence your phone."}, Echo: true}
	svc := newTestService(t, gen)
	state := domain.NewSessionState()

	question := "How can I focus while studying?"
	reply := svc.Ask(context.Background(), state, question)
	require.NoError(t, reply.Err)
	assert.False(t, strings.HasPrefix(reply.Text, "Question:"))
	assert.Equal(t, "Silence your phone.", reply.Text)
}

func TestAskSchedulingStoresPlanByWeek(t *testing.T) {
	svc := newTestService(t, llm.NewMock("unused"))
	state := domain.NewSessionState()

	reply := svc.Ask(context.Background(), state, "weekly schedule for biology")
	require.NoError(t, reply.Err)
	assert.Equal(t, domain.IntentScheduling, reply.Intent)

	_, wantWeek := time.Now().ISOWeek()
	assert.Equal(t, fmt.Sprint(wantWeek), reply.Week)
	assert.Equal(t, reply.Text, state.Plans[reply.Week])
	assert.Contains(t, reply.Text, "biology")
	// The exchange is recorded like any other turn.
	require.Len(t, state.History, 2)
}

func TestAskSchedulingOverwritesSameWeek(t *testing.T) {
	svc := newTestService(t, llm.NewMock("unused"))
	state := domain.NewSessionState()

	first := svc.Ask(context.Background(), state, "weekly schedule for biology")
	second := svc.Ask(context.Background(), state, "weekly schedule for algebra")
	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	require.Equal(t, first.Week, second.Week)

	require.Len(t, state.Plans, 1)
	assert.Contains(t, state.Plans[second.Week], "algebra")
}

func TestAskContainsGenerationFailure(t *testing.T) {
	gen := &llm.Mock{Err: fmt.Errorf("%w: connection refused", domain.ErrModelUnavailable)}
	svc := newTestService(t, gen)
	state := domain.NewSessionState()

	reply := svc.Ask(context.Background(), state, "How can I focus while studying?")
	require.ErrorIs(t, reply.Err, domain.ErrModelUnavailable)
	assert.Contains(t, reply.Text, "Sorry")

	// A failed attempt is still recorded.
	require.Len(t, state.History, 2)
	assert.Equal(t, reply.Text, state.History[1].Content)
}

func TestAskContinuesAfterFailure(t *testing.T) {
	gen := &llm.Mock{Err: fmt.Errorf("%w: boom", domain.ErrGenerationFailed)}
	svc := newTestService(t, gen)
	state := domain.NewSessionState()

	_ = svc.Ask(context.Background(), state, "first question about focus")

	gen.Err = nil
	gen.Replies = []string{"All good now."}
	reply := svc.Ask(context.Background(), state, "second question about focus")
	require.NoError(t, reply.Err)
	assert.Equal(t, "All good now.", reply.Text)
	assert.Len(t, state.History, 4)
}

func TestClearHistoryClearsMemoryToo(t *testing.T) {
	svc := newTestService(t, llm.NewMock("an answer"))
	state := domain.NewSessionState()

	for i := 0; i < 8; i++ {
		_ = svc.Ask(context.Background(), state, fmt.Sprintf("question number %d about studying habits and focus.", i))
	}
	require.NotEmpty(t, state.History)
	require.NotEmpty(t, svc.Memory(state))

	svc.ClearHistory(state)
	assert.Empty(t, state.History)
	assert.Empty(t, svc.Memory(state))
	assert.Empty(t, state.Summary)
}

func TestMemoryCompaction(t *testing.T) {
	svc := newTestService(t, llm.NewMock("an answer about studying"))
	state := domain.NewSessionState()

	for i := 0; i < 8; i++ {
		_ = svc.Ask(context.Background(), state, fmt.Sprintf("question number %d about studying habits.", i))
	}
	// 16 turns with a window of 6 means older turns were folded away.
	assert.Equal(t, 16, len(state.History))
	assert.Equal(t, 10, state.Compacted)
	assert.NotEmpty(t, state.Summary)

	mem := svc.Memory(state)
	assert.Contains(t, mem, "question number 7")
}

func TestAskEmptyUtterance(t *testing.T) {
	svc := newTestService(t, llm.NewMock("unused"))
	state := domain.NewSessionState()

	reply := svc.Ask(context.Background(), state, "   ")
	assert.NotEmpty(t, reply.Text)
	assert.Empty(t, state.History)
}
