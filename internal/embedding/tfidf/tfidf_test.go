package tfidf

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"algebra is the study of mathematical symbols",
	"biology studies living organisms and their cells",
	"good study habits improve focus and retention",
}

func TestEmbedRequiresPrepare(t *testing.T) {
	e := NewEmbedder()
	_, err := e.Embed(context.Background(), "algebra")
	require.Error(t, err)
}

func TestEmbedIsDeterministic(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))

	a, err := e.Embed(context.Background(), "study of algebra")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "study of algebra")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, e.Dimension())
}

func TestEmbedIsNormalized(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))

	vec, err := e.Embed(context.Background(), "biology cells")
	require.NoError(t, err)
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestVocabularyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.json")

	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	want, err := e.Embed(context.Background(), "focus while studying biology")
	require.NoError(t, err)
	require.NoError(t, e.SaveVocabulary(path))

	restored := NewEmbedder()
	require.NoError(t, restored.LoadVocabulary(path))
	got, err := restored.Embed(context.Background(), "focus while studying biology")
	require.NoError(t, err)

	assert.Equal(t, e.Dimension(), restored.Dimension())
	assert.Equal(t, want, got)
}

func TestSaveVocabularyUnprepared(t *testing.T) {
	e := NewEmbedder()
	require.Error(t, e.SaveVocabulary(filepath.Join(t.TempDir(), "v.json")))
}
