package ingest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor/internal/chunker"
	"advisor/internal/domain"
)

func newLoader() *Loader {
	return NewLoader(chunker.NewTextChunker(200, 40), nil)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// writeDOCX builds a minimal but valid DOCX container.
func writeDOCX(t *testing.T, dir, name string, paragraphs []string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		sb.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	sb.WriteString(`</w:body></w:document>`)
	_, err = w.Write([]byte(sb.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func TestIngestMissingDirectory(t *testing.T) {
	_, err := newLoader().Ingest(filepath.Join(t.TempDir(), "does-not-exist"))
	require.ErrorIs(t, err, domain.ErrDirectoryNotFound)
}

func TestIngestPathIsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "content")

	_, err := newLoader().Ingest(filepath.Join(dir, "notes.txt"))
	require.ErrorIs(t, err, domain.ErrDirectoryNotFound)
}

func TestIngestStatFailureIsNotNotFound(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "content")

	// A path whose parent is a regular file fails stat with ENOTDIR,
	// which is a different condition from a missing directory.
	_, err := newLoader().Ingest(filepath.Join(dir, "notes.txt", "sub"))
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrDirectoryNotFound)
}

func TestIngestEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "image.png", "not a document")

	_, err := newLoader().Ingest(dir)
	require.ErrorIs(t, err, domain.ErrNoDocumentsFound)
}

func TestIngestTagsChunksWithSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "habits.txt", "Good study habits improve focus. Review your notes daily. Sleep well before exams.")

	chunks, err := newLoader().Ingest(dir)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Equal(t, "habits.txt", ch.Source)
	}
}

func TestIngestReadsDOCX(t *testing.T) {
	dir := t.TempDir()
	writeDOCX(t, dir, "advice.docx", []string{
		"Plan your week before it starts.",
		"Short sessions beat marathon cramming.",
	})

	chunks, err := newLoader().Ingest(dir)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	joined := ""
	for _, ch := range chunks {
		joined += ch.Text
	}
	assert.Contains(t, joined, "Plan your week")
	assert.Contains(t, joined, "marathon cramming")
}

func TestIngestSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "valid.txt", "Consistent daily review is the foundation of learning.")
	// A .docx that is not a zip container must be skipped, not fatal.
	writeFile(t, dir, "broken.docx", "garbage bytes, not a zip")

	chunks, err := newLoader().Ingest(dir)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Equal(t, "valid.txt", ch.Source)
	}
}

func TestIngestOnlyCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.docx", "garbage bytes, not a zip")

	_, err := newLoader().Ingest(dir)
	require.ErrorIs(t, err, domain.ErrNoDocumentsFound)
}
