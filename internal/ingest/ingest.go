package ingest

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"advisor/internal/domain"
)

// Loader reads a directory of source documents, extracts their text,
// tags every unit with its originating filename, and splits it into
// chunks. Extraction failures are contained per file; only an empty
// result is an error.
type Loader struct {
	chunker domain.Chunker
	log     *zap.Logger
}

// NewLoader creates a Loader using the given chunker.
func NewLoader(chunker domain.Chunker, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{chunker: chunker, log: log}
}

// Ingest processes every supported file in dir and returns the
// resulting chunks. Unsupported file types are skipped silently;
// files that fail to extract are logged and skipped.
func (l *Loader) Ingest(dir string) ([]domain.Chunk, error) {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", domain.ErrDirectoryNotFound, dir)
	case err != nil:
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	case !info.IsDir():
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrDirectoryNotFound, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var chunks []domain.Chunk
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)

		content, ok, err := extract(path)
		if err != nil {
			l.log.Warn("skipping unreadable document",
				zap.String("file", name),
				zap.Error(err))
			continue
		}
		if !ok {
			l.log.Debug("skipping unsupported file type", zap.String("file", name))
			continue
		}

		doc := domain.Document{
			ID:      hashString(path),
			Path:    path,
			Source:  name,
			Content: content,
		}
		docChunks, err := l.chunker.Chunk(doc)
		if err != nil {
			l.log.Warn("skipping document that failed to chunk",
				zap.String("file", name),
				zap.Error(err))
			continue
		}
		chunks = append(chunks, docChunks...)
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w in %s", domain.ErrNoDocumentsFound, dir)
	}
	l.log.Info("documents ingested",
		zap.String("dir", dir),
		zap.Int("chunks", len(chunks)))
	return chunks, nil
}

// extract dispatches on file extension. The second return value is
// false for unsupported types.
func extract(path string) (string, bool, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := extractPDF(path)
		return text, true, err
	case ".docx":
		text, err := extractDOCX(path)
		return text, true, err
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		return string(data), true, err
	default:
		return "", false, nil
	}
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
